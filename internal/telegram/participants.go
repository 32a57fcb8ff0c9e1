package telegram

import (
	"context"
	"fmt"

	"github.com/gotd/td/tg"

	"telegram-history-exporter/internal/domain"
)

// IterParticipants перечисляет до limit участников диалога. Супергруппы и
// каналы вычитываются постранично через channels.getParticipants, обычные
// группы — одним запросом полной информации, личный диалог дает одного
// участника — собеседника. Удаленные аккаунты не фильтруются: это решение
// остается за вызывающим.
func (c *Client) IterParticipants(ctx context.Context, entity any, limit int, yield func(domain.Participant) error) error {
	switch peer := entity.(type) {
	case *tg.InputPeerChannel:
		return c.channelParticipants(ctx, peer, limit, yield)
	case *tg.InputPeerChat:
		return c.chatParticipants(ctx, peer.ChatID, limit, yield)
	case *tg.InputPeerUser:
		return c.userParticipant(ctx, peer, yield)
	}
	return fmt.Errorf("unexpected entity handle: %T", entity)
}

// channelParticipants постранично вычитывает участников супергруппы или
// канала.
func (c *Client) channelParticipants(ctx context.Context, peer *tg.InputPeerChannel, limit int, yield func(domain.Participant) error) error {
	count := 0
	for count < limit {
		pageLimit := participantsPageSize
		if rest := limit - count; rest < pageLimit {
			pageLimit = rest
		}

		c.log.Debug("Executing API call: ChannelsGetParticipants", "offset", count)
		res, err := c.api.ChannelsGetParticipants(ctx, &tg.ChannelsGetParticipantsRequest{
			Channel: &tg.InputChannel{ChannelID: peer.ChannelID, AccessHash: peer.AccessHash},
			Filter:  &tg.ChannelParticipantsRecent{},
			Offset:  count,
			Limit:   pageLimit,
		})
		if err != nil {
			return fmt.Errorf("get channel participants: %w", err)
		}

		page, ok := res.(*tg.ChannelsChannelParticipants)
		if !ok {
			return nil
		}
		if len(page.Users) == 0 {
			return nil
		}

		for _, uc := range page.Users {
			u, ok := uc.(*tg.User)
			if !ok {
				continue
			}
			if err := yield(mapUser(u)); err != nil {
				return err
			}
		}
		count += len(page.Users)
	}
	return nil
}

// chatParticipants возвращает участников обычной (не супер-) группы.
func (c *Client) chatParticipants(ctx context.Context, chatID int64, limit int, yield func(domain.Participant) error) error {
	c.log.Debug("Executing API call: MessagesGetFullChat", "chat_id", chatID)
	full, err := c.api.MessagesGetFullChat(ctx, chatID)
	if err != nil {
		return fmt.Errorf("get full chat: %w", err)
	}

	count := 0
	for _, uc := range full.Users {
		if count >= limit {
			return nil
		}
		u, ok := uc.(*tg.User)
		if !ok {
			continue
		}
		if err := yield(mapUser(u)); err != nil {
			return err
		}
		count++
	}
	return nil
}

// userParticipant возвращает собеседника личного диалога.
func (c *Client) userParticipant(ctx context.Context, peer *tg.InputPeerUser, yield func(domain.Participant) error) error {
	c.log.Debug("Executing API call: UsersGetUsers", "user_id", peer.UserID)
	users, err := c.api.UsersGetUsers(ctx, []tg.InputUserClass{
		&tg.InputUser{UserID: peer.UserID, AccessHash: peer.AccessHash},
	})
	if err != nil {
		return fmt.Errorf("get users: %w", err)
	}

	for _, uc := range users {
		if u, ok := uc.(*tg.User); ok {
			return yield(mapUser(u))
		}
	}
	return nil
}

// mapUser переводит пользователя Telegram во внутреннюю модель участника.
func mapUser(u *tg.User) domain.Participant {
	return domain.Participant{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Deleted:   u.Deleted,
	}
}
