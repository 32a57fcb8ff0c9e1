package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/gotd/td/tg"

	"telegram-history-exporter/internal/domain"
)

// IterDialogs перечисляет все диалоги аккаунта, постранично вычитывая
// messages.getDialogs. Папки и диалоги без известной сущности пропускаются.
func (c *Client) IterDialogs(ctx context.Context, yield func(domain.Dialog) error) error {
	offsetDate, offsetID := 0, 0
	var offsetPeer tg.InputPeerClass = &tg.InputPeerEmpty{}

	for {
		c.log.Debug("Executing API call: MessagesGetDialogs", "offset_id", offsetID)
		res, err := c.api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
			OffsetDate: offsetDate,
			OffsetID:   offsetID,
			OffsetPeer: offsetPeer,
			Limit:      dialogPageSize,
		})
		if err != nil {
			return fmt.Errorf("get dialogs: %w", err)
		}

		var (
			raw      []tg.DialogClass
			messages []tg.MessageClass
			chats    []tg.ChatClass
			users    []tg.UserClass
			full     bool
		)
		switch d := res.(type) {
		case *tg.MessagesDialogs:
			raw, messages, chats, users, full = d.Dialogs, d.Messages, d.Chats, d.Users, true
		case *tg.MessagesDialogsSlice:
			raw, messages, chats, users = d.Dialogs, d.Messages, d.Chats, d.Users
		case *tg.MessagesDialogsNotModified:
			return nil
		default:
			return fmt.Errorf("unexpected dialogs response: %T", res)
		}
		if len(raw) == 0 {
			return nil
		}

		userIndex := indexUsers(users)
		chatIndex := indexChats(chats)

		var lastEntity tg.InputPeerClass
		lastTop := 0
		for _, dc := range raw {
			dlg, ok := dc.(*tg.Dialog)
			if !ok {
				continue
			}
			mapped, ok := mapDialog(dlg, userIndex, chatIndex)
			if !ok {
				continue
			}
			if err := yield(mapped); err != nil {
				return err
			}
			lastEntity = mapped.Entity.(tg.InputPeerClass)
			lastTop = dlg.TopMessage
		}

		if full || len(raw) < dialogPageSize || lastEntity == nil {
			return nil
		}

		// Смещение следующей страницы — верхнее сообщение последнего диалога.
		offsetPeer = lastEntity
		offsetID = lastTop
		offsetDate = messageDate(messages, lastTop)
	}
}

// IterMessages перечисляет сообщения диалога постранично, от новых к
// старым, как их отдает messages.getHistory. Служебные сообщения
// пропускаются, но продвигают смещение.
func (c *Client) IterMessages(ctx context.Context, entity any, yield func(domain.Message) error) error {
	peer, ok := entity.(tg.InputPeerClass)
	if !ok {
		return fmt.Errorf("unexpected entity handle: %T", entity)
	}

	offsetID := 0
	for {
		c.log.Debug("Executing API call: MessagesGetHistory", "offset_id", offsetID)
		res, err := c.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:     peer,
			OffsetID: offsetID,
			Limit:    historyPageSize,
		})
		if err != nil {
			return fmt.Errorf("get history: %w", err)
		}

		var (
			msgs  []tg.MessageClass
			chats []tg.ChatClass
			users []tg.UserClass
			full  bool
		)
		switch h := res.(type) {
		case *tg.MessagesMessages:
			msgs, chats, users, full = h.Messages, h.Chats, h.Users, true
		case *tg.MessagesMessagesSlice:
			msgs, chats, users = h.Messages, h.Chats, h.Users
		case *tg.MessagesChannelMessages:
			msgs, chats, users = h.Messages, h.Chats, h.Users
		case *tg.MessagesMessagesNotModified:
			return nil
		default:
			return fmt.Errorf("unexpected history response: %T", res)
		}
		if len(msgs) == 0 {
			return nil
		}

		names := senderIndex(users, chats)
		for _, mc := range msgs {
			switch msg := mc.(type) {
			case *tg.Message:
				if err := yield(c.mapMessage(msg, peer, names)); err != nil {
					return err
				}
				offsetID = msg.ID
			case *tg.MessageService:
				offsetID = msg.ID
			case *tg.MessageEmpty:
				offsetID = msg.ID
			}
		}

		if full || len(msgs) < historyPageSize {
			return nil
		}
	}
}

// mapMessage переводит сообщение Telegram во внутреннюю модель.
func (c *Client) mapMessage(msg *tg.Message, peer tg.InputPeerClass, names map[int64]string) domain.Message {
	dm := domain.Message{
		ID:   msg.ID,
		Text: msg.Message,
		Date: time.Unix(int64(msg.Date), 0),
	}
	dm.SenderID = c.senderOf(msg, peer)
	dm.SenderName = names[dm.SenderID]
	dm.Media, dm.Ref = extractMedia(msg)
	return dm
}

// senderOf определяет отправителя сообщения. В личных чатах FromID может
// отсутствовать: исходящие принадлежат текущему пользователю, входящие —
// собеседнику.
func (c *Client) senderOf(msg *tg.Message, peer tg.InputPeerClass) int64 {
	if from, ok := msg.GetFromID(); ok {
		switch p := from.(type) {
		case *tg.PeerUser:
			return p.UserID
		case *tg.PeerChannel:
			return p.ChannelID
		case *tg.PeerChat:
			return p.ChatID
		}
	}

	c.mu.Lock()
	selfID := c.selfID
	c.mu.Unlock()

	if msg.Out {
		return selfID
	}
	if u, ok := peer.(*tg.InputPeerUser); ok {
		return u.UserID
	}
	return 0
}

// mapDialog переводит диалог Telegram во внутреннюю модель, подбирая
// заголовок и дескриптор пира по сущностям ответа.
func mapDialog(d *tg.Dialog, users map[int64]*tg.User, chats map[int64]tg.ChatClass) (domain.Dialog, bool) {
	switch peer := d.Peer.(type) {
	case *tg.PeerUser:
		u, ok := users[peer.UserID]
		if !ok {
			return domain.Dialog{}, false
		}
		return domain.Dialog{
			ID:     u.ID,
			Title:  userTitle(u),
			Entity: &tg.InputPeerUser{UserID: u.ID, AccessHash: u.AccessHash},
		}, true
	case *tg.PeerChat:
		chat, ok := chats[peer.ChatID].(*tg.Chat)
		if !ok {
			return domain.Dialog{}, false
		}
		return domain.Dialog{
			ID:      chat.ID,
			Title:   chat.Title,
			IsGroup: true,
			Entity:  &tg.InputPeerChat{ChatID: chat.ID},
		}, true
	case *tg.PeerChannel:
		ch, ok := chats[peer.ChannelID].(*tg.Channel)
		if !ok {
			return domain.Dialog{}, false
		}
		return domain.Dialog{
			ID:        ch.ID,
			Title:     ch.Title,
			IsGroup:   ch.Megagroup,
			IsChannel: ch.Broadcast,
			Entity:    &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash},
		}, true
	}
	return domain.Dialog{}, false
}

// userTitle выбирает заголовок личного диалога.
func userTitle(u *tg.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if name == "" {
		name = u.Username
	}
	return name
}

// indexUsers строит индекс пользователей ответа по идентификатору.
func indexUsers(users []tg.UserClass) map[int64]*tg.User {
	index := make(map[int64]*tg.User, len(users))
	for _, uc := range users {
		if u, ok := uc.(*tg.User); ok {
			index[u.ID] = u
		}
	}
	return index
}

// indexChats строит индекс чатов и каналов ответа по идентификатору.
func indexChats(chats []tg.ChatClass) map[int64]tg.ChatClass {
	index := make(map[int64]tg.ChatClass, len(chats))
	for _, cc := range chats {
		switch chat := cc.(type) {
		case *tg.Chat:
			index[chat.ID] = chat
		case *tg.Channel:
			index[chat.ID] = chat
		}
	}
	return index
}

// senderIndex строит индекс отображаемых имен отправителей. Для
// пользователей берется имя, для групп и каналов — заголовок.
func senderIndex(users []tg.UserClass, chats []tg.ChatClass) map[int64]string {
	index := make(map[int64]string, len(users)+len(chats))
	for _, uc := range users {
		if u, ok := uc.(*tg.User); ok {
			index[u.ID] = u.FirstName
		}
	}
	for _, cc := range chats {
		switch chat := cc.(type) {
		case *tg.Chat:
			index[chat.ID] = chat.Title
		case *tg.Channel:
			index[chat.ID] = chat.Title
		}
	}
	return index
}

// messageDate находит дату сообщения с указанным идентификатором.
func messageDate(messages []tg.MessageClass, id int) int {
	for _, mc := range messages {
		if m, ok := mc.(*tg.Message); ok && m.ID == id {
			return m.Date
		}
	}
	return 0
}
