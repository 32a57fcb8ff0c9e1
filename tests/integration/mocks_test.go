package integration

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"telegram-history-exporter/internal/domain"
)

// stubProtocolClient - мок-реализация ports.ProtocolClient с зашитым
// аккаунтом: два диалога, немного сообщений и участников. Вход требует
// код подтверждения, но не пароль.
type stubProtocolClient struct {
	gotCode string
}

func (c *stubProtocolClient) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (c *stubProtocolClient) IsAuthorized(ctx context.Context) (bool, error) { return false, nil }

func (c *stubProtocolClient) RequestCode(ctx context.Context, phone string) error { return nil }

func (c *stubProtocolClient) SignInCode(ctx context.Context, phone, code string) error {
	c.gotCode = code
	return nil
}

func (c *stubProtocolClient) SignInPassword(ctx context.Context, password string) error {
	return nil
}

func (c *stubProtocolClient) Profile(ctx context.Context) (domain.UserProfile, error) {
	return domain.UserProfile{ID: 42, DisplayName: "integration_tester", Phone: "+79990001122"}, nil
}

func (c *stubProtocolClient) IterDialogs(ctx context.Context, yield func(domain.Dialog) error) error {
	dialogs := []domain.Dialog{
		{ID: 1, Title: "Family Chat", IsGroup: true, Entity: int64(1)},
		{ID: 2, Title: "Anna", Entity: int64(2)},
	}
	for _, d := range dialogs {
		if err := yield(d); err != nil {
			return err
		}
	}
	return nil
}

func (c *stubProtocolClient) IterParticipants(ctx context.Context, entity any, limit int, yield func(domain.Participant) error) error {
	participants := []domain.Participant{
		{ID: 42, FirstName: "Integration", LastName: "Tester"},
		{ID: 100, FirstName: "Anna", Username: "anna_k"},
		{ID: 101, Deleted: true},
	}
	for _, p := range participants {
		if err := yield(p); err != nil {
			return err
		}
	}
	return nil
}

func (c *stubProtocolClient) IterMessages(ctx context.Context, entity any, yield func(domain.Message) error) error {
	date := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	messages := map[int64][]domain.Message{
		1: {
			{ID: 3, SenderID: 100, SenderName: "Anna", Text: "see you tomorrow", Date: date},
			{ID: 2, SenderID: 42, SenderName: "Integration", Text: "ok", Date: date},
			{ID: 1, SenderID: 100, SenderName: "Anna", Date: date, Media: &domain.MediaInfo{Photo: true, Filename: "photo_1.jpg"}},
		},
		2: {
			{ID: 1, SenderID: 100, SenderName: "Anna", Text: "hi", Date: date},
		},
	}
	for _, msg := range messages[entity.(int64)] {
		if err := yield(msg); err != nil {
			return err
		}
	}
	return nil
}

func (c *stubProtocolClient) DownloadMedia(ctx context.Context, msg domain.Message, destDir string) error {
	return os.WriteFile(filepath.Join(destDir, msg.Media.Filename), []byte("jpeg"), 0o644)
}
