package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/tg"

	"telegram-history-exporter/internal/domain"
	"telegram-history-exporter/internal/ports"
)

// Размеры страниц для пагинации по Telegram API.
const (
	dialogPageSize       = 100
	historyPageSize      = 100
	participantsPageSize = 100
)

// rawAPI представляет необработанные методы API, которые мы используем.
// Интерфейс позволяет создавать моки в тестах.
type rawAPI interface {
	MessagesGetDialogs(ctx context.Context, request *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error)
	MessagesGetHistory(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error)
	ChannelsGetParticipants(ctx context.Context, request *tg.ChannelsGetParticipantsRequest) (tg.ChannelsChannelParticipantsClass, error)
	MessagesGetFullChat(ctx context.Context, chatid int64) (*tg.MessagesChatFull, error)
	UsersGetUsers(ctx context.Context, request []tg.InputUserClass) ([]tg.UserClass, error)
}

// authAPI представляет клиент аутентификации gotd.
type authAPI interface {
	Status(ctx context.Context) (*auth.Status, error)
	SendCode(ctx context.Context, phone string, options auth.SendCodeOptions) (tg.AuthSentCodeClass, error)
	SignIn(ctx context.Context, phone, code, codeHash string) (*tg.AuthAuthorization, error)
	Password(ctx context.Context, password string) (*tg.AuthAuthorization, error)
}

// Client реализует ports.ProtocolClient поверх gotd. Он инкапсулирует
// состояние авторизации (phone_code_hash), пагинацию по диалогам и
// истории и скачивание вложений. Все методы, кроме Run, должны
// вызываться изнутри колбэка Run — с фонового контекста сессии.
type Client struct {
	id       string
	tgRunner *telegram.Client
	api      rawAPI
	raw      *tg.Client
	auth     authAPI
	dl       *downloader.Downloader
	log      *slog.Logger

	mu       sync.Mutex
	codeHash string
	selfID   int64
}

var _ ports.ProtocolClient = (*Client)(nil)

// Config содержит конфигурацию для создания нового клиента.
type Config struct {
	APIID       int
	APIHash     string
	SessionPath string
}

// ClientOption определяет функциональную опцию для конфигурации клиента.
type ClientOption func(*Client)

// WithLogger устанавливает логгер для клиента.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient создает новый экземпляр Client.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	// Настраиваем хранилище сессии.
	sessionStorage := &session.FileStorage{Path: cfg.SessionPath}

	// Создаем и настраиваем базовый клиент gotd.
	tgClient := telegram.NewClient(cfg.APIID, cfg.APIHash, telegram.Options{
		SessionStorage: sessionStorage,
	})

	c := &Client{
		id:       uuid.NewString(),
		tgRunner: tgClient,
		api:      tgClient.API(),
		raw:      tgClient.API(),
		auth:     tgClient.Auth(),
		dl:       downloader.NewDownloader(),
		log:      slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ID возвращает уникальный идентификатор клиента.
func (c *Client) ID() string {
	return c.id
}

// Run поднимает сетевое соединение и выполняет f на его фоне.
func (c *Client) Run(ctx context.Context, f func(ctx context.Context) error) error {
	c.log.Info("Starting telegram client", "client_id", c.id)
	err := c.tgRunner.Run(ctx, f)
	if err != nil && !errors.Is(err, context.Canceled) {
		c.log.Warn("Telegram client stopped with error", "client_id", c.id, "error", err)
	} else {
		c.log.Info("Telegram client stopped", "client_id", c.id)
	}
	return err
}

// IsAuthorized сообщает, действительна ли сохраненная сессия.
func (c *Client) IsAuthorized(ctx context.Context) (bool, error) {
	status, err := c.auth.Status(ctx)
	if err != nil {
		return false, fmt.Errorf("auth status: %w", err)
	}
	return status.Authorized, nil
}

// RequestCode запрашивает у Telegram отправку кода подтверждения и
// запоминает phone_code_hash для последующего SignInCode.
func (c *Client) RequestCode(ctx context.Context, phone string) error {
	c.log.Debug("Executing API call: AuthSendCode")
	sent, err := c.auth.SendCode(ctx, phone, auth.SendCodeOptions{})
	if err != nil {
		return fmt.Errorf("send code: %w", err)
	}

	code, ok := sent.(*tg.AuthSentCode)
	if !ok {
		return fmt.Errorf("unexpected sent code response: %T", sent)
	}

	c.mu.Lock()
	c.codeHash = code.PhoneCodeHash
	c.mu.Unlock()
	return nil
}

// SignInCode завершает вход по коду подтверждения. Требование пароля 2FA
// транслируется в ports.ErrPasswordNeeded.
func (c *Client) SignInCode(ctx context.Context, phone, code string) error {
	c.mu.Lock()
	codeHash := c.codeHash
	c.mu.Unlock()

	c.log.Debug("Executing API call: AuthSignIn")
	_, err := c.auth.SignIn(ctx, phone, code, codeHash)
	if errors.Is(err, auth.ErrPasswordAuthNeeded) {
		return ports.ErrPasswordNeeded
	}
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	return nil
}

// SignInPassword завершает вход по паролю 2FA.
func (c *Client) SignInPassword(ctx context.Context, password string) error {
	c.log.Debug("Executing API call: AuthCheckPassword")
	if _, err := c.auth.Password(ctx, password); err != nil {
		return fmt.Errorf("password sign in: %w", err)
	}
	return nil
}

// Profile возвращает профиль авторизованного пользователя. Отображаемое
// имя — username, а при его отсутствии имя и фамилия.
func (c *Client) Profile(ctx context.Context) (domain.UserProfile, error) {
	self, err := c.tgRunner.Self(ctx)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("get self: %w", err)
	}

	c.mu.Lock()
	c.selfID = self.ID
	c.mu.Unlock()

	return domain.UserProfile{
		ID:          self.ID,
		DisplayName: profileName(self),
		Phone:       self.Phone,
	}, nil
}

// profileName выбирает отображаемое имя профиля.
func profileName(u *tg.User) string {
	if u.Username != "" {
		return u.Username
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}
