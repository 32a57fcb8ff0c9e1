package ports

import (
	"context"
	"errors"

	"telegram-history-exporter/internal/domain"
)

// ErrPasswordNeeded возвращается SignInCode, когда аккаунт защищен паролем
// 2FA и авторизация должна быть продолжена через SignInPassword.
var ErrPasswordNeeded = errors.New("2FA password needed")

// ProtocolClient определяет публичный интерфейс протокольного клиента
// Telegram. Все методы должны вызываться только с фонового контекста
// исполнения сессии; интерфейс существует, чтобы оркестрация не зависела
// от конкретной реализации и могла тестироваться на моках.
type ProtocolClient interface {
	// Run поднимает сетевое соединение и держит его, пока выполняется f.
	// Возврат из f завершает соединение.
	Run(ctx context.Context, f func(ctx context.Context) error) error

	// IsAuthorized сообщает, действительна ли сохраненная сессия.
	IsAuthorized(ctx context.Context) (bool, error)
	// RequestCode запрашивает у сервиса отправку кода подтверждения.
	RequestCode(ctx context.Context, phone string) error
	// SignInCode завершает вход по коду. Возвращает ErrPasswordNeeded,
	// если аккаунту требуется пароль 2FA.
	SignInCode(ctx context.Context, phone, code string) error
	// SignInPassword завершает вход по паролю 2FA.
	SignInPassword(ctx context.Context, password string) error
	// Profile возвращает профиль авторизованного пользователя.
	Profile(ctx context.Context) (domain.UserProfile, error)

	// IterDialogs перечисляет все диалоги аккаунта, вызывая yield для
	// каждого. Ошибка из yield прерывает перечисление.
	IterDialogs(ctx context.Context, yield func(domain.Dialog) error) error
	// IterParticipants перечисляет до limit участников диалога по его
	// непрозрачному дескриптору, включая удаленные аккаунты: фильтрация
	// остается за вызывающим.
	IterParticipants(ctx context.Context, entity any, limit int, yield func(domain.Participant) error) error
	// IterMessages перечисляет сообщения диалога в порядке от новых к
	// старым, как их отдает сервис; порядок не переупорядочивается.
	IterMessages(ctx context.Context, entity any, yield func(domain.Message) error) error
	// DownloadMedia скачивает вложение сообщения в указанный каталог.
	DownloadMedia(ctx context.Context, msg domain.Message, destDir string) error
}
