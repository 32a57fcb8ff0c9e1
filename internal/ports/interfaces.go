package ports

import (
	"telegram-history-exporter/internal/domain"
)

// EventSink определяет узкую поверхность обратных вызовов, через которую
// оркестрационное ядро уведомляет потребителя. Все уведомления асинхронны:
// потребитель получает их на собственном контексте исполнения, в порядке
// завершения операций на фоновом контексте.
type EventSink interface {
	// OnCodeRequested вызывается, когда сервис запросил код подтверждения
	// и фоновый контекст приостановлен в ожидании SubmitCode.
	OnCodeRequested()
	// OnPasswordRequested вызывается при требовании пароля 2FA.
	OnPasswordRequested()
	// OnLoginSuccess вызывается ровно один раз при успешной авторизации.
	OnLoginSuccess(profile domain.UserProfile)
	// OnConnectionError вызывается при фатальной ошибке текущей операции.
	OnConnectionError(message string)
	// OnDialogsLoaded вызывается один раз с полным снимком диалогов.
	OnDialogsLoaded(dialogs []domain.Dialog)
	// OnParticipantsLoaded вызывается один раз на запрос участников.
	OnParticipantsLoaded(participants []domain.Participant)
	// OnExportProgress сообщает грубый прогресс экспорта.
	OnExportProgress(index, total int, message string)
	// OnExportFinished вызывается ровно один раз по завершении задания.
	OnExportFinished()
}

// CredentialStore определяет контракт хранилища учетных данных,
// привязанного к устройству. Шифрование непрозрачно для ядра.
type CredentialStore interface {
	// Load возвращает сохраненные учетные данные. Отсутствующий или
	// нечитаемый файл — это не ошибка, а признак "нет данных".
	Load() (domain.Credentials, bool, error)
	// Save сохраняет учетные данные для последующих запусков.
	Save(creds domain.Credentials) error
}
