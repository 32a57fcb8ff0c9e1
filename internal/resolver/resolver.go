// Package resolver перечисляет диалоги аккаунта и участников отдельного
// диалога, уведомляя потребителя одним событием на операцию.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"telegram-history-exporter/internal/domain"
	"telegram-history-exporter/internal/ports"
)

// DefaultParticipantLimit ограничивает выборку участников, чтобы большие
// группы не растягивали запрос.
const DefaultParticipantLimit = 200

// Service реализует перечисление диалогов и участников. Сервис не хранит
// состояние между вызовами и не использует блокировок: корректность
// обеспечивается тем, что все вызовы происходят на единственном фоновом
// контексте сессии.
type Service struct {
	sink             ports.EventSink
	log              *slog.Logger
	participantLimit int
}

// Option — функциональная опция для настройки сервиса.
type Option func(*Service)

// WithLogger устанавливает логгер сервиса.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithParticipantLimit переопределяет предел выборки участников.
func WithParticipantLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.participantLimit = n
		}
	}
}

// NewService создает новый Service.
func NewService(sink ports.EventSink, opts ...Option) *Service {
	s := &Service{
		sink:             sink,
		log:              slog.Default(),
		participantLimit: DefaultParticipantLimit,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ListDialogs вычитывает полную коллекцию диалогов в память и уведомляет
// потребителя одним событием с готовым снимком. Коллекция в тысячи
// диалогов считается приемлемой для удержания в памяти.
func (s *Service) ListDialogs(ctx context.Context, client ports.ProtocolClient) ([]domain.Dialog, error) {
	var dialogs []domain.Dialog
	err := client.IterDialogs(ctx, func(d domain.Dialog) error {
		dialogs = append(dialogs, d)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("не удалось перечислить диалоги: %w", err)
	}

	s.log.Info("Dialogs loaded", "count", len(dialogs))
	s.sink.OnDialogsLoaded(dialogs)
	return dialogs, nil
}

// FetchParticipants находит диалог в снимке и вычитывает его участников,
// пропуская удаленные аккаунты. Неизвестный идентификатор — тихий no-op:
// устаревший выбор потребителя не считается ошибкой.
func (s *Service) FetchParticipants(ctx context.Context, client ports.ProtocolClient, dialogs []domain.Dialog, dialogID int64) error {
	var dialog *domain.Dialog
	for i := range dialogs {
		if dialogs[i].ID == dialogID {
			dialog = &dialogs[i]
			break
		}
	}
	if dialog == nil {
		s.log.Debug("Dialog not in snapshot, skipping participant fetch", "dialog_id", dialogID)
		return nil
	}

	participants := make([]domain.Participant, 0)
	err := client.IterParticipants(ctx, dialog.Entity, s.participantLimit, func(p domain.Participant) error {
		if p.Deleted {
			return nil
		}
		participants = append(participants, p)
		return nil
	})
	if err != nil {
		return fmt.Errorf("не удалось получить участников: %w", err)
	}

	s.log.Info("Participants loaded", "dialog_id", dialogID, "count", len(participants))
	s.sink.OnParticipantsLoaded(participants)
	return nil
}
