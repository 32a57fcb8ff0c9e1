// Package session владеет единственным фоновым контекстом исполнения,
// на котором живет сетевая сессия Telegram. Все протокольные операции —
// вход, перечисление диалогов и участников, экспорт — выполняются на нем
// строго последовательно; передний план только ставит задачи и получает
// события.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"telegram-history-exporter/internal/domain"
	"telegram-history-exporter/internal/pkg/future"
	"telegram-history-exporter/internal/ports"
)

// taskQueueSize — емкость очереди фоновых задач. Передний план сериализует
// операции сам, так что очередь почти всегда пуста.
const taskQueueSize = 16

// ClientFactory создает протокольный клиент под учетные данные попытки
// входа.
type ClientFactory func(creds domain.Credentials) (ports.ProtocolClient, error)

// Directory определяет интерфейс резолвера диалогов и участников.
type Directory interface {
	ListDialogs(ctx context.Context, client ports.ProtocolClient) ([]domain.Dialog, error)
	FetchParticipants(ctx context.Context, client ports.ProtocolClient, dialogs []domain.Dialog, dialogID int64) error
}

// Exporter определяет интерфейс конвейера экспорта.
type Exporter interface {
	Run(ctx context.Context, client ports.ProtocolClient, dialogs []domain.Dialog, job domain.ExportJob) error
}

// Runner — сессия процесса. Он запускает единственную фоновую горутину,
// ведет машину состояний входа и исполняет задачи резолвера и экспорта
// в порядке поступления. Дескриптор соединения, снимок диалогов и слоты
// ожидания принадлежат исключительно фоновой горутине.
type Runner struct {
	factory   ClientFactory
	sink      ports.EventSink
	directory Directory
	exporter  Exporter
	log       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	active   bool
	code     *future.Value[string]
	password *future.Value[string]

	tasks chan func(ctx context.Context)

	// Принадлежат фоновой горутине после успешного входа.
	client  ports.ProtocolClient
	dialogs []domain.Dialog
}

// RunnerOption — функциональная опция для настройки Runner.
type RunnerOption func(*Runner)

// WithLogger устанавливает логгер сессии.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRunner создает сессию процесса.
func NewRunner(factory ClientFactory, sink ports.EventSink, directory Directory, exporter Exporter, opts ...RunnerOption) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		factory:   factory,
		sink:      sink,
		directory: directory,
		exporter:  exporter,
		log:       slog.Default(),
		ctx:       ctx,
		cancel:    cancel,
		tasks:     make(chan func(ctx context.Context), taskQueueSize),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// StartLogin начинает попытку входа на фоновой горутине. Повторный вызов
// при уже идущей попытке (или активной сессии) молча игнорируется: на
// сессию допускается не более одного входа одновременно.
func (r *Runner) StartLogin(creds domain.Credentials) {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		r.log.Debug("Login already in flight, ignoring")
		return
	}
	r.active = true
	r.mu.Unlock()

	go r.run(creds)
}

// SubmitCode передает код подтверждения в ожидающий слот. Вызов без
// ожидающего слота или с уже разрешенным слотом — безопасный no-op.
func (r *Runner) SubmitCode(code string) {
	r.mu.Lock()
	slot := r.code
	r.mu.Unlock()

	if slot == nil {
		r.log.Debug("No code awaited, ignoring submission")
		return
	}
	slot.Fulfill(code)
}

// SubmitPassword передает пароль 2FA в ожидающий слот. Семантика
// идентична SubmitCode.
func (r *Runner) SubmitPassword(password string) {
	r.mu.Lock()
	slot := r.password
	r.mu.Unlock()

	if slot == nil {
		r.log.Debug("No password awaited, ignoring submission")
		return
	}
	slot.Fulfill(password)
}

// FetchParticipants ставит запрос участников в очередь фоновых задач.
func (r *Runner) FetchParticipants(dialogID int64) {
	r.submit(func(ctx context.Context) {
		if err := r.directory.FetchParticipants(ctx, r.client, r.dialogs, dialogID); err != nil {
			r.log.Warn("Participant fetch failed", "dialog_id", dialogID, "error", err)
			r.sink.OnConnectionError(fmt.Sprintf("не удалось получить участников: %v", err))
		}
	})
}

// StartExport ставит задание экспорта в очередь фоновых задач.
func (r *Runner) StartExport(job domain.ExportJob) {
	r.submit(func(ctx context.Context) {
		if err := r.exporter.Run(ctx, r.client, r.dialogs, job); err != nil {
			r.log.Warn("Export failed", "error", err)
			r.sink.OnConnectionError(fmt.Sprintf("ошибка экспорта: %v", err))
		}
	})
}

// Shutdown завершает фоновый контекст. Вызывается только при выходе из
// процесса: операции посреди исполнения не имеют иного способа отмены.
func (r *Runner) Shutdown() {
	r.cancel()
}

// run — тело фоновой горутины: поднимает соединение, ведет вход и затем
// исполняет задачи до завершения контекста. При сбое горутина завершается
// с одним событием ошибки; новая попытка входа поднимет новую горутину.
func (r *Runner) run(creds domain.Credentials) {
	defer func() {
		r.mu.Lock()
		r.active = false
		r.mu.Unlock()
	}()

	client, err := r.factory(creds)
	if err != nil {
		r.log.Warn("Protocol client creation failed", "error", err)
		r.sink.OnConnectionError(err.Error())
		return
	}

	err = client.Run(r.ctx, func(runCtx context.Context) error {
		if err := r.login(runCtx, client, creds); err != nil {
			return err
		}

		r.client = client

		// Успешный вход немедленно влечет перечисление диалогов.
		dialogs, err := r.directory.ListDialogs(runCtx, client)
		if err != nil {
			return err
		}
		r.dialogs = dialogs

		r.serve(runCtx)
		return runCtx.Err()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		r.log.Warn("Session ended with error", "error", err)
		r.sink.OnConnectionError(err.Error())
	}
}

// serve исполняет фоновые задачи по одной, в порядке поступления, до
// завершения контекста.
func (r *Runner) serve(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-r.tasks:
			task(ctx)
		}
	}
}

// submit ставит задачу в очередь фоновой горутины. Переполненная очередь
// означает, что передний план нарушил дисциплину последовательных
// операций; запрос отбрасывается, но потребитель уведомляется — иначе он
// ждал бы события завершения вечно.
func (r *Runner) submit(task func(ctx context.Context)) {
	select {
	case r.tasks <- task:
	default:
		r.log.Warn("Task queue full, dropping request")
		r.sink.OnConnectionError("очередь задач переполнена, запрос отброшен")
	}
}
