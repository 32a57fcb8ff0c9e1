// Package events доставляет уведомления ядра потребителю на выделенной
// горутине, сохраняя общий порядок событий фонового контекста.
package events

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"telegram-history-exporter/internal/domain"
	"telegram-history-exporter/internal/ports"
)

// queueSize — емкость очереди доставки. Фоновый контекст блокируется на
// переполненной очереди, чтобы не терять события и не нарушать их порядок.
const queueSize = 256

// Dispatcher оборачивает ports.EventSink потребителя и перенаправляет
// каждое уведомление на собственную горутину доставки. Ядро вызывает
// методы Dispatcher с фонового контекста; потребитель получает их строго
// в порядке постановки, по одному за раз.
type Dispatcher struct {
	sink   ports.EventSink
	queue  chan func()
	done   chan struct{}
	closed atomic.Bool
	wg     sync.WaitGroup
	log    *slog.Logger
}

var _ ports.EventSink = (*Dispatcher)(nil)

// Option — функциональная опция для настройки диспетчера.
type Option func(*Dispatcher)

// WithLogger устанавливает логгер диспетчера.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// NewDispatcher создает диспетчер поверх приемника потребителя и запускает
// горутину доставки.
func NewDispatcher(sink ports.EventSink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sink:  sink,
		queue: make(chan func(), queueSize),
		done:  make(chan struct{}),
		log:   slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	d.wg.Add(1)
	go d.deliver()

	return d
}

// deliver — горутина доставки: снимает уведомления из очереди и вызывает
// приемник потребителя до закрытия диспетчера.
func (d *Dispatcher) deliver() {
	defer d.wg.Done()
	for {
		select {
		case notify := <-d.queue:
			notify()
		case <-d.done:
			// Дорабатываем уже поставленные уведомления.
			for {
				select {
				case notify := <-d.queue:
					notify()
				default:
					return
				}
			}
		}
	}
}

// Close останавливает доставку. Уже поставленные уведомления доставляются,
// новые после закрытия молча отбрасываются.
func (d *Dispatcher) Close() {
	if d.closed.CompareAndSwap(false, true) {
		close(d.done)
	}
	d.wg.Wait()
}

// enqueue ставит уведомление в очередь доставки.
func (d *Dispatcher) enqueue(notify func()) {
	if d.closed.Load() {
		d.log.Debug("Dispatcher closed, dropping event")
		return
	}
	select {
	case d.queue <- notify:
	case <-d.done:
	}
}

// OnCodeRequested реализует ports.EventSink.
func (d *Dispatcher) OnCodeRequested() {
	d.enqueue(d.sink.OnCodeRequested)
}

// OnPasswordRequested реализует ports.EventSink.
func (d *Dispatcher) OnPasswordRequested() {
	d.enqueue(d.sink.OnPasswordRequested)
}

// OnLoginSuccess реализует ports.EventSink.
func (d *Dispatcher) OnLoginSuccess(profile domain.UserProfile) {
	d.enqueue(func() { d.sink.OnLoginSuccess(profile) })
}

// OnConnectionError реализует ports.EventSink.
func (d *Dispatcher) OnConnectionError(message string) {
	d.enqueue(func() { d.sink.OnConnectionError(message) })
}

// OnDialogsLoaded реализует ports.EventSink.
func (d *Dispatcher) OnDialogsLoaded(dialogs []domain.Dialog) {
	d.enqueue(func() { d.sink.OnDialogsLoaded(dialogs) })
}

// OnParticipantsLoaded реализует ports.EventSink.
func (d *Dispatcher) OnParticipantsLoaded(participants []domain.Participant) {
	d.enqueue(func() { d.sink.OnParticipantsLoaded(participants) })
}

// OnExportProgress реализует ports.EventSink.
func (d *Dispatcher) OnExportProgress(index, total int, message string) {
	d.enqueue(func() { d.sink.OnExportProgress(index, total, message) })
}

// OnExportFinished реализует ports.EventSink.
func (d *Dispatcher) OnExportFinished() {
	d.enqueue(d.sink.OnExportFinished)
}
