// Package consumer содержит консольного потребителя событий ядра —
// замену графического интерфейса для работы из терминала.
package consumer

import (
	"fmt"
	"io"

	"telegram-history-exporter/internal/domain"
	"telegram-history-exporter/internal/ports"
)

// Console реализует ports.EventSink: печатает уведомления и транслирует
// те из них, что требуют реакции пользователя, в каналы для главной
// горутины. Каналы буферизованы на одно событие: ядро отправляет
// уведомления последовательно, а главная горутина их всегда потребляет.
type Console struct {
	out io.Writer

	CodeRequested     chan struct{}
	PasswordRequested chan struct{}
	LoggedIn          chan domain.UserProfile
	Dialogs           chan []domain.Dialog
	Participants      chan []domain.Participant
	Errors            chan string
	Finished          chan struct{}
}

var _ ports.EventSink = (*Console)(nil)

// NewConsole создает консольного потребителя, пишущего в out.
func NewConsole(out io.Writer) *Console {
	return &Console{
		out:               out,
		CodeRequested:     make(chan struct{}, 1),
		PasswordRequested: make(chan struct{}, 1),
		LoggedIn:          make(chan domain.UserProfile, 1),
		Dialogs:           make(chan []domain.Dialog, 1),
		Participants:      make(chan []domain.Participant, 1),
		Errors:            make(chan string, 1),
		Finished:          make(chan struct{}, 1),
	}
}

// OnCodeRequested реализует ports.EventSink.
func (c *Console) OnCodeRequested() {
	c.CodeRequested <- struct{}{}
}

// OnPasswordRequested реализует ports.EventSink.
func (c *Console) OnPasswordRequested() {
	c.PasswordRequested <- struct{}{}
}

// OnLoginSuccess реализует ports.EventSink.
func (c *Console) OnLoginSuccess(profile domain.UserProfile) {
	fmt.Fprintf(c.out, "Logged in as %s\n", profile.DisplayName)
	c.LoggedIn <- profile
}

// OnConnectionError реализует ports.EventSink.
func (c *Console) OnConnectionError(message string) {
	c.Errors <- message
}

// OnDialogsLoaded реализует ports.EventSink.
func (c *Console) OnDialogsLoaded(dialogs []domain.Dialog) {
	c.Dialogs <- dialogs
}

// OnParticipantsLoaded реализует ports.EventSink.
func (c *Console) OnParticipantsLoaded(participants []domain.Participant) {
	c.Participants <- participants
}

// OnExportProgress реализует ports.EventSink.
func (c *Console) OnExportProgress(index, total int, message string) {
	fmt.Fprintf(c.out, "[%d/%d] %s\n", index+1, total, message)
}

// OnExportFinished реализует ports.EventSink.
func (c *Console) OnExportFinished() {
	c.Finished <- struct{}{}
}
