// Package export реализует конвейер экспорта истории диалогов в локальную
// структуру каталогов: текстовые расшифровки и скачанные вложения.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"telegram-history-exporter/internal/domain"
	"telegram-history-exporter/internal/ports"
)

const (
	// DefaultRoot — корневой каталог экспорта.
	DefaultRoot = "export"
	// DefaultProgressEvery — каждое какое по счету сообщение порождает
	// событие прогресса. Прореживание нужно, чтобы не заваливать
	// потребителя уведомлением на каждое сообщение.
	DefaultProgressEvery = 20

	transcriptName = "chat_history.txt"
	timeLayout     = "2006-01-02 15:04:05"
	unknownSender  = "Unknown"
)

// Подкаталоги классов вложений.
const (
	subdirPhotos = "photos"
	subdirVoice  = "voice"
	subdirVideos = "videos"
	subdirFiles  = "files"
)

// Pipeline выполняет задания экспорта. Конвейер не хранит состояние между
// запусками; все вызовы происходят на фоновом контексте сессии.
type Pipeline struct {
	sink          ports.EventSink
	log           *slog.Logger
	root          string
	progressEvery int
}

// Option — функциональная опция для настройки конвейера.
type Option func(*Pipeline)

// WithLogger устанавливает логгер конвейера.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithRoot переопределяет корневой каталог экспорта.
func WithRoot(dir string) Option {
	return func(p *Pipeline) {
		if dir != "" {
			p.root = dir
		}
	}
}

// WithProgressEvery переопределяет шаг прореживания прогресса.
func WithProgressEvery(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.progressEvery = n
		}
	}
}

// NewPipeline создает новый конвейер экспорта.
func NewPipeline(sink ports.EventSink, opts ...Option) *Pipeline {
	p := &Pipeline{
		sink:          sink,
		log:           slog.Default(),
		root:          DefaultRoot,
		progressEvery: DefaultProgressEvery,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Run выполняет задание экспорта: диалоги обрабатываются в заданном
// порядке, неизвестные идентификаторы молча пропускаются, сбой одного
// диалога не прерывает остальные. Событие завершения отправляется ровно
// один раз, независимо от пропусков и изолированных сбоев.
func (p *Pipeline) Run(ctx context.Context, client ports.ProtocolClient, dialogs []domain.Dialog, job domain.ExportJob) error {
	jobID := uuid.NewString()
	total := len(job.DialogIDs)
	log := p.log.With("job_id", jobID)
	log.Info("Export started", "dialogs", total)

	for index, dialogID := range job.DialogIDs {
		dialog, ok := findDialog(dialogs, dialogID)
		if !ok {
			log.Debug("Dialog not in snapshot, skipping", "dialog_id", dialogID)
			continue
		}

		if err := p.exportDialog(ctx, client, dialog, index, total, job, log); err != nil {
			// Изоляция сбоев: один испорченный диалог не срывает задание.
			log.Warn("Dialog export failed, continuing with next", "dialog_id", dialogID, "error", err)
		}
	}

	log.Info("Export finished")
	p.sink.OnExportFinished()
	return nil
}

// exportDialog выгружает один диалог: создает каталоги, пишет расшифровку
// и скачивает вложения согласно опциям задания.
func (p *Pipeline) exportDialog(ctx context.Context, client ports.ProtocolClient, dialog domain.Dialog, index, total int, job domain.ExportJob, log *slog.Logger) (err error) {
	title := SanitizeTitle(dialog.Title)
	if title == "" {
		title = fmt.Sprintf("dialog_%d", dialog.ID)
	}
	dir := filepath.Join(p.root, title)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("не удалось создать каталог диалога: %w", err)
	}

	// Подкаталоги включенных медиа-классов создаются заранее: пустой
	// каталог означает "искали, но ничего не нашли".
	for _, subdir := range enabledSubdirs(job.Options) {
		if err := os.MkdirAll(filepath.Join(dir, subdir), 0o755); err != nil {
			return fmt.Errorf("не удалось создать каталог вложений: %w", err)
		}
	}

	var transcript *os.File
	if job.Options.Text {
		// Каждый запуск перезаписывает расшифровку предыдущего.
		transcript, err = os.Create(filepath.Join(dir, transcriptName))
		if err != nil {
			return fmt.Errorf("не удалось создать файл расшифровки: %w", err)
		}
		defer func() {
			if closeErr := transcript.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
	}

	status := "Exporting: " + title
	p.sink.OnExportProgress(index, total, status+"...")

	count := 0
	err = client.IterMessages(ctx, dialog.Entity, func(msg domain.Message) error {
		if job.FilterSenderID != nil && msg.SenderID != *job.FilterSenderID {
			return nil
		}

		if job.Options.Text && msg.Text != "" {
			sender := msg.SenderName
			if sender == "" {
				sender = unknownSender
			}
			line := fmt.Sprintf("[%s] %s: %s\n", msg.Date.Format(timeLayout), sender, msg.Text)
			if _, err := transcript.WriteString(line); err != nil {
				return fmt.Errorf("не удалось записать расшифровку: %w", err)
			}
		}

		if subdir := routeMedia(msg.Media, job.Options); subdir != "" {
			mediaDir := filepath.Join(dir, subdir)
			if err := client.DownloadMedia(ctx, msg, mediaDir); err != nil {
				// Сбой одного вложения не прерывает диалог.
				log.Warn("Media download failed, skipping", "message_id", msg.ID, "error", err)
			}
		}

		count++
		if count%p.progressEvery == 0 {
			p.sink.OnExportProgress(index, total, fmt.Sprintf("%s (%d messages)", status, count))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("не удалось обработать сообщения: %w", err)
	}

	log.Info("Dialog exported", "dialog_id", dialog.ID, "messages", count)
	return nil
}

// routeMedia выбирает подкаталог для вложения согласно опциям. У вложения
// не бывает двух назначений: голосовое сообщение не попадает ни в files,
// ни в videos, даже когда соответствующие опции включены.
func routeMedia(media *domain.MediaInfo, options domain.ExportOptions) string {
	if media == nil {
		return ""
	}
	switch {
	case media.Photo:
		if options.Photos {
			return subdirPhotos
		}
	case media.Voice:
		if options.Voice {
			return subdirVoice
		}
	case media.Video:
		if options.Video {
			return subdirVideos
		}
	case media.Document:
		if options.Files {
			return subdirFiles
		}
	}
	return ""
}

// enabledSubdirs возвращает подкаталоги включенных медиа-классов.
func enabledSubdirs(options domain.ExportOptions) []string {
	var subdirs []string
	if options.Photos {
		subdirs = append(subdirs, subdirPhotos)
	}
	if options.Voice {
		subdirs = append(subdirs, subdirVoice)
	}
	if options.Video {
		subdirs = append(subdirs, subdirVideos)
	}
	if options.Files {
		subdirs = append(subdirs, subdirFiles)
	}
	return subdirs
}

// SanitizeTitle выводит безопасное имя каталога из заголовка диалога:
// остаются только буквы, цифры и пробелы, края обрезаются.
func SanitizeTitle(title string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			return r
		}
		return -1
	}, title)
	return strings.TrimSpace(cleaned)
}

// findDialog ищет диалог в снимке по идентификатору.
func findDialog(dialogs []domain.Dialog, id int64) (domain.Dialog, bool) {
	for _, d := range dialogs {
		if d.ID == id {
			return d, true
		}
	}
	return domain.Dialog{}, false
}
