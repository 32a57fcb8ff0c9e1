package telegram

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gotd/td/tg"

	"telegram-history-exporter/internal/domain"
)

// extractMedia извлекает факты о вложении сообщения и ссылку на файл для
// скачивания. Сообщения без поддерживаемого вложения дают (nil, nil).
func extractMedia(msg *tg.Message) (*domain.MediaInfo, any) {
	media, ok := msg.GetMedia()
	if !ok {
		return nil, nil
	}

	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		pc, ok := m.GetPhoto()
		if !ok {
			return nil, nil
		}
		photo, ok := pc.(*tg.Photo)
		if !ok {
			return nil, nil
		}
		info := &domain.MediaInfo{
			Photo:    true,
			Filename: fmt.Sprintf("photo_%d.jpg", msg.ID),
		}
		loc := &tg.InputPhotoFileLocation{
			ID:            photo.ID,
			AccessHash:    photo.AccessHash,
			FileReference: photo.FileReference,
			ThumbSize:     largestPhotoSize(photo.Sizes),
		}
		return info, loc

	case *tg.MessageMediaDocument:
		dc, ok := m.GetDocument()
		if !ok {
			return nil, nil
		}
		doc, ok := dc.(*tg.Document)
		if !ok {
			return nil, nil
		}

		info := &domain.MediaInfo{Document: true}
		filename := ""
		for _, attr := range doc.Attributes {
			switch a := attr.(type) {
			case *tg.DocumentAttributeAudio:
				if a.Voice {
					info.Voice = true
				}
			case *tg.DocumentAttributeVideo:
				info.Video = true
			case *tg.DocumentAttributeFilename:
				filename = a.FileName
			}
		}
		info.Filename = documentFilename(msg.ID, filename, info)

		loc := &tg.InputDocumentFileLocation{
			ID:            doc.ID,
			AccessHash:    doc.AccessHash,
			FileReference: doc.FileReference,
		}
		return info, loc
	}

	return nil, nil
}

// largestPhotoSize выбирает тип самого крупного размера фотографии.
// Telegram отдает размеры по возрастанию.
func largestPhotoSize(sizes []tg.PhotoSizeClass) string {
	thumb := ""
	for _, s := range sizes {
		switch size := s.(type) {
		case *tg.PhotoSize:
			thumb = size.Type
		case *tg.PhotoSizeProgressive:
			thumb = size.Type
		}
	}
	return thumb
}

// documentFilename выбирает имя файла вложения. Имя из атрибутов получает
// префикс с идентификатором сообщения, чтобы избежать коллизий в каталоге.
func documentFilename(msgID int, attrName string, info *domain.MediaInfo) string {
	if attrName != "" {
		return fmt.Sprintf("%d_%s", msgID, attrName)
	}
	switch {
	case info.Voice:
		return fmt.Sprintf("voice_%d.oga", msgID)
	case info.Video:
		return fmt.Sprintf("video_%d.mp4", msgID)
	}
	return fmt.Sprintf("file_%d.bin", msgID)
}

// DownloadMedia скачивает вложение сообщения в destDir под именем,
// выбранным при классификации.
func (c *Client) DownloadMedia(ctx context.Context, msg domain.Message, destDir string) error {
	loc, ok := msg.Ref.(tg.InputFileLocationClass)
	if !ok || msg.Media == nil {
		return fmt.Errorf("message %d carries no downloadable media", msg.ID)
	}

	path := filepath.Join(destDir, msg.Media.Filename)
	c.log.Debug("Downloading media", "message_id", msg.ID, "path", path)
	if _, err := c.dl.Download(c.raw, loc).ToPath(ctx, path); err != nil {
		return fmt.Errorf("download media: %w", err)
	}
	return nil
}
