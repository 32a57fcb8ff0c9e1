package domain

import (
	"strings"
	"time"
)

// Credentials содержит учетные данные Telegram API для входа.
type Credentials struct {
	APIID   int    `json:"api_id"`
	APIHash string `json:"api_hash"`
	Phone   string `json:"phone"`
}

// UserProfile представляет профиль авторизованного пользователя.
type UserProfile struct {
	ID          int64
	DisplayName string
	Phone       string
}

// Dialog представляет один диалог (личный чат, группу или канал).
// Entity — непрозрачный дескриптор пира, принадлежащий протокольному
// клиенту; он действителен только пока жива текущая сессия.
type Dialog struct {
	ID        int64
	Title     string
	IsGroup   bool
	IsChannel bool
	Entity    any
}

// Participant представляет участника диалога.
type Participant struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	Deleted   bool
}

// noNamePlaceholder используется, когда у участника нет ни имени, ни фамилии.
const noNamePlaceholder = "No name"

// DisplayName составляет отображаемое имя участника из имени и фамилии,
// добавляя username в скобках, если он задан. Для пустого имени
// возвращается заглушка.
func (p Participant) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		name = noNamePlaceholder
	}
	if p.Username != "" {
		name += " (@" + p.Username + ")"
	}
	return name
}

// MediaInfo содержит факты о вложении сообщения, извлеченные протокольным
// клиентом. Классификация здесь, маршрутизация по каталогам — в конвейере
// экспорта.
type MediaInfo struct {
	Photo    bool
	Voice    bool
	Video    bool
	Document bool
	Filename string
}

// Message представляет одно сообщение диалога в том виде, в котором его
// отдает протокольный клиент. Ref — непрозрачная ссылка на файл вложения,
// используемая при скачивании.
type Message struct {
	ID         int
	SenderID   int64
	SenderName string
	Text       string
	Date       time.Time
	Media      *MediaInfo
	Ref        any
}

// ExportOptions — набор независимых флагов, каждый из которых включает
// экспорт одного класса содержимого. Флаги не исключают друг друга.
type ExportOptions struct {
	Text   bool
	Photos bool
	Voice  bool
	Video  bool
	Files  bool
}

// MediaEnabled сообщает, включен ли хотя бы один медиа-класс.
func (o ExportOptions) MediaEnabled() bool {
	return o.Photos || o.Voice || o.Video || o.Files
}

// ExportJob описывает один запуск экспорта: упорядоченный список
// идентификаторов диалогов, набор опций и необязательный фильтр по
// отправителю. Задание не сохраняется и полностью потребляется конвейером.
type ExportJob struct {
	DialogIDs      []int64
	Options        ExportOptions
	FilterSenderID *int64
}

// ExportProgress — разовое уведомление о ходе экспорта.
type ExportProgress struct {
	Index   int
	Total   int
	Message string
}
