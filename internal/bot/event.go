// Package bot разбирает входящие события чата и направляет их в сценарии:
// командный слой, диалоговые формы, просмотр данных кабинета и проверку
// документов по QR-коду.
package bot

// EventKind различает формы входящего события.
type EventKind int

const (
	// EventText - обычное текстовое сообщение, включая команды.
	EventText EventKind = iota
	// EventPhoto - сообщение с фотографией (кандидат на скан QR-кода).
	EventPhoto
	// EventCallback - нажатие inline-кнопки.
	EventCallback
)

// Event - нормализованное событие чата, уже освобождённое от деталей
// транспорта. Заполняются только поля, осмысленные для данного Kind.
type Event struct {
	Kind EventKind

	UserID    int64
	ChatID    int64
	MessageID int

	// Отображаемое имя отправителя, используется в приветствии.
	UserName string

	// Текст сообщения (EventText).
	Text string

	// Идентификатор файла наибольшей версии фотографии (EventPhoto).
	PhotoFileID string

	// Данные нажатой кнопки (EventCallback).
	CallbackID        string
	CallbackData      string
	CallbackMessageID int
}

// Button - кнопка inline-клавиатуры: подпись и полезная нагрузка callback.
type Button struct {
	Text string
	Data string
}
