// Package identity — клиент внешнего Identity API.
// Файл types.go описывает полезные нагрузки девяти операций и таксономию
// ошибок: не-2xx ответы становятся *APIError, сетевые сбои остаются обычными
// обёрнутыми ошибками. Клиент — чистый слой трансляции: ни ретраев, ни кэшей.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Registration — полный набор полей анкеты регистрации.
// Поля передаются в API как есть, валидность содержимого решает сервер.
type Registration struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Gender      string `json:"gender"`
	Nationality string `json:"nationality"`
	Born        Born   `json:"born"`
}

// Born — вложенный блок места и даты рождения в анкете.
type Born struct {
	Place string `json:"place"`
	Date  string `json:"date"`
}

// Profile — минимальный срез профиля, который использует бот.
type Profile struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
}

// Notification — одно уведомление пользователя. CreatedAt приходит как
// ISO-8601 строка с хвостовой 'Z'; сортировка по ней лексикографична.
type Notification struct {
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
	CreatedBy string `json:"created_by"`
}

// Application — заявка в личном кабинете.
type Application struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// DocumentRef — элемент списка документов (без содержимого).
type DocumentRef struct {
	ID       string           `json:"_id"`
	Metadata DocumentMetadata `json:"metadata"`
}

// DocumentMetadata содержит человекочитаемое имя документа.
type DocumentMetadata struct {
	DocumentName string `json:"document_name"`
}

// Document — полный документ: идентификатор, имя и упорядоченные поля данных.
// Data сохраняет порядок полей из ответа сервера (см. ordered.go), чтобы
// отрисованный документ совпадал с тем, что отдаёт API.
type Document struct {
	ID   string
	Name string
	Data []Field
}

// Field — пара ключ/значение с сохранённым порядком. Value — строка, число
// (json.Number), bool, nil либо вложенный []Field для объекта.
type Field struct {
	Key   string
	Value any
}

// APIError — отказ Identity API: любой ответ вне 2xx. Body хранится как есть
// для извлечения деталей; токены в теле не встречаются, логировать безопасно
// только статус.
type APIError struct {
	Status int
	Body   []byte
}

// Error реализует error. Тело в сообщение не включается: оно может быть
// большим и попадает к пользователю только через Detail().
func (e *APIError) Error() string {
	return fmt.Sprintf("identity api: unexpected status %d", e.Status)
}

// Detail извлекает поле detail из JSON-тела отказа, если оно есть.
// Пустая строка — детали нет или тело не является JSON-объектом.
func (e *APIError) Detail() string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(e.Body, &payload); err != nil {
		return ""
	}
	return payload.Detail
}

// AsAPIError возвращает *APIError из цепочки ошибок, если отказ пришёл от API.
// Ложный ok означает транспортный сбой (сеть, таймаут, битый ответ).
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
