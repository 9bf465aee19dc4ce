// Package session — авторизованные сессии чата, единственный разделяемый
// мутабельный ресурс бота. Сессия связывает chat-идентификатор Telegram с
// токеном Identity API и минимальным кэшем профиля.
//
// Контракт хранилища: Put перезаписывает сессию атомарно (читатель не видит
// полузаписанного значения), Get после успешного Put возвращает записанное
// (read-your-writes), Delete идемпотентен. Реализации: Redis (продакшен,
// несколько инстансов), bbolt (одиночный узел), память (тесты).
package session

import (
	"context"
	"errors"
)

// ErrNotFound возвращается Get, когда сессии для пользователя нет.
// Это обычное состояние (пользователь не залогинен), не сбой хранилища.
var ErrNotFound = errors.New("session not found")

// Session — авторизованная сессия одного пользователя чата.
// AuthToken — секрет: в логи и исходящие сообщения не попадает.
type Session struct {
	UserID      int64  `json:"user_id"`
	ProfileID   string `json:"profile_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AuthToken   string `json:"auth_token"`
}

// Store — контракт хранилища сессий. На пользователя — не больше одной
// сессии; ключ — chat-идентификатор.
type Store interface {
	// Exists сообщает, есть ли сессия пользователя, не читая её целиком.
	Exists(ctx context.Context, userID int64) (bool, error)
	// Get возвращает сессию или ErrNotFound.
	Get(ctx context.Context, userID int64) (Session, error)
	// Put записывает сессию, атомарно заменяя прежнюю.
	Put(ctx context.Context, s Session) error
	// Delete удаляет сессию; отсутствие записи — не ошибка.
	Delete(ctx context.Context, userID int64) error
	// Close освобождает ресурсы бэкенда.
	Close() error
}
