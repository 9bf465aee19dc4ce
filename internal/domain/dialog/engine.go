// Файл engine.go — движок диалогов. Хранит разговорные состояния всех
// пользователей, принимает очередные реплики и на терминальном шаге вызывает
// Identity API и хранилище сессий. Результат каждой операции — готовый текст
// ответа пользователю; внутренние ошибки логируются здесь и наружу не выходят.

package dialog

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"apexid-bot/internal/domain/session"
	"apexid-bot/internal/identity"
	"apexid-bot/internal/infra/logger"
	"apexid-bot/internal/infra/markup"
)

// Реплики завершения и отказов. Совпадают с публичным поведением бота,
// тексты менять синхронно с документацией.
const (
	msgAlreadyAuthorized  = "You are already authorized!"
	msgCancelled          = "Cancelled."
	msgInvalidCredentials = "Invalid email or password. Please, try again."
	msgGenericFailure     = "Something went wrong. Please, try again."
	msgProfileFailure     = "Something went wrong while fetching your profile. Please, try again."
	msgRegistered         = "You have been successfully registered!\n" +
		"Please, /login and then use /apply as at the moment your account is not active."
)

// IdentityAPI — операции Identity API, нужные движку на терминальных шагах.
// Сужен до трёх вызовов, чтобы в тестах подставлять заглушку.
type IdentityAPI interface {
	Login(ctx context.Context, email, password string) (string, error)
	GetProfile(ctx context.Context, token string) (identity.Profile, error)
	Register(ctx context.Context, reg identity.Registration) error
}

// Engine — потокобезопасный реестр диалогов. Сериализацию событий одного
// пользователя обеспечивает вызывающий (роутер); mu защищает карту состояний
// от конкурентного доступа разных пользователей.
type Engine struct {
	mu       sync.Mutex
	states   map[int64]*State
	api      IdentityAPI
	sessions session.Store
}

// NewEngine создаёт движок поверх клиента API и хранилища сессий.
func NewEngine(api IdentityAPI, sessions session.Store) *Engine {
	return &Engine{
		states:   make(map[int64]*State),
		api:      api,
		sessions: sessions,
	}
}

// StartLogin начинает флоу входа. Если сессия уже есть — отказ без каких-либо
// мутаций состояния и без обращений к API.
func (e *Engine) StartLogin(ctx context.Context, userID int64) string {
	return e.start(ctx, userID, FlowLogin)
}

// StartRegister начинает флоу регистрации с тем же входным условием.
func (e *Engine) StartRegister(ctx context.Context, userID int64) string {
	return e.start(ctx, userID, FlowRegister)
}

// start — общий вход обоих флоу: guard по сессии, создание State, первая
// подсказка.
func (e *Engine) start(ctx context.Context, userID int64, kind FlowKind) string {
	exists, err := e.sessions.Exists(ctx, userID)
	if err != nil {
		logger.Error("session lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		return msgGenericFailure
	}
	if exists {
		return msgAlreadyAuthorized
	}

	st := &State{Flow: kind, Fields: make(map[string]string)}

	e.mu.Lock()
	e.states[userID] = st
	e.mu.Unlock()

	return prompts[st.current()]
}

// Active сообщает, ведёт ли пользователь диалог. Роутер по этому признаку
// решает, куда направить не-командный текст.
func (e *Engine) Active(userID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.states[userID]
	return ok
}

// Cancel безусловно снимает активный флоу. Возвращает подтверждение и признак
// того, что флоу был; отмена без флоу — тихий no-op (ok=false, роутер молчит).
func (e *Engine) Cancel(userID int64) (reply string, ok bool) {
	e.mu.Lock()
	st, exists := e.states[userID]
	delete(e.states, userID)
	e.mu.Unlock()

	if !exists {
		return "", false
	}
	logger.Debug("flow cancelled", zap.Int64("user_id", userID), zap.Int("flow", int(st.Flow)))
	return msgCancelled, true
}

// Advance принимает очередную реплику активного флоу: текст — значение
// текущего шага как есть. Возвращает handled=false, когда флоу нет и роутер
// должен проигнорировать сообщение. На последнем шаге состояние снимается
// до сетевых вызовов: при любом исходе пользователь не остаётся в
// полузаполненном флоу, повторная попытка начинается с первого шага.
func (e *Engine) Advance(ctx context.Context, userID int64, text string) (reply string, handled bool) {
	e.mu.Lock()
	st, exists := e.states[userID]
	if !exists {
		e.mu.Unlock()
		return "", false
	}

	done := st.record(text)
	if !done {
		next := prompts[st.current()]
		e.mu.Unlock()
		return next, true
	}

	delete(e.states, userID)
	e.mu.Unlock()

	switch st.Flow {
	case FlowRegister:
		return e.completeRegister(ctx, st.Fields), true
	default:
		return e.completeLogin(ctx, userID, st.Fields), true
	}
}

// completeLogin — терминальный шаг входа: Login → GetProfile → запись сессии.
// Отказ на любом этапе завершает флоу с собранных полей начисто.
func (e *Engine) completeLogin(ctx context.Context, userID int64, fields map[string]string) string {
	email := fields[fieldEmail]

	token, err := e.api.Login(ctx, email, fields[fieldPassword])
	if err != nil {
		if _, rejected := identity.AsAPIError(err); rejected {
			return msgInvalidCredentials
		}
		logger.Error("signin failed", zap.Int64("user_id", userID), zap.Error(err))
		return msgGenericFailure
	}
	if token == "" {
		// 2xx без токена: формально успех, фактически войти нечем.
		return msgGenericFailure
	}

	profile, err := e.api.GetProfile(ctx, token)
	if err != nil {
		if _, rejected := identity.AsAPIError(err); !rejected {
			logger.Error("profile fetch failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		return msgProfileFailure
	}

	err = e.sessions.Put(ctx, session.Session{
		UserID:      userID,
		ProfileID:   profile.ID,
		Email:       email,
		DisplayName: profile.FirstName,
		AuthToken:   token,
	})
	if err != nil {
		logger.Error("session write failed", zap.Int64("user_id", userID), zap.Error(err))
		return msgGenericFailure
	}

	logger.Info("user signed in", zap.Int64("user_id", userID))
	return "Welcome to the system, " + markup.Bold(profile.FirstName) + "!"
}

// completeRegister — терминальный шаг регистрации: один вызов Register.
// Автологина нет: аккаунт ещё не активирован.
func (e *Engine) completeRegister(ctx context.Context, fields map[string]string) string {
	reg := identity.Registration{
		Email:       fields[fieldEmail],
		Password:    fields[fieldPassword],
		FirstName:   fields[fieldFirstName],
		LastName:    fields[fieldLastName],
		PhoneNumber: fields[fieldPhoneNumber],
		Gender:      fields[fieldSex],
		Nationality: fields[fieldNationality],
		Born: identity.Born{
			Place: fields[fieldBornPlace],
			Date:  fields[fieldBornDate],
		},
	}

	if err := e.api.Register(ctx, reg); err != nil {
		if apiErr, rejected := identity.AsAPIError(err); rejected {
			logger.Warn("signup rejected", zap.Int("status", apiErr.Status))
		} else {
			logger.Error("signup failed", zap.Error(err))
		}
		return msgGenericFailure
	}
	return msgRegistered
}
