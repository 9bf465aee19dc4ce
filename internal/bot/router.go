package bot

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"apexid-bot/internal/domain/dialog"
	"apexid-bot/internal/domain/session"
	"apexid-bot/internal/identity"
	"apexid-bot/internal/infra/concurrency"
	"apexid-bot/internal/infra/logger"

	"github.com/go-faster/errors"
)

// IdentityAPI - операции чтения Identity API, нужные обработчикам команд.
type IdentityAPI interface {
	GetProfile(ctx context.Context, token string) (identity.Profile, error)
	GetNotifications(ctx context.Context, token string) ([]identity.Notification, error)
	Cabinet(ctx context.Context, token string) ([]identity.Application, error)
	GetDocuments(ctx context.Context, token string) ([]identity.DocumentRef, error)
	GetDocument(ctx context.Context, token, id string) (identity.Document, error)
}

// Verifier - процесс проверки документов: скан входящих QR-кодов и выпуск
// собственного кода по кнопке.
type Verifier interface {
	HandleScan(ctx context.Context, chatID int64, photo []byte) error
	IssueChallenge(ctx context.Context, chatID int64, messageID int, token, documentID string) error
}

// Outbox - исходящая сторона чата, реализуется транспортным адаптером.
type Outbox interface {
	SendHTML(ctx context.Context, chatID int64, text string) (int, error)
	SendKeyboard(ctx context.Context, chatID int64, text string, buttons []Button) error
	EditHTML(ctx context.Context, chatID int64, messageID int, text string) error
	EditKeyboard(ctx context.Context, chatID int64, messageID int, text string, buttons []Button) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	DownloadPhoto(ctx context.Context, fileID string) ([]byte, error)
}

// Router направляет нормализованные события в обработчики. События одного
// пользователя обрабатываются строго последовательно, разных - параллельно.
type Router struct {
	sessions session.Store
	dialogs  *dialog.Engine
	api      IdentityAPI
	verifier Verifier
	out      Outbox
	locks    *concurrency.KeyedMutex
}

func NewRouter(sessions session.Store, dialogs *dialog.Engine, api IdentityAPI, verifier Verifier, out Outbox) *Router {
	return &Router{
		sessions: sessions,
		dialogs:  dialogs,
		api:      api,
		verifier: verifier,
		out:      out,
		locks:    concurrency.NewKeyedMutex(),
	}
}

// Dispatch обрабатывает одно событие под пер-пользовательской блокировкой.
func (r *Router) Dispatch(ctx context.Context, ev Event) {
	unlock := r.locks.Lock(ev.UserID)
	defer unlock()

	switch ev.Kind {
	case EventText:
		r.handleText(ctx, ev)
	case EventPhoto:
		r.handlePhoto(ctx, ev)
	case EventCallback:
		r.handleCallback(ctx, ev)
	}
}

func (r *Router) handleText(ctx context.Context, ev Event) {
	cmd, args := splitCommand(ev.Text)
	if cmd == "" {
		// Слово cancel без косой черты тоже прерывает активную форму.
		if strings.EqualFold(strings.TrimSpace(ev.Text), "cancel") {
			if reply, ok := r.dialogs.Cancel(ev.UserID); ok {
				r.reply(ctx, ev.ChatID, reply)
			}
			return
		}
		if reply, handled := r.dialogs.Advance(ctx, ev.UserID, ev.Text); handled {
			r.reply(ctx, ev.ChatID, reply)
		}
		return
	}

	switch cmd {
	case "start":
		r.handleStart(ctx, ev)
	case "help":
		r.reply(ctx, ev.ChatID, helpText)
	case "login":
		r.reply(ctx, ev.ChatID, r.dialogs.StartLogin(ctx, ev.UserID))
	case "register":
		r.reply(ctx, ev.ChatID, r.dialogs.StartRegister(ctx, ev.UserID))
	case "logout":
		r.handleLogout(ctx, ev)
	case "cancel":
		if reply, ok := r.dialogs.Cancel(ev.UserID); ok {
			r.reply(ctx, ev.ChatID, reply)
		}
	case "profile":
		r.handleProfile(ctx, ev)
	case "notifications":
		r.handleNotifications(ctx, ev, args)
	case "cabinet":
		r.handleCabinet(ctx, ev)
	case "documents":
		r.handleDocuments(ctx, ev)
	default:
		logger.Debug("unknown command ignored", zap.String("command", cmd))
	}
}

func (r *Router) handlePhoto(ctx context.Context, ev Event) {
	photo, err := r.out.DownloadPhoto(ctx, ev.PhotoFileID)
	if err != nil {
		logger.Error("photo download failed", zap.Int64("chat_id", ev.ChatID), zap.Error(err))
		r.reply(ctx, ev.ChatID, msgGenericFailure)
		return
	}
	if err := r.verifier.HandleScan(ctx, ev.ChatID, photo); err != nil {
		logger.Error("scan handling failed", zap.Int64("chat_id", ev.ChatID), zap.Error(err))
	}
}

func (r *Router) handleCallback(ctx context.Context, ev Event) {
	switch {
	case strings.HasPrefix(ev.CallbackData, "document_"):
		r.handleDocumentCallback(ctx, ev, strings.TrimPrefix(ev.CallbackData, "document_"))
	case strings.HasPrefix(ev.CallbackData, "verification_"):
		r.handleVerificationCallback(ctx, ev, strings.TrimPrefix(ev.CallbackData, "verification_"))
	default:
		logger.Debug("unknown callback ignored", zap.String("data", ev.CallbackData))
	}
}

// requireSession достаёт сессию пользователя либо отвечает подсказкой об
// авторизации. Охраняет все обработчики, ходящие в приватный API.
func (r *Router) requireSession(ctx context.Context, ev Event) (session.Session, bool) {
	sess, err := r.sessions.Get(ctx, ev.UserID)
	if err == nil {
		return sess, true
	}
	if !errors.Is(err, session.ErrNotFound) {
		logger.Error("session lookup failed", zap.Int64("user_id", ev.UserID), zap.Error(err))
	}
	if ev.Kind == EventCallback {
		if err := r.out.AnswerCallback(ctx, ev.CallbackID, msgNotAuthorized); err != nil {
			logger.Warn("callback answer failed", zap.Error(err))
		}
	} else {
		r.reply(ctx, ev.ChatID, msgNotAuthorized)
	}
	return session.Session{}, false
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) {
	if _, err := r.out.SendHTML(ctx, chatID, text); err != nil {
		logger.Error("reply failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// splitCommand выделяет имя команды и хвост аргументов. Для обычного текста
// возвращает пустое имя. Суффикс @botname отбрасывается.
func splitCommand(text string) (cmd, args string) {
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	rest := strings.TrimPrefix(text, "/")
	cmd = rest
	if i := strings.IndexAny(rest, " \n"); i >= 0 {
		cmd, args = rest[:i], strings.TrimSpace(rest[i+1:])
	}
	if j := strings.IndexByte(cmd, '@'); j >= 0 {
		cmd = cmd[:j]
	}
	return strings.ToLower(cmd), args
}
