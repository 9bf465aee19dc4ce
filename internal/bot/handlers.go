package bot

import (
	"context"

	"go.uber.org/zap"

	"apexid-bot/internal/domain/session"
	"apexid-bot/internal/infra/logger"

	"github.com/go-faster/errors"
)

const (
	msgNotAuthorized  = "You are not authorized yet. Please, /login or /register."
	msgLoggedOut      = "You have been successfully logged out!"
	msgGenericFailure = "Something went wrong. Please, try again."

	msgProfileFailure       = "Something went wrong while fetching your profile. Please, try again."
	msgNotificationsFailure = "Something went wrong while fetching your notifications. Please, try again."
	msgCabinetFailure       = "Something went wrong while fetching your cabinet. Please, try again."
	msgDocumentsFailure     = "Something went wrong while fetching your documents. Please, try again."
	msgDocumentFailure      = "Something went wrong while fetching the document."

	msgNoNotifications = "You don't have any notifications."
	msgNoApplications  = "You don't have any applications."
	msgNoDocuments     = "You don't have any documents."

	msgPickDocument = "Please select the document you want to get:"
	msgDocumentSent = "Document is sent to you."
)

func (r *Router) handleStart(ctx context.Context, ev Event) {
	authorized, err := r.sessions.Exists(ctx, ev.UserID)
	if err != nil {
		logger.Error("session lookup failed", zap.Int64("user_id", ev.UserID), zap.Error(err))
	}
	r.reply(ctx, ev.ChatID, renderStart(ev.UserName, authorized))
}

// handleLogout удаляет сессию. Повторный выход без сессии отвечает тем же
// сообщением.
func (r *Router) handleLogout(ctx context.Context, ev Event) {
	if err := r.sessions.Delete(ctx, ev.UserID); err != nil && !errors.Is(err, session.ErrNotFound) {
		logger.Error("session delete failed", zap.Int64("user_id", ev.UserID), zap.Error(err))
		r.reply(ctx, ev.ChatID, msgGenericFailure)
		return
	}
	r.reply(ctx, ev.ChatID, msgLoggedOut)
}

func (r *Router) handleProfile(ctx context.Context, ev Event) {
	sess, ok := r.requireSession(ctx, ev)
	if !ok {
		return
	}
	profile, err := r.api.GetProfile(ctx, sess.AuthToken)
	if err != nil {
		logger.Warn("profile fetch failed", zap.Int64("user_id", ev.UserID), zap.Error(err))
		r.reply(ctx, ev.ChatID, msgProfileFailure)
		return
	}
	r.reply(ctx, ev.ChatID, renderProfile(profile))
}

func (r *Router) handleNotifications(ctx context.Context, ev Event, args string) {
	sess, ok := r.requireSession(ctx, ev)
	if !ok {
		return
	}
	list, err := r.api.GetNotifications(ctx, sess.AuthToken)
	if err != nil {
		logger.Warn("notifications fetch failed", zap.Int64("user_id", ev.UserID), zap.Error(err))
		r.reply(ctx, ev.ChatID, msgNotificationsFailure)
		return
	}
	if len(list) == 0 {
		r.reply(ctx, ev.ChatID, msgNoNotifications)
		return
	}
	r.reply(ctx, ev.ChatID, renderNotifications(list, args == "all"))
}

func (r *Router) handleCabinet(ctx context.Context, ev Event) {
	sess, ok := r.requireSession(ctx, ev)
	if !ok {
		return
	}
	apps, err := r.api.Cabinet(ctx, sess.AuthToken)
	if err != nil {
		logger.Warn("cabinet fetch failed", zap.Int64("user_id", ev.UserID), zap.Error(err))
		r.reply(ctx, ev.ChatID, msgCabinetFailure)
		return
	}
	if len(apps) == 0 {
		r.reply(ctx, ev.ChatID, msgNoApplications)
		return
	}
	r.reply(ctx, ev.ChatID, renderCabinet(apps))
}

func (r *Router) handleDocuments(ctx context.Context, ev Event) {
	sess, ok := r.requireSession(ctx, ev)
	if !ok {
		return
	}
	refs, err := r.api.GetDocuments(ctx, sess.AuthToken)
	if err != nil {
		logger.Warn("documents fetch failed", zap.Int64("user_id", ev.UserID), zap.Error(err))
		r.reply(ctx, ev.ChatID, msgDocumentsFailure)
		return
	}
	if len(refs) == 0 {
		r.reply(ctx, ev.ChatID, msgNoDocuments)
		return
	}
	buttons := make([]Button, 0, len(refs))
	for _, ref := range refs {
		buttons = append(buttons, Button{Text: ref.Metadata.DocumentName, Data: "document_" + ref.ID})
	}
	if err := r.out.SendKeyboard(ctx, ev.ChatID, msgPickDocument, buttons); err != nil {
		logger.Error("documents keyboard failed", zap.Int64("chat_id", ev.ChatID), zap.Error(err))
	}
}

// handleDocumentCallback заменяет сообщение со списком на выбранный документ
// и кнопку запроса кода проверки.
func (r *Router) handleDocumentCallback(ctx context.Context, ev Event, documentID string) {
	sess, ok := r.requireSession(ctx, ev)
	if !ok {
		return
	}
	doc, err := r.api.GetDocument(ctx, sess.AuthToken, documentID)
	if err != nil {
		logger.Warn("document fetch failed", zap.String("document_id", documentID), zap.Error(err))
		if err := r.out.EditHTML(ctx, ev.ChatID, ev.CallbackMessageID, msgDocumentFailure); err != nil {
			logger.Error("document failure edit failed", zap.Error(err))
		}
		return
	}
	if err := r.out.AnswerCallback(ctx, ev.CallbackID, msgDocumentSent); err != nil {
		logger.Warn("callback answer failed", zap.Error(err))
	}
	buttons := []Button{{Text: "Request verification code", Data: "verification_" + doc.ID}}
	if err := r.out.EditKeyboard(ctx, ev.ChatID, ev.CallbackMessageID, renderDocument(doc), buttons); err != nil {
		logger.Error("document edit failed", zap.Error(err))
	}
}

func (r *Router) handleVerificationCallback(ctx context.Context, ev Event, documentID string) {
	sess, ok := r.requireSession(ctx, ev)
	if !ok {
		return
	}
	if err := r.verifier.IssueChallenge(ctx, ev.ChatID, ev.CallbackMessageID, sess.AuthToken, documentID); err != nil {
		logger.Error("verification challenge failed", zap.String("document_id", documentID), zap.Error(err))
	}
}
