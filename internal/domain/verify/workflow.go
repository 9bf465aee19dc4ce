// Package verify — рабочий процесс подтверждения владения документом.
// Два независимых направления:
//   - входящее: пользователь присылает фотографию чужого QR-кода, бот
//     проверяет форму полезной нагрузки, обменивает код у Identity API на
//     запись документа и показывает её с автоудалением через окно действия;
//   - исходящее: по нажатию кнопки бот выпускает код подтверждения своего
//     документа и отдаёт его QR-кодом с явным сроком годности.
//
// Процесс не отслеживает погашение кода: его гасит внешний проверяющий
// напрямую у Identity API. Здесь только выпуск и заявленный срок.
package verify

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"apexid-bot/internal/identity"
	"apexid-bot/internal/infra/concurrency"
	"apexid-bot/internal/infra/logger"
	"apexid-bot/internal/infra/markup"
	"apexid-bot/internal/infra/qrcode"

	"github.com/go-faster/errors"
)

// ValidityWindow — срок действия кода подтверждения и время жизни сообщения
// с результатом проверки. Значение заявляется пользователю; сам срок кода
// обеспечивает Identity API.
const ValidityWindow = 180 * time.Second

// codePattern — форма допустимой полезной нагрузки QR: идентификатор
// документа, 24 символа нижнего hex. Всё прочее отбрасывается до сети.
var codePattern = regexp.MustCompile(`^[a-f0-9]{24}$`)

// Реплики входящего направления.
const (
	msgNoCode       = "No QR code detected."
	msgInvalidCode  = "Invalid QR code."
	msgVerifyFailed = "Verification failed."
	msgIssueFailed  = "Something went wrong while requesting the verification code."

	captionChallenge = "Verification QR code.\nPlease, scan it with your device.\n\n" +
		"This QR code is valid for 3 minutes."
	footerVerified = "Document is valid and verified.\nThis message will be deleted in 3 minutes."
)

// API — операции Identity API, нужные процессу.
type API interface {
	VerifyCode(ctx context.Context, code string) ([]identity.Field, error)
	RequestVerificationCode(ctx context.Context, token, documentID string) (string, error)
}

// Codec — QR-кодек: распознавание присланной фотографии и выпуск PNG.
type Codec interface {
	DecodeBytes(data []byte) (string, error)
	EncodePNG(text string) ([]byte, error)
}

// Outbox — минимальный срез исходящего транспорта, нужный процессу.
type Outbox interface {
	// SendHTML отправляет сообщение и возвращает его идентификатор.
	SendHTML(ctx context.Context, chatID int64, text string) (int, error)
	// SendPhoto отправляет PNG с подписью.
	SendPhoto(ctx context.Context, chatID int64, photo []byte, caption string) error
	// EditHTML заменяет текст существующего сообщения, снимая клавиатуру.
	EditHTML(ctx context.Context, chatID int64, messageID int, text string) error
	// ClearKeyboard убирает inline-клавиатуру, не трогая текст.
	ClearKeyboard(ctx context.Context, chatID int64, messageID int) error
	// DeleteMessage удаляет сообщение.
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// Workflow связывает кодек, Identity API, транспорт и планировщик удаления.
type Workflow struct {
	api     API
	codec   Codec
	out     Outbox
	retract *concurrency.Scheduler
}

// NewWorkflow собирает процесс верификации.
func NewWorkflow(api API, codec Codec, out Outbox, retract *concurrency.Scheduler) *Workflow {
	return &Workflow{api: api, codec: codec, out: out, retract: retract}
}

// HandleScan обрабатывает присланную фотографию: распознавание → проверка
// формы → обмен кода на документ → отрисовка с автоудалением. Все исходы,
// включая отказы, доставляются пользователю; возвращаемая ошибка означает
// сбой доставки самого ответа.
func (w *Workflow) HandleScan(ctx context.Context, chatID int64, photo []byte) error {
	payload, err := w.codec.DecodeBytes(photo)
	if err != nil {
		if errors.Is(err, qrcode.ErrNotFound) {
			return w.sendPlain(ctx, chatID, msgNoCode)
		}
		logger.Warn("scan decode failed", zap.Error(err))
		return w.sendPlain(ctx, chatID, msgNoCode)
	}

	if !codePattern.MatchString(payload) {
		// До сети такой код не доходит.
		return w.sendPlain(ctx, chatID, msgInvalidCode)
	}

	record, err := w.api.VerifyCode(ctx, payload)
	if err != nil {
		if apiErr, rejected := identity.AsAPIError(err); rejected {
			if detail := apiErr.Detail(); detail != "" {
				return w.sendPlain(ctx, chatID, "Verification failed: "+detail)
			}
		} else {
			logger.Error("verify call failed", zap.Error(err))
		}
		return w.sendPlain(ctx, chatID, msgVerifyFailed)
	}

	messageID, err := w.out.SendHTML(ctx, chatID, renderRecord(record))
	if err != nil {
		return errors.Wrap(err, "send verification result")
	}

	// Автоудаление результата: best effort, при останове процесса отложенное
	// действие пропадает — это документированное ограничение.
	w.retract.After(ValidityWindow, func() {
		delCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errDel := w.out.DeleteMessage(delCtx, chatID, messageID); errDel != nil {
			logger.Warn("verification message retraction failed",
				zap.Int64("chat_id", chatID), zap.Int("message_id", messageID), zap.Error(errDel))
		}
	})
	return nil
}

// IssueChallenge выпускает код подтверждения документа и отдаёт его QR-кодом.
// messageID — сообщение с кнопкой, из которого пришёл запрос: при отказе его
// текст заменяется на сообщение об ошибке, при успехе снимается клавиатура.
func (w *Workflow) IssueChallenge(ctx context.Context, chatID int64, messageID int, token, documentID string) error {
	code, err := w.api.RequestVerificationCode(ctx, token, documentID)
	if err != nil {
		if _, rejected := identity.AsAPIError(err); !rejected {
			logger.Error("verification code request failed", zap.Error(err))
		}
		return w.out.EditHTML(ctx, chatID, messageID, msgIssueFailed)
	}

	png, err := w.codec.EncodePNG(code)
	if err != nil {
		logger.Error("qr encode failed", zap.Error(err))
		return w.out.EditHTML(ctx, chatID, messageID, msgIssueFailed)
	}

	if err := w.out.ClearKeyboard(ctx, chatID, messageID); err != nil {
		// Клавиатура остаётся — не повод не отдать код.
		logger.Warn("keyboard removal failed", zap.Error(err))
	}
	if err := w.out.SendPhoto(ctx, chatID, png, captionChallenge); err != nil {
		return errors.Wrap(err, "send challenge photo")
	}
	return nil
}

// sendPlain доставляет терминальный пользовательский исход.
func (w *Workflow) sendPlain(ctx context.Context, chatID int64, text string) error {
	_, err := w.out.SendHTML(ctx, chatID, text)
	return err
}

// renderRecord отрисовывает запись документа: каждое поле — подпись и
// жирное значение, в конце фиксированный футер о сроке жизни сообщения.
func renderRecord(record []identity.Field) string {
	parts := make([]string, 0, len(record)+1)
	for _, f := range record {
		parts = append(parts, "\n"+markup.Humanize(f.Key)+"\n"+markup.Bold(markup.FormatValue(f.Value))+"\n")
	}
	parts = append(parts, footerVerified)
	return strings.Join(parts, "\n")
}
