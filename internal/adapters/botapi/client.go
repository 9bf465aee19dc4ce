package botapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"apexid-bot/internal/bot"
	"apexid-bot/internal/infra/logger"

	"github.com/go-faster/errors"
)

// maxRetryAfter ограничивает паузу, которую адаптер готов выдержать по
// подсказке retry_after, прежде чем вернуть ошибку вызывающему.
const maxRetryAfter = 30 * time.Second

// Client — исходящая сторона Bot API: методы вызываются последовательно
// через общий троттлер (token bucket), длинный опрос ходит отдельным
// HTTP-клиентом без общего таймаута.
type Client struct {
	baseURL string
	fileURL string
	client  *http.Client
	poll    *http.Client
	limiter *rate.Limiter
}

// NewClient настраивает клиента для бота. При testDC=true к токену
// добавляется суффикс /test согласно Bot API. rps задаёт целевую среднюю
// частоту запросов, timeout — таймаут обычных (не длиннополлинговых) вызовов.
func NewClient(token string, testDC bool, rps int, timeout time.Duration) *Client {
	if testDC {
		token += "/test"
	}
	return &Client{
		baseURL: "https://api.telegram.org/bot" + token,
		fileURL: "https://api.telegram.org/file/bot" + token,
		client:  &http.Client{Timeout: timeout},
		poll:    &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// SendHTML отправляет сообщение с parse_mode=HTML и возвращает message_id —
// он нужен процессу верификации для отложенного удаления.
func (c *Client) SendHTML(ctx context.Context, chatID int64, text string) (int, error) {
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	result, err := c.call(ctx, "sendMessage", payload)
	if err != nil {
		return 0, err
	}
	var msg Message
	if err := json.Unmarshal(result, &msg); err != nil {
		return 0, errors.Wrap(err, "decode sendMessage result")
	}
	return msg.MessageID, nil
}

// SendKeyboard отправляет сообщение с inline-клавиатурой, по кнопке в ряд.
func (c *Client) SendKeyboard(ctx context.Context, chatID int64, text string, buttons []bot.Button) error {
	payload := map[string]any{
		"chat_id":      chatID,
		"text":         text,
		"parse_mode":   "HTML",
		"reply_markup": keyboardOf(buttons),
	}
	_, err := c.call(ctx, "sendMessage", payload)
	return err
}

// SendPhoto загружает изображение multipart-запросом.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, photo []byte, caption string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return errors.Wrap(err, "write chat_id")
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return errors.Wrap(err, "write caption")
		}
	}
	part, err := w.CreateFormFile("photo", "qr_code.png")
	if err != nil {
		return errors.Wrap(err, "create photo part")
	}
	if _, err := part.Write(photo); err != nil {
		return errors.Wrap(err, "write photo")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "finish multipart body")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sendPhoto", &buf)
	if err != nil {
		return errors.Wrap(err, "build sendPhoto request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "sendPhoto")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read sendPhoto response")
	}
	_, err = decodeResponse("sendPhoto", body)
	return err
}

// EditHTML заменяет текст сообщения. Inline-клавиатура при этом снимается:
// editMessageText без reply_markup убирает её.
func (c *Client) EditHTML(ctx context.Context, chatID int64, messageID int, text string) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "HTML",
	}
	_, err := c.call(ctx, "editMessageText", payload)
	return err
}

// EditKeyboard заменяет текст сообщения вместе с inline-клавиатурой.
func (c *Client) EditKeyboard(ctx context.Context, chatID int64, messageID int, text string, buttons []bot.Button) error {
	payload := map[string]any{
		"chat_id":      chatID,
		"message_id":   messageID,
		"text":         text,
		"parse_mode":   "HTML",
		"reply_markup": keyboardOf(buttons),
	}
	_, err := c.call(ctx, "editMessageText", payload)
	return err
}

// ClearKeyboard убирает inline-клавиатуру, не меняя текст сообщения.
func (c *Client) ClearKeyboard(ctx context.Context, chatID int64, messageID int) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	}
	_, err := c.call(ctx, "editMessageReplyMarkup", payload)
	return err
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	}
	_, err := c.call(ctx, "deleteMessage", payload)
	return err
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	payload := map[string]any{
		"callback_query_id": callbackID,
		"text":              text,
	}
	_, err := c.call(ctx, "answerCallbackQuery", payload)
	return err
}

// SetCommands публикует список команд в меню бота.
func (c *Client) SetCommands(ctx context.Context, commands []BotCommand) error {
	_, err := c.call(ctx, "setMyCommands", map[string]any{"commands": commands})
	return err
}

// DownloadPhoto получает содержимое файла: getFile за file_path, затем
// скачивание с файлового хоста.
func (c *Client) DownloadPhoto(ctx context.Context, fileID string) ([]byte, error) {
	result, err := c.call(ctx, "getFile", map[string]any{"file_id": fileID})
	if err != nil {
		return nil, err
	}
	var info fileInfo
	if err := json.Unmarshal(result, &info); err != nil {
		return nil, errors.Wrap(err, "decode getFile result")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fileURL+"/"+info.FilePath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build download request")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "download file")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("download file: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// getUpdates выполняет длинный опрос. Таймаут держит сервер, поэтому запрос
// идёт клиентом без собственного таймаута и отменяется только контекстом.
func (c *Client) getUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	payload := map[string]any{
		"offset":          offset,
		"timeout":         timeoutSec,
		"allowed_updates": []string{"message", "callback_query"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encode getUpdates payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/getUpdates", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build getUpdates request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.poll.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "getUpdates")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read getUpdates response")
	}
	result, err := decodeResponse("getUpdates", raw)
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, errors.Wrap(err, "decode updates")
	}
	return updates, nil
}

// call выполняет JSON-вызов метода Bot API под троттлером. Подсказку
// retry_after от лимитов Telegram выдерживает на месте и повторяет вызов
// один раз; чрезмерный retry_after возвращается ошибкой.
func (c *Client) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	result, retryAfter, err := c.perform(ctx, method, payload)
	if err == nil || retryAfter <= 0 {
		return result, err
	}
	if retryAfter > maxRetryAfter {
		return nil, err
	}

	logger.Warn("bot api rate limited",
		zap.String("method", method),
		zap.Duration("retry_after", retryAfter))
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(retryAfter):
	}
	result, _, err = c.perform(ctx, method, payload)
	return result, err
}

func (c *Client) perform(ctx context.Context, method string, payload any) (json.RawMessage, time.Duration, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, errors.Wrap(err, "encode payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return nil, 0, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "call %s", method)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errors.Wrap(err, "read response")
	}

	var decoded apiResponse
	if uerr := json.Unmarshal(raw, &decoded); uerr == nil && !decoded.OK &&
		decoded.Parameters.RetryAfter > 0 {
		retryAfter := time.Duration(decoded.Parameters.RetryAfter) * time.Second
		return nil, retryAfter, apiFailure(method, decoded)
	}

	result, err := decodeResponse(method, raw)
	return result, 0, err
}

// decodeResponse разбирает конверт Bot API и возвращает result либо ошибку.
func decodeResponse(method string, body []byte) (json.RawMessage, error) {
	var decoded apiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, errors.Wrapf(err, "decode %s response", method)
	}
	if !decoded.OK {
		return nil, apiFailure(method, decoded)
	}
	return decoded.Result, nil
}

func apiFailure(method string, decoded apiResponse) error {
	desc := decoded.Description
	if desc == "" {
		desc = "(empty bot api description)"
	}
	return fmt.Errorf("bot api %s: error %d: %s", method, decoded.ErrorCode, desc)
}

func keyboardOf(buttons []bot.Button) inlineKeyboardMarkup {
	rows := make([][]inlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []inlineKeyboardButton{{Text: b.Text, CallbackData: b.Data}})
	}
	return inlineKeyboardMarkup{InlineKeyboard: rows}
}
