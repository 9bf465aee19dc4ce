// Файл client.go — HTTP-клиент девяти операций Identity API.
//
// Контракт: авторизация — «сырой» токен в заголовке Authorization (без
// префикса Bearer), тела — JSON. Клиент не проверяет форму токена, не делает
// ретраев и не кэширует; любые решения о повторе — на стороне пользователя.

package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"apexid-bot/internal/infra/logger"
)

// Client — stateless-фасад Identity API. Безопасен для конкурентного
// использования: всё состояние — базовый URL и http.Client.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient создаёт клиента для baseURL (без хвостового слэша) с заданным
// таймаутом HTTP. Таймаут покрывает весь запрос, включая чтение тела.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Login обменивает пару email/пароль на токен. Пустой токен в 2xx-ответе
// возможен и трактуется вызывающим как отказ.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	payload := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password}

	body, err := c.do(ctx, http.MethodPost, "/api/v1/public/authorization/signin", "", payload)
	if err != nil {
		return "", err
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", errors.Wrap(err, "decode signin response")
	}
	return resp.Token, nil
}

// Register отправляет анкету регистрации. Успех — любой 2xx; тело ответа
// не интересует.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	_, err := c.do(ctx, http.MethodPost, "/api/v1/public/authorization/signup", "", reg)
	return err
}

// GetProfile возвращает профиль владельца токена.
func (c *Client) GetProfile(ctx context.Context, token string) (Profile, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/private/profile/my", token, nil)
	if err != nil {
		return Profile{}, err
	}

	var p Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return Profile{}, errors.Wrap(err, "decode profile response")
	}
	return p, nil
}

// GetNotifications возвращает все уведомления пользователя; сортировку и
// ограничение количества выполняет вызывающий.
func (c *Client) GetNotifications(ctx context.Context, token string) ([]Notification, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/private/profile/my/notifications", token, nil)
	if err != nil {
		return nil, err
	}

	var items []Notification
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, errors.Wrap(err, "decode notifications response")
	}
	return items, nil
}

// Cabinet возвращает заявки личного кабинета.
func (c *Client) Cabinet(ctx context.Context, token string) ([]Application, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/private/application/cabinet", token, nil)
	if err != nil {
		return nil, err
	}

	var items []Application
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, errors.Wrap(err, "decode cabinet response")
	}
	return items, nil
}

// GetDocuments возвращает список документов пользователя без содержимого.
func (c *Client) GetDocuments(ctx context.Context, token string) ([]DocumentRef, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/private/profile/my/documents", token, nil)
	if err != nil {
		return nil, err
	}

	var items []DocumentRef
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, errors.Wrap(err, "decode documents response")
	}
	return items, nil
}

// GetDocument возвращает документ целиком. Блок data разбирается с
// сохранением порядка полей (см. ordered.go).
func (c *Client) GetDocument(ctx context.Context, token, id string) (Document, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/private/profile/my/documents/"+url.PathEscape(id), token, nil)
	if err != nil {
		return Document{}, err
	}

	var meta struct {
		ID       string           `json:"_id"`
		Metadata DocumentMetadata `json:"metadata"`
	}
	if err := json.Unmarshal(body, &meta); err != nil {
		return Document{}, errors.Wrap(err, "decode document response")
	}

	top, err := DecodeOrderedObject(body)
	if err != nil {
		return Document{}, err
	}
	doc := Document{ID: meta.ID, Name: meta.Metadata.DocumentName}
	for _, f := range top {
		if f.Key != "data" {
			continue
		}
		if data, ok := f.Value.([]Field); ok {
			doc.Data = data
		}
		break
	}
	return doc, nil
}

// RequestVerificationCode выпускает короткоживущий код подтверждения для
// документа id. Ответ приходит в поле token.
func (c *Client) RequestVerificationCode(ctx context.Context, token, id string) (string, error) {
	body, err := c.do(ctx, http.MethodGet,
		"/api/v1/private/profile/my/documents/"+url.PathEscape(id)+"/confirm", token, nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", errors.Wrap(err, "decode verification code response")
	}
	return resp.Token, nil
}

// VerifyCode обменивает отсканированный код на запись документа. Поля
// возвращаются в порядке ответа сервера; эндпоинт публичный, токен не нужен.
func (c *Client) VerifyCode(ctx context.Context, code string) ([]Field, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/public/document/verify/"+url.PathEscape(code), "", nil)
	if err != nil {
		return nil, err
	}
	return DecodeOrderedObject(body)
}

// do выполняет один HTTP-вызов: сериализует payload (если есть), проставляет
// заголовки и нормализует результат. Не-2xx превращается в *APIError с телом,
// сетевые сбои оборачиваются как есть. Тело успешного ответа возвращается
// целиком: объёмы здесь небольшие.
func (c *Client) do(ctx context.Context, method, path, token string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		// Authorization несёт сырой токен: так ожидает сервер, префикса Bearer нет.
		req.Header.Set("Authorization", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "identity api request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}

	logger.Debug("identity api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &APIError{Status: resp.StatusCode, Body: body}
	}
	return body, nil
}
