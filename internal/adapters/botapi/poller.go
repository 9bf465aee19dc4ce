package botapi

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"apexid-bot/internal/bot"
	"apexid-bot/internal/infra/logger"
)

// pollRetryDelay — пауза перед повторным опросом после сетевого сбоя.
const pollRetryDelay = 3 * time.Second

// Handler принимает нормализованные события. Реализуется роутером.
type Handler interface {
	Dispatch(ctx context.Context, ev bot.Event)
}

// Poller крутит длинный опрос getUpdates и раздаёт события пулу обработчиков.
// Порядок внутри одного пользователя обеспечивает роутер своей блокировкой,
// пул лишь ограничивает общее число одновременных обработок.
type Poller struct {
	client     *Client
	handler    Handler
	timeoutSec int
	workers    int
}

func NewPoller(client *Client, handler Handler, timeoutSec, workers int) *Poller {
	return &Poller{
		client:     client,
		handler:    handler,
		timeoutSec: timeoutSec,
		workers:    workers,
	}
}

// Run опрашивает Bot API до отмены контекста. Возвращает причину остановки;
// перед возвратом дожидается завершения всех запущенных обработчиков.
func (p *Poller) Run(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(p.workers)
	defer g.Wait() //nolint:errcheck // обработчики ошибок не возвращают

	var offset int64
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		updates, err := p.client.getUpdates(ctx, offset, p.timeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("get updates failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			ev, ok := toEvent(u)
			if !ok {
				continue
			}
			g.Go(func() error {
				p.handler.Dispatch(ctx, ev)
				return nil
			})
		}
	}
}

// toEvent переводит сырое обновление в событие роутера. Обновления без
// отправителя (например, посты каналов) пропускаются.
func toEvent(u Update) (bot.Event, bool) {
	switch {
	case u.Message != nil && len(u.Message.Photo) > 0:
		if u.Message.From == nil {
			return bot.Event{}, false
		}
		// Последняя версия фотографии — самая крупная.
		return bot.Event{
			Kind:        bot.EventPhoto,
			UserID:      u.Message.From.ID,
			ChatID:      u.Message.Chat.ID,
			MessageID:   u.Message.MessageID,
			UserName:    u.Message.From.FullName(),
			PhotoFileID: u.Message.Photo[len(u.Message.Photo)-1].FileID,
		}, true

	case u.Message != nil && u.Message.Text != "":
		if u.Message.From == nil {
			return bot.Event{}, false
		}
		return bot.Event{
			Kind:      bot.EventText,
			UserID:    u.Message.From.ID,
			ChatID:    u.Message.Chat.ID,
			MessageID: u.Message.MessageID,
			UserName:  u.Message.From.FullName(),
			Text:      u.Message.Text,
		}, true

	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		return bot.Event{
			Kind:              bot.EventCallback,
			UserID:            u.CallbackQuery.From.ID,
			ChatID:            u.CallbackQuery.Message.Chat.ID,
			UserName:          u.CallbackQuery.From.FullName(),
			CallbackID:        u.CallbackQuery.ID,
			CallbackData:      u.CallbackQuery.Data,
			CallbackMessageID: u.CallbackQuery.Message.MessageID,
		}, true
	}
	return bot.Event{}, false
}
