// Package app — верхний уровень сборки бота. Здесь связываются конфигурация,
// хранилище сессий, клиент Identity API, движок диалогов, процесс проверки
// документов и транспорт Bot API. Отсюда стартует цикл опроса и обеспечивается
// корректный shutdown.
package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"apexid-bot/internal/adapters/botapi"
	"apexid-bot/internal/bot"
	"apexid-bot/internal/domain/dialog"
	"apexid-bot/internal/domain/session"
	"apexid-bot/internal/domain/verify"
	"apexid-bot/internal/identity"
	"apexid-bot/internal/infra/concurrency"
	"apexid-bot/internal/infra/config"
	"apexid-bot/internal/infra/logger"
	"apexid-bot/internal/infra/qrcode"

	"github.com/go-faster/errors"
)

// botCommands публикуются в меню Telegram при старте.
var botCommands = []botapi.BotCommand{
	{Command: "start", Description: "Start the bot"},
	{Command: "help", Description: "Get help"},
	{Command: "login", Description: "Login to the system"},
	{Command: "register", Description: "Register to the system"},
	{Command: "logout", Description: "Logout from the system"},
	{Command: "profile", Description: "Get your profile"},
	{Command: "notifications", Description: "Get your notifications"},
	{Command: "cabinet", Description: "Get your applications"},
	{Command: "documents", Description: "Get your documents"},
}

// App агрегирует собранные компоненты и управляет их жизненным циклом.
type App struct {
	ctx  context.Context
	stop context.CancelFunc

	sessions  session.Store
	scheduler *concurrency.Scheduler
	tg        *botapi.Client
	poller    *botapi.Poller
}

func NewApp() *App {
	return &App{}
}

// Init собирает зависимости. Порядок фиксирован: сначала хранилище сессий
// (оно единственное умеет отказать на старте), затем клиенты и сценарии.
func (a *App) Init(ctx context.Context, stop context.CancelFunc) error {
	a.ctx = ctx
	a.stop = stop
	env := config.Env()

	sessions, err := openSessionStore(ctx, env)
	if err != nil {
		return errors.Wrap(err, "open session store")
	}
	a.sessions = sessions

	httpTimeout := time.Duration(env.HTTPTimeoutSec) * time.Second
	api := identity.NewClient(env.APIURL, httpTimeout)
	a.tg = botapi.NewClient(env.BotToken, env.TestDC, env.ThrottleRPS, httpTimeout)

	a.scheduler = concurrency.NewScheduler()
	engine := dialog.NewEngine(api, sessions)
	workflow := verify.NewWorkflow(api, qrcode.Codec{}, a.tg, a.scheduler)
	router := bot.NewRouter(sessions, engine, api, workflow, a.tg)
	a.poller = botapi.NewPoller(a.tg, router, env.PollTimeoutSec, env.Workers)

	return nil
}

// Run блокируется до отмены контекста. Отложенные удаления сообщений при
// остановке пропадают: это приемлемо, сообщения и так живут в чате недолго.
func (a *App) Run() error {
	a.scheduler.Start(a.ctx)
	defer a.scheduler.Stop()
	defer func() {
		if err := a.sessions.Close(); err != nil {
			logger.Error("session store close failed", zap.Error(err))
		}
	}()

	if err := a.tg.SetCommands(a.ctx, botCommands); err != nil {
		// Меню — удобство, не предусловие работы.
		logger.Warn("set bot commands failed", zap.Error(err))
	}

	logger.Info("bot started")
	err := a.poller.Run(a.ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "poll loop")
	}
	logger.Info("bot stopped")
	return nil
}

// openSessionStore выбирает бэкенд: Redis при заданном REDIS_URL, иначе
// локальный bbolt-файл.
func openSessionStore(ctx context.Context, env config.EnvConfig) (session.Store, error) {
	if env.RedisURL != "" {
		store, err := session.NewRedisStore(ctx, env.RedisURL)
		if err != nil {
			return nil, err
		}
		logger.Info("sessions backed by redis")
		return store, nil
	}
	store, err := session.NewBoltStore(env.SessionsFile)
	if err != nil {
		return nil, err
	}
	logger.Info("sessions backed by bbolt", zap.String("path", env.SessionsFile))
	return store, nil
}
