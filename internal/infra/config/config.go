// Package config отвечает за сбор и валидацию конфигурации бота.
// Источник — переменные окружения, подгружаемые из .env через godotenv.
//
// Бизнес-контекст: боту нужны токен Telegram Bot API и адрес Identity API —
// без них процесс не стартует. Остальные «ручки» (хранилище сессий, лимиты,
// логирование) имеют дефолты; некорректные значения не валят запуск, а
// фиксируются как предупреждения и заменяются дефолтом.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// EnvConfig описывает параметры, приходящие из окружения (.env).
//
// NB: значения уже проходят минимальную валидацию и нормализацию в loadConfig.
// В рантайме по месту использования предполагается, что EnvConfig последователен.
type EnvConfig struct {
	BotToken string // токен Telegram Bot API (обязателен)
	APIURL   string // базовый URL Identity API (обязателен)

	RedisURL     string // адрес Redis для сессий; пустой — используется bbolt
	SessionsFile string // путь к bbolt-файлу сессий (когда Redis не настроен)

	LogLevel string
	TestDC   bool // тестовый DC Bot API (суффикс /test в пути токена)

	ThrottleRPS    int // средняя частота исходящих запросов к Bot API
	Workers        int // размер пула обработчиков входящих событий
	PollTimeoutSec int // таймаут long poll getUpdates
	HTTPTimeoutSec int // таймаут HTTP-клиентов (Bot API и Identity API)

	// Файловое логирование (LOG_FILE без дефолта — активация только явная)
	LogFile           string
	LogFileLevel      string
	LogFileMaxSize    int
	LogFileMaxBackups int
	LogFileMaxAge     int
	LogFileCompress   bool
}

// Config хранит конфигурацию среды и накопленные при загрузке предупреждения.
type Config struct {
	Env      EnvConfig
	warnings []string
	mu       sync.RWMutex
}

// Значения по умолчанию для параметров окружения.
const (
	defaultLogLevel       = "info"
	defaultSessionsFile   = "data/sessions.bbolt"
	defaultThrottleRPS    = 20
	defaultWorkers        = 8
	defaultPollTimeoutSec = 50
	defaultHTTPTimeoutSec = 30

	defaultLogFileLevel      = "debug"
	defaultLogFileMaxSize    = 50
	defaultLogFileMaxBackups = 3
	defaultLogFileMaxAge     = 7
	defaultLogFileCompress   = true
)

var (
	cfgInstance *Config
	cfgDone     bool
)

// Load — точка входа для инициализации глобальной конфигурации.
// Повторный вызов запрещён (возвращается ошибка), чтобы избежать гонок
// конфигурации на старте.
func Load(envPath string) error {
	if cfgDone {
		return errors.New("config already loaded")
	}
	newCfg, err := loadConfig(envPath)
	if err != nil {
		return err
	}
	cfgInstance = newCfg
	cfgDone = true
	return nil
}

// loadConfig выполняет фактическую загрузку/валидацию без установки глобального
// состояния. Удобно для тестов: можно собрать временный Config и проверить его.
func loadConfig(envPath string) (*Config, error) {
	if envPath != "" {
		// .env опционален: при его отсутствии работаем с окружением процесса.
		_ = godotenv.Load(envPath)
	}

	botToken := strings.TrimSpace(os.Getenv("BOT_TOKEN"))
	if botToken == "" {
		return nil, errors.New("env BOT_TOKEN must be set")
	}

	apiURL := strings.TrimRight(strings.TrimSpace(os.Getenv("API_URL")), "/")
	if apiURL == "" {
		return nil, errors.New("env API_URL must be set")
	}

	var warnings []string

	env := EnvConfig{
		BotToken:     botToken,
		APIURL:       apiURL,
		RedisURL:     strings.TrimSpace(os.Getenv("REDIS_URL")),
		SessionsFile: sanitizeFile(os.Getenv("SESSIONS_FILE"), defaultSessionsFile),
		LogLevel:     sanitizeLogLevel("LOG_LEVEL", os.Getenv("LOG_LEVEL"), defaultLogLevel, &warnings),
		TestDC:       strings.EqualFold(strings.TrimSpace(os.Getenv("TEST_DC")), "true"),

		ThrottleRPS:    parseIntDefault("THROTTLE_RPS", defaultThrottleRPS, greaterThanZero, &warnings),
		Workers:        parseIntDefault("WORKERS", defaultWorkers, greaterThanZero, &warnings),
		PollTimeoutSec: parseIntDefault("POLL_TIMEOUT_SEC", defaultPollTimeoutSec, greaterThanZero, &warnings),
		HTTPTimeoutSec: parseIntDefault("HTTP_TIMEOUT_SEC", defaultHTTPTimeoutSec, greaterThanZero, &warnings),

		LogFile:           strings.TrimSpace(os.Getenv("LOG_FILE")),
		LogFileLevel:      sanitizeLogLevel("LOG_FILE_LEVEL", os.Getenv("LOG_FILE_LEVEL"), defaultLogFileLevel, nil),
		LogFileMaxSize:    parseIntDefault("LOG_FILE_MAX_SIZE_MB", defaultLogFileMaxSize, greaterThanZero, nil),
		LogFileMaxBackups: parseIntDefault("LOG_FILE_MAX_BACKUPS", defaultLogFileMaxBackups, nonNegative, nil),
		LogFileMaxAge:     parseIntDefault("LOG_FILE_MAX_AGE_DAYS", defaultLogFileMaxAge, nonNegative, nil),
		LogFileCompress:   parseBoolDefault("LOG_FILE_COMPRESS", defaultLogFileCompress, nil),
	}

	return &Config{Env: env, warnings: warnings}, nil
}

// Warnings возвращает накопленные предупреждения загрузки .env
// (например, когда подставлено значение по умолчанию). Возвращается копия.
func Warnings() []string {
	cfgInstance.mu.RLock()
	defer cfgInstance.mu.RUnlock()
	result := make([]string, len(cfgInstance.warnings))
	copy(result, cfgInstance.warnings)
	return result
}

// Env возвращает EnvConfig из глобального singleton. Это неизменяемый снимок
// на момент загрузки; обновление возможно только перезапуском процесса.
func Env() EnvConfig {
	return cfgInstance.Env
}

// parseIntDefault читает name как int. Если пусто/некорректно/не проходит
// validator — возвращает defaultVal и пишет предупреждение.
func parseIntDefault(name string, defaultVal int, validator func(int) bool, warnings *[]string) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		appendWarningf(warnings, "env %s value %q is not a valid integer; using default %d", name, value, defaultVal)
		return defaultVal
	}
	if validator != nil && !validator(v) {
		appendWarningf(warnings, "env %s value %d does not satisfy constraints; using default %d", name, v, defaultVal)
		return defaultVal
	}
	return v
}

// parseBoolDefault читает name как bool; пусто/некорректно — defaultVal.
func parseBoolDefault(name string, defaultVal bool, warnings *[]string) bool {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return defaultVal
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		appendWarningf(warnings, "env %s value %q is not a valid boolean; using default %v", name, value, defaultVal)
		return defaultVal
	}
	return v
}

// appendWarningf — накопление предупреждений о некорректных переменных
// окружения. Список затем доступен через Warnings().
func appendWarningf(warnings *[]string, format string, args ...any) {
	if warnings == nil {
		return
	}
	*warnings = append(*warnings, fmt.Sprintf(format, args...))
}

// greaterThanZero/nonNegative — простые валидаторы чисел для parseIntDefault.
func greaterThanZero(v int) bool { return v > 0 }
func nonNegative(v int) bool     { return v >= 0 }

// sanitizeLogLevel нормализует уровень и ограничивает значения набором
// {debug, info, warn, error}. Всё остальное превращается в defaultVal.
func sanitizeLogLevel(name, level, defaultVal string, warnings *[]string) string {
	lvl := strings.ToLower(strings.TrimSpace(level))
	if lvl == "" {
		return defaultVal
	}
	switch lvl {
	case "debug", "info", "warn", "error":
		return lvl
	default:
		appendWarningf(warnings, "env %s value %q is invalid; using default %q", name, level, defaultVal)
		return defaultVal
	}
}

// sanitizeFile возвращает валидное имя файла; пустое значение — fallback.
func sanitizeFile(value, fallback string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return fallback
	}
	return v
}
