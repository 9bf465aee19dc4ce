package config

import (
	"strings"
	"testing"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "123:ABC")
	t.Setenv("API_URL", "https://id.example.com/")
}

func TestLoadConfigRequiredVars(t *testing.T) {
	cases := []struct {
		name    string
		prepare func(t *testing.T)
		wantErr string
	}{
		{
			name: "missingBotToken",
			prepare: func(t *testing.T) {
				t.Setenv("BOT_TOKEN", "")
				t.Setenv("API_URL", "https://id.example.com")
			},
			wantErr: "BOT_TOKEN",
		},
		{
			name: "missingAPIURL",
			prepare: func(t *testing.T) {
				t.Setenv("BOT_TOKEN", "123:ABC")
				t.Setenv("API_URL", "")
			},
			wantErr: "API_URL",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.prepare(t)
			if _, err := loadConfig(""); err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("loadConfig() error = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("THROTTLE_RPS", "")
	t.Setenv("WORKERS", "")
	t.Setenv("SESSIONS_FILE", "")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if cfg.Env.ThrottleRPS != defaultThrottleRPS {
		t.Errorf("ThrottleRPS = %d, want %d", cfg.Env.ThrottleRPS, defaultThrottleRPS)
	}
	if cfg.Env.Workers != defaultWorkers {
		t.Errorf("Workers = %d, want %d", cfg.Env.Workers, defaultWorkers)
	}
	if cfg.Env.SessionsFile != defaultSessionsFile {
		t.Errorf("SessionsFile = %q, want %q", cfg.Env.SessionsFile, defaultSessionsFile)
	}
	// API_URL нормализуется: хвостовой слэш убирается, чтобы конкатенация путей была предсказуемой.
	if cfg.Env.APIURL != "https://id.example.com" {
		t.Errorf("APIURL = %q, want trailing slash trimmed", cfg.Env.APIURL)
	}
}

func TestLoadConfigInvalidValuesProduceWarnings(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("THROTTLE_RPS", "zero")
	t.Setenv("WORKERS", "-3")
	t.Setenv("LOG_LEVEL", "loud")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if cfg.Env.ThrottleRPS != defaultThrottleRPS {
		t.Errorf("ThrottleRPS = %d, want default %d", cfg.Env.ThrottleRPS, defaultThrottleRPS)
	}
	if cfg.Env.Workers != defaultWorkers {
		t.Errorf("Workers = %d, want default %d", cfg.Env.Workers, defaultWorkers)
	}
	if cfg.Env.LogLevel != defaultLogLevel {
		t.Errorf("LogLevel = %q, want default %q", cfg.Env.LogLevel, defaultLogLevel)
	}
	if len(cfg.warnings) != 3 {
		t.Errorf("warnings = %d (%v), want 3", len(cfg.warnings), cfg.warnings)
	}
}
