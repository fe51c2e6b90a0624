package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string `env:"MIDORSYS_HTTP_ADDR" envDefault:":8080"`

	// DB
	Env    string `env:"MIDORSYS_ENV"     envDefault:"dev"` // "dev" | "prod"
	DBPath string `env:"MIDORSYS_DB_PATH" envDefault:"./data/midorsys.db"`

	// Enrollment
	SessionTTL    time.Duration `env:"MIDORSYS_SESSION_TTL"    envDefault:"90s"`
	SweepInterval time.Duration `env:"MIDORSYS_SWEEP_INTERVAL" envDefault:"30s"`

	// Telegram notifications (disabled when either is empty)
	TelegramBotToken string `env:"MIDORSYS_TG_BOT_TOKEN"`
	TelegramChatID   string `env:"MIDORSYS_TG_CHAT_ID"`

	// Remote reader activation (disabled when URL is empty)
	ReaderAPIURL string `env:"MIDORSYS_READER_API_URL"`
	ReaderAPIKey string `env:"MIDORSYS_READER_API_KEY"`
}

func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.Env != "dev" && cfg.Env != "prod" {
		// fail-soft: treat unknown as dev
		cfg.Env = "dev"
	}

	return cfg, nil
}
