package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken         string `env:"TELEGRAM_TOKEN,notEmpty"`
	DatabaseURL           string `env:"DATABASE_URL" envDefault:"group_planner.db"`
	ReminderIntervalHours int    `env:"REMINDER_INTERVAL_HOURS" envDefault:"5"`
	DefaultLanguage       string `env:"DEFAULT_LANGUAGE" envDefault:"en"`
	ReminderAt            string `env:"REMINDER_AT"`
	Timezone              string `env:"TZ_NAME" envDefault:"Local"`

	ReminderInterval time.Duration
	Location         *time.Location
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	return load(env.Options{})
}

func load(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.DefaultLanguage = strings.TrimSpace(cfg.DefaultLanguage)
	cfg.ReminderAt = strings.TrimSpace(cfg.ReminderAt)

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "group_planner.db"
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	if cfg.ReminderIntervalHours > 0 {
		cfg.ReminderInterval = time.Duration(cfg.ReminderIntervalHours) * time.Hour
	}

	loc, err := time.LoadLocation(strings.TrimSpace(cfg.Timezone))
	if err != nil {
		return cfg, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	return cfg, nil
}
