package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Token        string
	DBPath       string
	RedisAddr    string
	NinaBaseURL  string
	PollInterval time.Duration
	HTTPTimeout  time.Duration
}

func NewConfig() (*Config, error) {
	cfg := &Config{
		Token:        os.Getenv("TELEGRAM_BOT_TOKEN"),
		DBPath:       os.Getenv("DB_PATH"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		NinaBaseURL:  os.Getenv("NINA_BASE_URL"),
		PollInterval: 120 * time.Second,
		HTTPTimeout:  15 * time.Second,
	}

	if cfg.DBPath == "" {
		cfg.DBPath = "./warnbot.db"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if cfg.NinaBaseURL == "" {
		cfg.NinaBaseURL = "https://warnung.bund.de/api31"
	}
	if v := os.Getenv("POLL_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PollInterval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("HTTP_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPTimeout = time.Duration(n) * time.Second
		}
	}

	return cfg, nil
}
