package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Payment gateway
	GatewayURL        string `env:"GATEWAY_API_URL" envDefault:"https://api.gateway.local/v1"`
	GatewayMerchantID string `env:"GATEWAY_MERCHANT_ID"`
	GatewayAPIKey     string `env:"GATEWAY_API_KEY"`

	// Notifications
	NATSURL       string `env:"NATS_URL"`
	NotifySubject string `env:"NOTIFY_SUBJECT_PREFIX" envDefault:"solveit.notify"`

	// Staff alerts (optional)
	AlertBotToken string `env:"ALERT_BOT_TOKEN"`
	AlertChatID   int64  `env:"ALERT_CHAT_ID"`

	// Deadline sweep
	SweepSchedule string `env:"SWEEP_SCHEDULE" envDefault:"@every 5m"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
