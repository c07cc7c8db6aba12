package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port      int
	LogLevel  string
	APIToken  string
	QueueSize int

	StoreDriver string
	StorePath   string
	DatabaseURL string

	NatsURL   string
	NatsToken string

	RedisAddr     string
	RedisPassword string

	SlackBotToken string
	SlackChannel  string

	BrakeThreshold  float64
	BrakeCooldown   float64
	BrakingWindow   float64
	MinSessionSecs  float64
	PercentileTable string
}

func Load() Config {
	return Config{
		Port:      envInt("DRIVESCORE_PORT", 8760),
		LogLevel:  envStr("LOG_LEVEL", "info"),
		APIToken:  envStr("DRIVESCORE_API_TOKEN", ""),
		QueueSize: envInt("QUEUE_SIZE", 256),

		StoreDriver: envStr("STORE_DRIVER", "sqlite"),
		StorePath:   envStr("STORE_PATH", "~/.drivescore/drivescore.db"),
		DatabaseURL: envStr("DATABASE_URL", ""),

		NatsURL:   envStr("NATS_URL", ""),
		NatsToken: envStr("NATS_TOKEN", ""),

		RedisAddr:     envStr("REDIS_ADDR", ""),
		RedisPassword: envStr("REDIS_PASSWORD", ""),

		SlackBotToken: envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:  envStr("SLACK_CHANNEL", ""),

		BrakeThreshold:  envFloat("BRAKE_THRESHOLD", 0.7),
		BrakeCooldown:   envFloat("BRAKE_COOLDOWN_SECONDS", 10),
		BrakingWindow:   envFloat("BRAKING_WINDOW_SECONDS", 2),
		MinSessionSecs:  envFloat("MIN_SESSION_SECONDS", 300),
		PercentileTable: envStr("PERCENTILE_TABLE", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}
