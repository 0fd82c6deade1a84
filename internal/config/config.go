package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel string

	HTTPAddr string

	// DatabaseURL selects the Postgres event store; empty keeps events in memory.
	DatabaseURL    string
	DBMaxOpenConns int
	// KafkaBrokers enables event publishing and consumption; empty disables it.
	KafkaBrokers []string
	KafkaTopic   string

	// RedisAddr selects the Redis cart slot; empty keeps the cart in memory.
	RedisAddr string
	CartKey   string
	CartTTL   time.Duration

	OrderEndpoint string
	SubmitTimeout time.Duration
	// POSFlow is the checkout flow the terminal POS runs: in_person or online.
	POSFlow string

	CatalogFile string

	SMTPHost string
	SMTPPort string
	SMTPFrom string
}

func Load() Config {
	return Config{
		AppEnv:         getEnv("APP_ENV", "dev"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		KafkaBrokers:   splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "bakery-orders"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		CartKey:        getEnv("CART_KEY", ""),
		CartTTL:        getEnvDuration("CART_TTL", 24*time.Hour),
		OrderEndpoint:  getEnv("ORDER_ENDPOINT", "http://localhost:8080"),
		SubmitTimeout:  getEnvDuration("SUBMIT_TIMEOUT", 10*time.Second),
		POSFlow:        getEnv("POS_FLOW", "in_person"),
		CatalogFile:    getEnv("CATALOG_FILE", "configs/catalog.yaml"),
		SMTPHost:       getEnv("SMTP_HOST", "localhost"),
		SMTPPort:       getEnv("SMTP_PORT", "1025"),
		SMTPFrom:       getEnv("SMTP_FROM", "ventas@panaderia.local"),
	}
}

// IsDev reports whether the process runs in a development environment.
func (c Config) IsDev() bool {
	return c.AppEnv == "dev"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
