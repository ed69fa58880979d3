package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	ServerPort          string
	WebhookSecret       string
	PaymentProvider     string
	FeeRate             float64
	FeeFixed            float64
	GatewayAPIURL       string
	GatewayAPIKey       string
	KafkaBrokers        []string
	KafkaTopic          string
	ReconcileInterval   time.Duration
	ReconcileStaleAfter time.Duration
	AllowedOrigins      []string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		WebhookSecret:       os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		PaymentProvider:     getEnv("PAYMENT_PROVIDER", "stripe"),
		FeeRate:             getEnvFloat("PAYMENT_FEE_RATE", 0.029),
		FeeFixed:            getEnvFloat("PAYMENT_FEE_FIXED", 0.30),
		GatewayAPIURL:       os.Getenv("GATEWAY_API_URL"),
		GatewayAPIKey:       os.Getenv("GATEWAY_API_KEY"),
		KafkaBrokers:        splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:          getEnv("KAFKA_TOPIC", "fulfillment-events"),
		ReconcileInterval:   getEnvDuration("RECONCILE_INTERVAL", 1*time.Minute),
		ReconcileStaleAfter: getEnvDuration("RECONCILE_STALE_AFTER", 15*time.Minute),
		AllowedOrigins:      splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}
	if c.WebhookSecret == "" {
		return fmt.Errorf("PAYMENT_WEBHOOK_SECRET is required")
	}
	if c.FeeRate < 0 || c.FeeRate >= 1 {
		return fmt.Errorf("PAYMENT_FEE_RATE out of range: %v", c.FeeRate)
	}
	return nil
}

// KafkaEnabled reports whether the platform event mirror should run. Brokers
// are optional; the pipeline works without them.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
