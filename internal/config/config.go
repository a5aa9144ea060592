package config

import (
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	Port                   string `env:"PORT" envDefault:"8080"`
	DBUser                 string `env:"DB_USER,required"`
	DBPassword             string `env:"DB_PASSWORD,required"`
	DBHost                 string `env:"DB_HOST,required"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string `env:"DB_NAME,required"`
	DBPort                 string `env:"DB_PORT" envDefault:"3306"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`

	// Payment webhook boundary.
	WebhookSecret    string `env:"WEBHOOK_SECRET,required"`
	WebhookMaxBody   int64  `env:"WEBHOOK_MAX_BODY" envDefault:"16384"`
	WebhookRateLimit int    `env:"WEBHOOK_RATE_LIMIT" envDefault:"30"`
	SeenCacheSize    int    `env:"SEEN_CACHE_SIZE" envDefault:"10000"`

	// Optional shared idempotency store; empty keeps the in-memory cache.
	RedisAddr string `env:"REDIS_ADDR"`

	// Optional order-events producer; empty disables publishing.
	KafkaBrokers    []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaOrderTopic string   `env:"KAFKA_ORDER_TOPIC" envDefault:"order-events"`

	// Hex-encoded AES key for sensitive order fields; empty stores plaintext.
	FieldEncryptionKey string `env:"FIELD_ENCRYPTION_KEY"`

	OrderTTL    time.Duration `env:"ORDER_TTL" envDefault:"30m"`
	SweepPeriod time.Duration `env:"SWEEP_PERIOD" envDefault:"1m"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
