// Package config loads runtime configuration from the environment,
// with an optional .env style file for local development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	HTTP struct {
		Addr            string        `env:"HTTP_ADDR" env-default:":8080"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
	}

	DB struct {
		DSN string `env:"DB_DSN" env-default:""` // empty means in-memory store
		// legacy | current, which column generation the database carries
		Schema string `env:"DB_SCHEMA_TARGET" env-default:"current"`
	}

	Provider struct {
		BaseURL      string        `env:"TBK_BASE_URL" env-default:"https://webpay3gint.transbank.cl"`
		CommerceCode string        `env:"TBK_COMMERCE_CODE" env-default:"597055555541"`
		APIKey       string        `env:"TBK_API_KEY" env-default:""`
		Timeout      time.Duration `env:"TBK_TIMEOUT" env-default:"30s"`
	}

	Kafka struct {
		Enabled bool   `env:"KAFKA_ENABLED" env-default:"false"`
		Brokers string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
		Topic   string `env:"KAFKA_TOPIC" env-default:"oneclick.transactions.authorized"`
	}

	Auth struct {
		Secret   string        `env:"JWT_SECRET" env-default:""`
		Issuer   string        `env:"JWT_ISS" env-default:"oneclick-api"`
		Audience string        `env:"JWT_AUD" env-default:"oneclick-clients"`
		TTL      time.Duration `env:"JWT_ACCESS_TTL" env-default:"15m"`
	}

	Inscription struct {
		PendingTTL    time.Duration `env:"INSCRIPTION_PENDING_TTL" env-default:"1h"`
		SweepInterval time.Duration `env:"INSCRIPTION_SWEEP_INTERVAL" env-default:"5m"`
	}

	Development bool `env:"DEV_MODE" env-default:"false"`
}

// Load reads configuration from the environment. If path is non-empty
// and the file exists, it is read first and the environment wins.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("read config file %s: %w", path, err)
			}
			return cfg, nil
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}
