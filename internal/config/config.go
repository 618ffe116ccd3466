package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"timebank"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"timebank"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"timebank"`
	}

	Auth struct {
		JWTSecret string        `envconfig:"JWT_SECRET" default:"supersecretdev"`
		TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	}

	Timebank struct {
		// StartingBonus and BalanceCeiling are decimal strings so the
		// bounds stay exact two-place amounts.
		StartingBonus  string `envconfig:"STARTING_BONUS" default:"3.00"`
		BalanceCeiling string `envconfig:"BALANCE_CEILING" default:"10.00"`
	}

	CORS struct {
		AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// Bounds parses the configured balance bounds.
func (c *Config) Bounds() (startingBonus, ceiling decimal.Decimal, err error) {
	startingBonus, err = decimal.NewFromString(c.Timebank.StartingBonus)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("invalid STARTING_BONUS: %w", err)
	}
	ceiling, err = decimal.NewFromString(c.Timebank.BalanceCeiling)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("invalid BALANCE_CEILING: %w", err)
	}
	return startingBonus, ceiling, nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return &cfg, nil
}
