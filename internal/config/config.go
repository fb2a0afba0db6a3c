package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"APGuard"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"apguard"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Auth struct {
		// HMAC secret for approver bearer tokens. Empty disables auth
		// (local development only).
		JWTSecret string `envconfig:"JWT_SECRET"`
	}

	Matching struct {
		DateWindowDays     int     `envconfig:"MATCH_DATE_WINDOW_DAYS" default:"90"`
		BackdateGraceDays  int     `envconfig:"MATCH_BACKDATE_GRACE_DAYS" default:"3"`
		AmountTolerancePct float64 `envconfig:"MATCH_AMOUNT_TOLERANCE_PCT" default:"0.02"`
	}

	Workflow struct {
		SweepInterval time.Duration `envconfig:"WORKFLOW_SWEEP_INTERVAL" default:"1m"`
	}

	ERP struct {
		// Base URL of the ERP payment API. Empty disables payment release.
		BaseURL string `envconfig:"ERP_BASE_URL"`
		Token   string `envconfig:"ERP_TOKEN"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
