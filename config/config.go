package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Database DatabaseConfig `envconfig:"DB"`
	JWT      JWTConfig      `envconfig:"JWT"`
	Payment  PaymentConfig  `envconfig:"PAYMENT"`
	Omise    OmiseConfig    `envconfig:"OMISE"`
	Meeting  MeetingConfig  `envconfig:"MEETING"`
	Events   EventsConfig   `envconfig:"EVENTS"`
	Tracing  TracingConfig  `envconfig:"TRACING"`
	Log      LogConfig      `envconfig:"LOG"`
}

type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8099"`
	Env             string        `envconfig:"ENV" default:"development"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	RateLimitRPS    float64       `envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst  int           `envconfig:"RATE_LIMIT_BURST" default:"20"`
}

// DatabaseConfig selects the gorm dialector. Driver is "mysql" or "sqlite".
type DatabaseConfig struct {
	Driver          string        `envconfig:"DRIVER" default:"mysql"`
	DSN             string        `envconfig:"DSN" default:"mentorly:mentorly@tcp(localhost:3306)/mentorly?charset=utf8mb4&parseTime=True&loc=UTC"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"10"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"100"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"1h"`
}

type JWTConfig struct {
	AccessSecret string        `envconfig:"ACCESS_SECRET"`
	AccessExpiry time.Duration `envconfig:"ACCESS_EXPIRY" default:"15m"`
	Issuer       string        `envconfig:"ISSUER" default:"mentorly"`
}

type PaymentConfig struct {
	// Provider is "omise" or "stub".
	Provider      string `envconfig:"PROVIDER" default:"stub"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
	Currency      string `envconfig:"CURRENCY" default:"thb"`
}

type OmiseConfig struct {
	PublicKey string `envconfig:"PUBLIC_KEY"`
	SecretKey string `envconfig:"SECRET_KEY"`
}

type MeetingConfig struct {
	BaseURL string `envconfig:"BASE_URL" default:"https://meet.mentorly.local"`
}

// EventsConfig controls domain event publishing. An empty AMQPURL disables it.
type EventsConfig struct {
	AMQPURL    string `envconfig:"AMQP_URL"`
	Exchange   string `envconfig:"EXCHANGE" default:"mentorly.events"`
	Workers    int    `envconfig:"WORKERS" default:"2"`
	BufferSize int    `envconfig:"BUFFER_SIZE" default:"256"`
}

type TracingConfig struct {
	Enabled     bool   `envconfig:"ENABLED" default:"false"`
	Endpoint    string `envconfig:"ENDPOINT" default:"otel-collector:4317"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"mentorly"`
}

type LogConfig struct {
	Level string `envconfig:"LEVEL" default:"info"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.AccessSecret == "" {
		return errors.New("JWT_ACCESS_SECRET is required")
	}
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.Payment.Provider {
	case "stub":
		if c.Server.Env == "production" {
			return errors.New("stub payment provider is not allowed in production")
		}
	case "omise":
		if c.Omise.PublicKey == "" || c.Omise.SecretKey == "" {
			return errors.New("OMISE_PUBLIC_KEY and OMISE_SECRET_KEY are required for the omise provider")
		}
	default:
		return fmt.Errorf("unsupported PAYMENT_PROVIDER %q", c.Payment.Provider)
	}
	return nil
}
