package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	ServiceName   string `envconfig:"SERVICE_NAME"   default:"order-service"`
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"postgres"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	SeedFile      string `envconfig:"SEED_FILE"`
	HTTPPort      string `envconfig:"HTTP_PORT"      default:":8082"`
	GrpcPort      string `envconfig:"GRPC_PORT"      default:":50052"` // health checks only
	LogLevel      string `envconfig:"LOG_LEVEL"      default:"info"`

	RedisURL       string        `envconfig:"REDIS_URL"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	KafkaBrokers string `envconfig:"KAFKA_BROKERS"`
	OrderTopic   string `envconfig:"ORDER_EVENTS_TOPIC" default:"marketplace.orders"`

	TracingExporter string `envconfig:"TRACING_EXPORTER" default:"none"`
	OTLPEndpoint    string `envconfig:"OTLP_ENDPOINT"    default:"localhost:4317"`
}

// Load reads an optional .env file, then the process environment.
func Load(logger *logrus.Logger) (*Config, error) {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		logger.Warnf("Error loading .env file (but continuing): %v", err)
	} else if err == nil {
		logger.Info("Loaded configuration from .env file")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration from environment variables: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger.Infof("Configuration loaded: Storage=%s, HTTP Port=%s, GRPC Port=%s, LogLevel=%s",
		cfg.StorageDriver, cfg.HTTPPort, cfg.GrpcPort, cfg.LogLevel)
	if cfg.RedisURL == "" {
		logger.Info("Configuration loaded: REDIS_URL not set, Idempotency-Key support disabled")
	}
	if cfg.KafkaBrokers == "" {
		logger.Info("Configuration loaded: KAFKA_BROKERS not set, order events disabled")
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("configuration error: DATABASE_URL is required for the %s driver", DriverPostgres)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("configuration error: unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	switch c.TracingExporter {
	case "none", "stdout", "otlp":
	default:
		return fmt.Errorf("configuration error: unknown TRACING_EXPORTER %q", c.TracingExporter)
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("configuration error: IDEMPOTENCY_TTL must be positive")
	}
	return nil
}

// Level parses LogLevel, falling back to info.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
