package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const envPrefix = "SESSION"

var validate = validator.New()

type GRPC struct {
	Addr string `yaml:"addr" validate:"required,hostname_port"`
}

type HTTP struct {
	Addr string `yaml:"addr" validate:"required,hostname_port"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // session-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend" validate:"oneof=std zap"`
	Level     string `yaml:"level" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	AddSource bool   `yaml:"addSource" split_words:"true"`
	Debug     bool   `yaml:"debug"`
}

// Postgres: пустой DSN выключает журнал сессий.
type Postgres struct {
	DSN        string        `yaml:"dsn"`
	MaxConns   int32         `yaml:"maxConns" split_words:"true" validate:"gte=0"`
	QueueSize  int           `yaml:"queueSize" split_words:"true" validate:"gt=0"`
	BatchSize  int           `yaml:"batchSize" split_words:"true" validate:"gt=0"`
	FlushEvery time.Duration `yaml:"flushEvery" split_words:"true" validate:"gt=0"`
}

type Presence struct {
	GracePeriod   time.Duration `yaml:"gracePeriod" split_words:"true" validate:"gt=0"`
	SweepInterval time.Duration `yaml:"sweepInterval" split_words:"true" validate:"gt=0"`
	SendQueue     int           `yaml:"sendQueue" split_words:"true" validate:"gt=0"`
}

type WS struct {
	PingEvery time.Duration `yaml:"pingEvery" split_words:"true" validate:"gt=0"`
	ReadLimit int64         `yaml:"readLimit" split_words:"true" validate:"gt=0"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowedOrigins" split_words:"true" validate:"dive,url"`
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	GRPC     GRPC     `yaml:"grpc"`
	Logging  Logging  `yaml:"logging"`
	Postgres Postgres `yaml:"postgres"`
	Presence Presence `yaml:"presence"`
	WS       WS       `yaml:"ws"`
	CORS     CORS     `yaml:"cors"`
}

// LoadConfig читает YAML из CONFIG_PATH, поверх него переменные SESSION_*
// (в том числе из .env), затем дефолты.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	path, explicit := os.LookupEnv("CONFIG_PATH")
	if !explicit || path == "" {
		path = "./config/config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// без файла работаем на env и дефолтах
	default:
		return nil, err
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) JournalEnabled() bool { return c.Postgres.DSN != "" }

func (c *Config) validate() error {
	// установка дефолтов, если значения не указаны
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.GRPC.Addr == "" {
		c.GRPC.Addr = ":9090"
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "session-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}

	if c.Presence.GracePeriod == 0 {
		c.Presence.GracePeriod = 120 * time.Second
	}
	if c.Presence.SweepInterval == 0 {
		c.Presence.SweepInterval = 30 * time.Second
	}
	if c.Presence.SendQueue == 0 {
		c.Presence.SendQueue = 64
	}

	if c.WS.PingEvery == 0 {
		c.WS.PingEvery = 15 * time.Second
	}
	if c.WS.ReadLimit == 0 {
		c.WS.ReadLimit = 1 << 20
	}

	if c.Postgres.QueueSize == 0 {
		c.Postgres.QueueSize = 1024
	}
	if c.Postgres.BatchSize == 0 {
		c.Postgres.BatchSize = 100
	}
	if c.Postgres.FlushEvery == 0 {
		c.Postgres.FlushEvery = time.Second
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
