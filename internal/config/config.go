package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Primary    Primary        `koanf:"primary"`
	Server     ServerConfig   `koanf:"server"`
	Database   DatabaseConfig `koanf:"database"`
	Redis      RedisConfig    `koanf:"redis"`
	Kafka      KafkaConfig    `koanf:"kafka"`
	BankClient BankConfig     `koanf:"bank_client"`
	Retry      RetryConfig    `koanf:"retry"`
	Sca        ScaConfig      `koanf:"sca"`
	Logger     LoggerConfig   `koanf:"logger"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
}

type RedisConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	Password        string        `koanf:"password"`
	DB              int           `koanf:"db"`
	ContinuationTTL time.Duration `koanf:"continuation_ttl" validate:"required"`
}

type KafkaConfig struct {
	Enabled bool     `koanf:"enabled"`
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

type BankConfig struct {
	BaseURL     string        `koanf:"base_url" validate:"required"`
	ConnTimeout time.Duration `koanf:"conn_timeout" validate:"required"`
}

type RetryConfig struct {
	BaseDelay  time.Duration `koanf:"base_delay"`
	MaxRetries int           `koanf:"max_retries"`
}

// ScaConfig is the deployment's SCA profile.
type ScaConfig struct {
	// Approaches is the approach priority list, highest priority first.
	Approaches                       []string `koanf:"approaches" validate:"required,min=1"`
	ConfirmationMandated             bool     `koanf:"confirmation_mandated"`
	ConfirmationCodeCheckedByBackend bool     `koanf:"confirmation_code_checked_by_backend"`
	CancellationScaMandated          bool     `koanf:"cancellation_sca_mandated"`
	RedirectURLTemplate              string   `koanf:"redirect_url_template"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

// validate catches the constraints the struct tags cannot express: a
// configured REDIRECT approach needs a template with exactly one %s slot for
// the authorisation id.
func (c ScaConfig) validate() error {
	for _, a := range c.Approaches {
		if a == "REDIRECT" && strings.Count(c.RedirectURLTemplate, "%s") != 1 {
			return fmt.Errorf("sca.redirect_url_template must contain exactly one %%s, got %q", c.RedirectURLTemplate)
		}
	}
	return nil
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("ENGINE_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "ENGINE_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	if err := mainConfig.Sca.validate(); err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
