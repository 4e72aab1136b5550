package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(New),
)

// Source tells New where to read configuration from. Main supplies it.
type Source struct {
	Path    string
	EnvFile string

	// PlansFile overrides plans.file when set.
	PlansFile string
}

type Config struct {
	AppName     string
	Environment string
	LogLevel    string
	LogFormat   string

	Stripe   StripeConfig
	Plans    PlansConfig
	Database DatabaseConfig
	Redis    RedisConfig
	HTTP     HTTPConfig
}

type StripeConfig struct {
	SecretKey        string
	BaseURL          string
	APIVersion       string
	WebhookSecret    string
	WebhookTolerance time.Duration
	Timeout          time.Duration
}

type PlansConfig struct {
	File            string
	DefaultCurrency string
	RedeclarePolicy string
}

type DatabaseConfig struct {
	Driver string
	DSN    string

	// Retention bounds how long sync records are kept. Zero keeps them forever.
	Retention time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

type HTTPConfig struct {
	Addr string
}

func New(src Source) (Config, error) {
	return Load(src)
}

// Load reads configuration with precedence env > config file > defaults.
// Secrets are only read from the environment.
func Load(src Source) (Config, error) {
	envFile := src.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	v.SetDefault("app_name", "plansync")
	v.SetDefault("environment", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("stripe.base_url", "https://api.stripe.com")
	v.SetDefault("stripe.api_version", "")
	v.SetDefault("stripe.webhook_tolerance", "5m")
	v.SetDefault("stripe.timeout", "10s")
	v.SetDefault("plans.file", "config/plans.yaml")
	v.SetDefault("plans.default_currency", "usd")
	v.SetDefault("plans.redeclare_policy", "overwrite")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:plansync.db?cache=shared")
	v.SetDefault("database.retention", "0s")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "10m")
	v.SetDefault("http.addr", ":8080")

	v.SetEnvPrefix("PLANSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if src.Path != "" {
		v.SetConfigFile(src.Path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := validateNoSecretsInConfig(v); err != nil {
			return Config{}, err
		}
	}

	cfg := Config{
		AppName:     v.GetString("app_name"),
		Environment: v.GetString("environment"),
		LogLevel:    v.GetString("log.level"),
		LogFormat:   v.GetString("log.format"),
		Stripe: StripeConfig{
			SecretKey:        os.Getenv("PLANSYNC_STRIPE_SECRET_KEY"),
			BaseURL:          v.GetString("stripe.base_url"),
			APIVersion:       v.GetString("stripe.api_version"),
			WebhookSecret:    os.Getenv("PLANSYNC_STRIPE_WEBHOOK_SECRET"),
			WebhookTolerance: v.GetDuration("stripe.webhook_tolerance"),
			Timeout:          v.GetDuration("stripe.timeout"),
		},
		Plans: PlansConfig{
			File:            v.GetString("plans.file"),
			DefaultCurrency: strings.ToLower(v.GetString("plans.default_currency")),
			RedeclarePolicy: v.GetString("plans.redeclare_policy"),
		},
		Database: DatabaseConfig{
			Driver:    v.GetString("database.driver"),
			DSN:       v.GetString("database.dsn"),
			Retention: v.GetDuration("database.retention"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: os.Getenv("PLANSYNC_REDIS_PASSWORD"),
			DB:       v.GetInt("redis.db"),
			LockTTL:  v.GetDuration("redis.lock_ttl"),
		},
		HTTP: HTTPConfig{
			Addr: v.GetString("http.addr"),
		},
	}

	if src.PlansFile != "" {
		cfg.Plans.File = src.PlansFile
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", cfg.Database.Driver)
	}
	if cfg.Stripe.Timeout <= 0 {
		return fmt.Errorf("stripe.timeout must be positive, got %v", cfg.Stripe.Timeout)
	}
	if cfg.Stripe.WebhookTolerance < 0 {
		return fmt.Errorf("stripe.webhook_tolerance must not be negative, got %v", cfg.Stripe.WebhookTolerance)
	}
	if cfg.Database.Retention < 0 {
		return fmt.Errorf("database.retention must not be negative, got %v", cfg.Database.Retention)
	}
	if cfg.Redis.LockTTL <= 0 {
		return fmt.Errorf("redis.lock_ttl must be positive, got %v", cfg.Redis.LockTTL)
	}
	return nil
}

func validateNoSecretsInConfig(v *viper.Viper) error {
	for _, key := range []string{"stripe.secret_key", "stripe.webhook_secret", "redis.password"} {
		if v.InConfig(key) {
			return fmt.Errorf("%s is not allowed in config files, use the PLANSYNC_%s environment variable",
				key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
		}
	}
	return nil
}
