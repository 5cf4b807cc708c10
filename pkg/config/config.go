package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	Backend    BackendConfig
	Cashfree   CashfreeConfig
	GoogleMaps GoogleMapsConfig
	GST        GSTConfig
	Delivery   DeliveryConfig
	Poller     PollerConfig
	Storage    StorageConfig
	Redis      RedisConfig
	Webhook    WebhookConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BUILDMART_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"BUILDMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BUILDMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type BackendConfig struct {
	BaseURL      string        `envconfig:"BUILDMART_BACKEND_BASE_URL" required:"true"`
	ClientID     string        `envconfig:"BUILDMART_BACKEND_CLIENT_ID" required:"true"`
	ClientSecret string        `envconfig:"BUILDMART_BACKEND_CLIENT_SECRET" required:"true"`
	Timeout      time.Duration `envconfig:"BUILDMART_BACKEND_TIMEOUT" default:"15s"`
}

type CashfreeConfig struct {
	BaseURL       string `envconfig:"BUILDMART_CASHFREE_BASE_URL" default:"https://sandbox.cashfree.com/pg"`
	AppID         string `envconfig:"BUILDMART_CASHFREE_APP_ID"`
	SecretKey     string `envconfig:"BUILDMART_CASHFREE_SECRET_KEY"`
	APIVersion    string `envconfig:"BUILDMART_CASHFREE_API_VERSION" default:"2023-08-01"`
	NotifyURL     string `envconfig:"BUILDMART_CASHFREE_NOTIFY_URL"`
	WebhookSecret string `envconfig:"BUILDMART_CASHFREE_WEBHOOK_SECRET"`
}

type GoogleMapsConfig struct {
	APIKey  string        `envconfig:"BUILDMART_GOOGLE_MAPS_API_KEY"`
	Timeout time.Duration `envconfig:"BUILDMART_GOOGLE_MAPS_TIMEOUT" default:"4s"`
}

type GSTConfig struct {
	BaseURL string `envconfig:"BUILDMART_GST_BASE_URL"`
	APIKey  string `envconfig:"BUILDMART_GST_API_KEY"`
}

type DeliveryConfig struct {
	OriginLat float64 `envconfig:"BUILDMART_DELIVERY_ORIGIN_LAT" required:"true"`
	OriginLng float64 `envconfig:"BUILDMART_DELIVERY_ORIGIN_LNG" required:"true"`
	RadiusKm  float64 `envconfig:"BUILDMART_DELIVERY_RADIUS_KM" default:"25"`
}

type PollerConfig struct {
	Interval   time.Duration `envconfig:"BUILDMART_POLLER_INTERVAL" default:"5s"`
	Timeout    time.Duration `envconfig:"BUILDMART_POLLER_TIMEOUT" default:"5m"`
	GraceDelay time.Duration `envconfig:"BUILDMART_POLLER_GRACE_DELAY" default:"2s"`
}

type StorageConfig struct {
	Driver string `envconfig:"BUILDMART_STORAGE_DRIVER" default:"sqlite"`
	Path   string `envconfig:"BUILDMART_STORAGE_PATH" default:"storefront.db"`
}

func (s StorageConfig) IsSQLite() bool {
	return strings.EqualFold(s.Driver, StorageDriverSQLite)
}

func (s StorageConfig) IsRedis() bool {
	return strings.EqualFold(s.Driver, StorageDriverRedis)
}

func (s StorageConfig) IsMemory() bool {
	return strings.EqualFold(s.Driver, StorageDriverMemory)
}

func (s *StorageConfig) validate() error {
	if !s.IsSQLite() && !s.IsRedis() && !s.IsMemory() {
		return fmt.Errorf("unknown storage driver %q", s.Driver)
	}
	if s.IsSQLite() && strings.TrimSpace(s.Path) == "" {
		return fmt.Errorf("%s is required for the sqlite storage driver", EnvStoragePath)
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"BUILDMART_REDIS_URL"`
	Address      string        `envconfig:"BUILDMART_REDIS_ADDR"`
	Password     string        `envconfig:"BUILDMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"BUILDMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BUILDMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BUILDMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BUILDMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BUILDMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BUILDMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type WebhookConfig struct {
	Enabled bool   `envconfig:"BUILDMART_WEBHOOK_ENABLED" default:"false"`
	Port    string `envconfig:"BUILDMART_WEBHOOK_PORT" default:"8089"`
}
