package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultConfigPath = "config/local.yaml"

type HTTPServer struct {
	Addr            string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

type Database struct {
	Host            string        `yaml:"PG_HOST" env:"PG_HOST" env-default:"localhost"`
	Port            string        `yaml:"PG_PORT" env:"PG_PORT" env-default:"5432"`
	User            string        `yaml:"PG_USER" env:"PG_USER" env-required:"true"`
	Password        string        `yaml:"PG_PASSWORD" env:"PG_PASSWORD" env-required:"true"`
	Name            string        `yaml:"PG_DBNAME" env:"PG_DBNAME" env-required:"true"`
	SSLMode         string        `yaml:"PG_SSLMODE" env:"PG_SSLMODE" env-default:"require"`
	MaxOpenConns    int           `yaml:"MAX_OPEN_CONNS" env:"PG_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns    int           `yaml:"MAX_IDLE_CONNS" env:"PG_MAX_IDLE_CONNS" env-default:"10"`
	ConnMaxLifetime time.Duration `yaml:"CONN_MAX_LIFETIME" env:"PG_CONN_MAX_LIFETIME" env-default:"30m"`
	ConnMaxIdleTime time.Duration `yaml:"CONN_MAX_IDLE_TIME" env:"PG_CONN_MAX_IDLE_TIME" env-default:"5m"`
	SkipMigrations  bool          `yaml:"SKIP_MIGRATIONS" env:"PG_SKIP_MIGRATIONS" env-default:"false"`
}

type RedisConnect struct {
	Host     string `yaml:"REDIS_HOST" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"REDIS_PORT" env:"REDIS_PORT" env-default:"6379"`
	Username string `yaml:"REDIS_USER" env:"REDIS_USER"`
	Password string `yaml:"REDIS_PASSWORD" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"REDIS_DB" env:"REDIS_DB" env-default:"0"`
}

// RateConfig bounds how many payment intents a single user may request per window.
type RateConfig struct {
	MaxAttempts int64         `yaml:"MAX_ATTEMPTS" env:"MAX_ATTEMPTS" env-default:"5"`
	WindowSize  time.Duration `yaml:"WINDOW_SIZE" env:"WINDOW_SIZE" env-default:"1m"`
}

type Stripe struct {
	APIKey             string        `yaml:"STRIPE_API_KEY" env:"STRIPE_API_KEY" env-default:""`
	BackendURL         string        `yaml:"STRIPE_BACKEND_URL" env:"STRIPE_BACKEND_URL" env-default:""`
	BreakerMaxFailures uint32        `yaml:"BREAKER_MAX_FAILURES" env:"STRIPE_BREAKER_MAX_FAILURES" env-default:"5"`
	BreakerOpenTimeout time.Duration `yaml:"BREAKER_OPEN_TIMEOUT" env:"STRIPE_BREAKER_OPEN_TIMEOUT" env-default:"30s"`
}

type SendGridConfig struct {
	APIKey    string `yaml:"API_KEY" env:"SENDGRID_API_KEY"`
	FromEmail string `yaml:"FROM_EMAIL" env:"SENDGRID_FROM_EMAIL" env-default:"orders@jerseyshop.example"`
	FromName  string `yaml:"FROM_NAME" env:"SENDGRID_FROM_NAME" env-default:"Jersey Shop"`
}

type SecurityConfig struct {
	JWTKey         string `yaml:"JWT_KEY" env:"JWT_KEY" env-required:"true"`
	JWTExpiryHours int    `yaml:"JWT_EXPIRY_HOURS" env:"JWT_EXPIRY_HOURS" env-default:"24"`
}

type OtelConfig struct {
	Enabled          bool    `yaml:"ENABLED" env:"OTEL_ENABLED" env-default:"false"`
	ServiceName      string  `yaml:"SERVICE_NAME" env:"OTEL_SERVICE_NAME" env-default:"storefront-api"`
	ExporterEndpoint string  `yaml:"EXPORTER_ENDPOINT" env:"OTEL_EXPORTER_ENDPOINT" env-default:"localhost:4318"`
	SamplerRatio     float64 `yaml:"SAMPLER_RATIO" env:"OTEL_SAMPLER_RATIO" env-default:"1.0"`
}

type CacheConfig struct {
	DefaultTTL time.Duration `yaml:"default_ttl" env:"CACHE_DEFAULT_TTL" env-default:"5m"`
	ProductTTL time.Duration `yaml:"product_ttl" env:"CACHE_PRODUCT_TTL" env-default:"30s"`
}

type KafkaConfig struct {
	Enabled    bool     `yaml:"ENABLED" env:"KAFKA_ENABLED" env-default:"false"`
	Brokers    []string `yaml:"BROKERS" env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	OrderTopic string   `yaml:"ORDER_TOPIC" env:"KAFKA_ORDER_TOPIC" env-default:"order.placed"`
}

// CheckoutConfig holds the knobs of the two checkout phases.
type CheckoutConfig struct {
	Currency                  string        `yaml:"CURRENCY" env:"CHECKOUT_CURRENCY" env-default:"usd"`
	GatewayTimeout            time.Duration `yaml:"GATEWAY_TIMEOUT" env:"CHECKOUT_GATEWAY_TIMEOUT" env-default:"10s"`
	FinalizeTimeout           time.Duration `yaml:"FINALIZE_TIMEOUT" env:"CHECKOUT_FINALIZE_TIMEOUT" env-default:"15s"`
	NotificationTimeout       time.Duration `yaml:"NOTIFICATION_TIMEOUT" env:"CHECKOUT_NOTIFICATION_TIMEOUT" env-default:"10s"`
	NotificationRetryInterval time.Duration `yaml:"NOTIFICATION_RETRY_INTERVAL" env:"CHECKOUT_NOTIFICATION_RETRY_INTERVAL" env-default:"1m"`
	NotificationMaxAttempts   int           `yaml:"NOTIFICATION_MAX_ATTEMPTS" env:"CHECKOUT_NOTIFICATION_MAX_ATTEMPTS" env-default:"5"`
}

type Config struct {
	Env          string `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer   `yaml:"http_server"`
	Database     Database       `yaml:"database"`
	RedisConnect RedisConnect   `yaml:"redis"`
	RateConfig   RateConfig     `yaml:"rateConfig"`
	Stripe       Stripe         `yaml:"stripe"`
	SendGrid     SendGridConfig `yaml:"sendgrid"`
	Security     SecurityConfig `yaml:"security"`
	Otel         OtelConfig     `yaml:"otel"`
	Cache        CacheConfig    `yaml:"cache"`
	Kafka        KafkaConfig    `yaml:"kafka"`
	Checkout     CheckoutConfig `yaml:"checkout"`
}

// MustLoad resolves the config path from CONFIG_PATH, then the -config flag,
// then config/local.yaml, and exits on failure.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "path to the config file")
		flag.Parse()

		configPath = *flags
	}

	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := LoadConfigFromPath(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %s", err.Error())
	}

	return cfg
}

func LoadConfigFromPath(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("can not read config file: %w", err)
	}

	return &cfg, nil
}

func (d *Database) GetDSN() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

func (r *RedisConnect) GetDSN() string {
	return fmt.Sprintf("redis://%s:%s@%s:%s", r.Username, r.Password, r.Host, r.Port)
}
