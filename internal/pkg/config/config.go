package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, etc.), security settings
// - default: Values common across all environments (timezone, timeout, etc.), standard settings
// -----------------------------------------------------------------------------

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	CORS      CORSConfig
	Log       LogConfig
	JWT       JWTConfig
	Gateway   GatewayConfig
	Checkout  CheckoutConfig
	Reconcile ReconcileConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host        string `envconfig:"DB_HOST" default:"localhost"`
	Port        string `envconfig:"DB_PORT" default:"5432"`
	User        string `envconfig:"DB_USER" required:"true"`
	Password    string `envconfig:"DB_PASSWORD" required:"true"`
	DBName      string `envconfig:"DB_NAME" required:"true"`
	SSLMode     string `envconfig:"DB_SSL_MODE" default:"disable"`
	TimeZone    string `envconfig:"DB_TIMEZONE" default:"Asia/Tokyo"`
	MaxConns    int32  `envconfig:"DB_MAX_CONNS" default:"20"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"true"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level      string `envconfig:"LOG_LEVEL" default:"info"`
	TimeZone   string `envconfig:"LOG_TIMEZONE" default:"Asia/Tokyo"`
	TimeFormat string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
	TimeZoneOffset int    `envconfig:"LOG_TIMEZONE_OFFSET" default:"32400"` // 9*60*60
}

type JWTConfig struct {
	Secret   string `envconfig:"JWT_SECRET" required:"true"`
	Duration string `envconfig:"JWT_DURATION" default:"24h"`
}

// GatewayConfig holds the payment gateway credentials. KeySecret signs the
// client-verify channel and WebhookSecret signs webhook bodies.
type GatewayConfig struct {
	BaseURL       string        `envconfig:"GATEWAY_BASE_URL" default:"https://api.razorpay.com"`
	KeyID         string        `envconfig:"GATEWAY_KEY_ID" required:"true"`
	KeySecret     string        `envconfig:"GATEWAY_KEY_SECRET" required:"true"`
	WebhookSecret string        `envconfig:"GATEWAY_WEBHOOK_SECRET" required:"true"`
	Timeout       time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"10s"`

	// Consecutive transport failures before the breaker opens.
	BreakerFailures    int           `envconfig:"GATEWAY_BREAKER_FAILURES" default:"5"`
	BreakerOpenTimeout time.Duration `envconfig:"GATEWAY_BREAKER_OPEN_TIMEOUT" default:"30s"`
}

type CheckoutConfig struct {
	Currency      string        `envconfig:"CHECKOUT_CURRENCY" default:"INR"`
	IntentTTL     time.Duration `envconfig:"CHECKOUT_INTENT_TTL" default:"30m"`
	SweepInterval time.Duration `envconfig:"CHECKOUT_SWEEP_INTERVAL" default:"1m"`
	SweepBatch    int           `envconfig:"CHECKOUT_SWEEP_BATCH" default:"100"`
}

type LockMode string

const (
	LockModeNone     LockMode = "none"
	LockModePostgres LockMode = "postgres"
	LockModeRedis    LockMode = "redis"
)

type ReconcileConfig struct {
	LockMode LockMode      `envconfig:"RECONCILE_LOCK_MODE" default:"none"`
	LockTTL  time.Duration `envconfig:"RECONCILE_LOCK_TTL" default:"15s"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// KafkaConfig: an empty broker list keeps outbox events in the log only.
type KafkaConfig struct {
	Brokers       []string      `envconfig:"KAFKA_BROKERS" default:""`
	Topic         string        `envconfig:"KAFKA_TOPIC" default:"checkout.events"`
	RelayInterval time.Duration `envconfig:"KAFKA_RELAY_INTERVAL" default:"2s"`
	RelayBatch    int           `envconfig:"KAFKA_RELAY_BATCH" default:"50"`
	MaxAttempts   int           `envconfig:"KAFKA_RELAY_MAX_ATTEMPTS" default:"10"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&timezone=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.TimeZone,
	)
}

func (c KafkaConfig) Enabled() bool {
	for _, b := range c.Brokers {
		if b != "" {
			return true
		}
	}
	return false
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	switch cfg.Reconcile.LockMode {
	case LockModeNone, LockModePostgres, LockModeRedis:
	default:
		return Config{}, fmt.Errorf("unknown RECONCILE_LOCK_MODE %q", cfg.Reconcile.LockMode)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889", // Test port
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433", // Test DB port
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
			TimeZone: "Asia/Tokyo",
			MaxConns: 10,
		},
		Log: LogConfig{
			Level:          "error", // Error level only for tests
			TimeZone:       "Asia/Tokyo",
			TimeFormat:     "2006-01-02 15:04:05.000",
			TimeZoneOffset: 32400,
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"http://localhost:3000"},
			AllowMethods: []string{"GET", "POST", "PUT", "DELETE"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		},
		JWT: JWTConfig{
			Secret:   "test-secret",
			Duration: "1h",
		},
		Gateway: GatewayConfig{
			BaseURL:            "http://localhost:0",
			KeyID:              "rzp_test_key",
			KeySecret:          "test-key-secret",
			WebhookSecret:      "test-webhook-secret",
			Timeout:            2 * time.Second,
			BreakerFailures:    5,
			BreakerOpenTimeout: time.Second,
		},
		Checkout: CheckoutConfig{
			Currency:      "INR",
			IntentTTL:     30 * time.Minute,
			SweepInterval: time.Minute,
			SweepBatch:    100,
		},
		Reconcile: ReconcileConfig{
			LockMode: LockModeNone,
			LockTTL:  15 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic:         "checkout.events",
			RelayInterval: 2 * time.Second,
			RelayBatch:    50,
			MaxAttempts:   3,
		},
	}
}
