package config

import (
	"errors"
	"io/fs"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/Skotchmaster/storefront/pkg/config"
)

type ServiceConfig struct {
	config.Config

	RedisAddr       string
	RedisProductTTL time.Duration

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridBaseURL   string

	GCSBucket        string
	GCSPublicBaseURL string

	PaymentGatewayURL string
	PaymentKeyID      string
	PaymentKeySecret  string

	TxMaxAttempts int
	NotifyTimeout time.Duration

	OTLPEndpoint string
	TraceStdout  bool
}

// Load reads the environment, after merging a .env file from the working
// directory when there is one. Variables already set win over the file.
func Load() (ServiceConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ServiceConfig{}, err
	}

	base := config.Load()
	if base.ServiceName == "" {
		base.ServiceName = "shop"
	}
	cfg := ServiceConfig{
		Config: base,

		RedisAddr:       config.EnvDefault("REDIS_ADDR", ""),
		RedisProductTTL: config.EnvDurationDefault("REDIS_PRODUCT_TTL", 5*time.Minute),

		ESURL:      config.EnvDefault("ES_URL", ""),
		ESUser:     config.EnvDefault("ES_USER", ""),
		ESPassword: config.EnvDefault("ES_PASSWORD", ""),
		ESIndex:    config.EnvDefault("ES_INDEX", "products"),

		SendGridAPIKey:    config.EnvDefault("SENDGRID_API_KEY", ""),
		SendGridFromEmail: config.EnvDefault("SENDGRID_FROM_EMAIL", ""),
		SendGridBaseURL:   config.EnvDefault("SENDGRID_BASE_URL", "https://api.sendgrid.com"),

		GCSBucket:        config.EnvDefault("GCS_BUCKET", ""),
		GCSPublicBaseURL: config.EnvDefault("GCS_PUBLIC_BASE_URL", ""),

		PaymentGatewayURL: config.EnvDefault("PAYMENT_GATEWAY_URL", ""),
		PaymentKeyID:      config.EnvDefault("PAYMENT_KEY_ID", ""),
		PaymentKeySecret:  config.EnvDefault("PAYMENT_KEY_SECRET", ""),

		TxMaxAttempts: config.EnvIntDefault("TX_MAX_ATTEMPTS", 3),
		NotifyTimeout: config.EnvDurationDefault("NOTIFY_TIMEOUT", 10*time.Second),

		OTLPEndpoint: config.EnvDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TraceStdout:  config.EnvBoolDefault("TRACE_STDOUT", false),
	}

	if err := cfg.Validate(); err != nil {
		return ServiceConfig{}, err
	}
	return cfg, nil
}

// Validate checks the values the service cannot start without. Every other
// integration is switched off when its settings are empty.
func (c ServiceConfig) Validate() error {
	if err := config.RequireNonEmpty(map[string]string{
		"DATABASE_URL": c.DatabaseURL,
		"JWT_SECRET":   string(c.JWTAccessSecret),
		"AUTH_URL":     c.AuthHTTPURL,
	}); err != nil {
		return err
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return errors.New("SERVER_PORT out of range: " + strconv.Itoa(c.ServerPort))
	}
	if (c.PaymentKeyID == "") != (c.PaymentKeySecret == "") {
		return errors.New("PAYMENT_KEY_ID and PAYMENT_KEY_SECRET must be set together")
	}
	return nil
}

func (c ServiceConfig) Addr() string {
	return ":" + strconv.Itoa(c.ServerPort)
}
