package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"

	"github.com/Skotchmaster/storefront/pkg/config"
)

type Config struct {
	ServiceName string
	ListenAddr  string
	LogLevel    string

	AuthURL string
	ShopURL string

	JWTSecret []byte

	CSRFSecureCookie bool
	UpstreamTimeout  time.Duration

	OTLPEndpoint string
	TraceStdout  bool
}

func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	cfg := Config{
		ServiceName: config.EnvDefault("SERVICE_NAME", "gateway"),
		ListenAddr:  config.EnvDefault("GATEWAY_ADDR", ":8080"),
		LogLevel:    config.EnvDefault("LOG_LEVEL", "info"),

		AuthURL: config.EnvDefault("AUTH_URL", ""),
		ShopURL: config.EnvDefault("SHOP_URL", ""),

		JWTSecret: []byte(config.EnvDefault("JWT_SECRET", "")),

		CSRFSecureCookie: config.EnvBoolDefault("CSRF_SECURE_COOKIE", true),
		UpstreamTimeout:  config.EnvDurationDefault("UPSTREAM_TIMEOUT", 30*time.Second),

		OTLPEndpoint: config.EnvDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TraceStdout:  config.EnvBoolDefault("TRACE_STDOUT", false),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	return config.RequireNonEmpty(map[string]string{
		"AUTH_URL":   c.AuthURL,
		"SHOP_URL":   c.ShopURL,
		"JWT_SECRET": string(c.JWTSecret),
	})
}
