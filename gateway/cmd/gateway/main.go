package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/gateway/internal/config"
	"github.com/Skotchmaster/storefront/gateway/internal/httpserver"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/middleware/csrf"
	"github.com/Skotchmaster/storefront/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("gateway_stopped_with_error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, log, tracing.Config{
		ServiceName:  cfg.ServiceName,
		OTLPEndpoint: cfg.OTLPEndpoint,
		OTLPInsecure: true,
		Stdout:       cfg.TraceStdout,
		SampleRatio:  1,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = cfg.UpstreamTimeout + 5*time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Secure = cfg.CSRFSecureCookie
	csrfCfg.SkipPaths = []string{"/health/live", "/health/ready", "/api/v1/auth/login", "/api/v1/auth/register", "/api/v1/auth/refresh"}

	if err := httpserver.Register(e, &httpserver.Deps{
		AuthURL:         cfg.AuthURL,
		ShopURL:         cfg.ShopURL,
		JWTSecret:       cfg.JWTSecret,
		CSRFConfig:      csrfCfg,
		Log:             log,
		ServiceName:     cfg.ServiceName,
		UpstreamTimeout: cfg.UpstreamTimeout,
	}); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("gateway_starting", "addr", cfg.ListenAddr, "auth", cfg.AuthURL, "shop", cfg.ShopURL)
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	log.Info("gateway_shutting_down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(sctx)
}
