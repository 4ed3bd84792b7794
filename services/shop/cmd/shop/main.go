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
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/pkg/authclient"
	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/logging"
	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
	"github.com/Skotchmaster/storefront/pkg/tracing"
	"github.com/Skotchmaster/storefront/services/shop/internal/bridge/media"
	"github.com/Skotchmaster/storefront/services/shop/internal/bridge/notify"
	"github.com/Skotchmaster/storefront/services/shop/internal/bridge/payment"
	"github.com/Skotchmaster/storefront/services/shop/internal/cache"
	"github.com/Skotchmaster/storefront/services/shop/internal/config"
	"github.com/Skotchmaster/storefront/services/shop/internal/httpserver"
	"github.com/Skotchmaster/storefront/services/shop/internal/models"
	"github.com/Skotchmaster/storefront/services/shop/internal/mykafka"
	"github.com/Skotchmaster/storefront/services/shop/internal/repo"
	"github.com/Skotchmaster/storefront/services/shop/internal/search"
	"github.com/Skotchmaster/storefront/services/shop/internal/service"
	"github.com/Skotchmaster/storefront/services/shop/internal/txn"
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
		log.Error("shop_stopped_with_error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.ServiceConfig, log *slog.Logger) error {
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

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		return err
	}
	defer closeDB(gdb)
	if err := models.AutoMigrate(gdb); err != nil {
		return err
	}

	r := &repo.GormRepo{DB: gdb}
	tx := txn.New(gdb, cfg.TxMaxAttempts)

	var events service.EventPublisher
	var notifiers notify.Multi
	if len(cfg.KafkaBrokers) > 0 {
		producer := mykafka.NewProducer(cfg.KafkaBrokers)
		defer producer.Close()
		events = producer
		notifiers = append(notifiers, notify.KafkaNotifier{Publisher: producer})
	} else {
		log.Warn("kafka_disabled", "reason", "KAFKA_BROKERS empty")
	}

	if cfg.SendGridAPIKey != "" {
		sg, err := notify.NewSendGrid(log, notify.SendGridConfig{
			APIKey:     cfg.SendGridAPIKey,
			BaseURL:    cfg.SendGridBaseURL,
			FromEmail:  cfg.SendGridFromEmail,
			FromName:   cfg.ServiceName,
			Timeout:    cfg.NotifyTimeout,
			MaxRetries: 2,
		})
		if err != nil {
			return err
		}
		notifiers = append(notifiers, sg)
	}
	var dispatcher *notify.Dispatcher
	if len(notifiers) > 0 {
		dispatcher = notify.NewDispatcher(notifiers, log, cfg.NotifyTimeout)
	}

	catalog := &service.CatalogService{Repo: r, Tx: tx, Events: events}
	reviews := &service.ReviewService{Repo: r, Tx: tx}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		pc := cache.NewProductCache(rdb, cfg.RedisProductTTL)
		catalog.Cache = pc
		reviews.Cache = pc
	}

	if cfg.ESURL != "" {
		es, err := search.NewClient(search.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword})
		if err != nil {
			return err
		}
		catalog.Index = search.NewIndex(es, cfg.ESIndex)
	}

	if cfg.GCSBucket != "" {
		store, err := media.NewGCS(ctx, media.GCSConfig{
			Bucket:        cfg.GCSBucket,
			PublicBaseURL: cfg.GCSPublicBaseURL,
			Prefix:        "products",
		})
		if err != nil {
			return err
		}
		defer store.Close()
		catalog.Media = store
	}

	orders := &service.OrderService{Repo: r, Tx: tx, Events: events}
	if dispatcher != nil {
		orders.Notify = dispatcher
	}
	if cfg.PaymentGatewayURL != "" {
		gw, err := payment.New(log, payment.Config{
			BaseURL:    cfg.PaymentGatewayURL,
			KeyID:      cfg.PaymentKeyID,
			KeySecret:  cfg.PaymentKeySecret,
			MaxRetries: 2,
		})
		if err != nil {
			return err
		}
		orders.Payments = gw
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(loggingmw.RequestLogger(log))
	e.Use(tracing.Middleware(cfg.ServiceName))

	httpserver.Register(e, &httpserver.Deps{
		CartHandler:     &httpserver.CartHTTP{Svc: &service.CartService{Repo: r, Tx: tx, Events: events}, Orders: orders},
		OrderHandler:    &httpserver.OrderHTTP{Svc: orders},
		CatalogHandler:  &httpserver.CatalogHTTP{Svc: catalog},
		ReviewHandler:   &httpserver.ReviewHTTP{Svc: reviews},
		WishlistHandler: &httpserver.WishlistHTTP{Svc: &service.WishlistService{Repo: r, Tx: tx}},
		JWTSecret:       cfg.JWTAccessSecret,
		AuthClient:      authclient.NewClient(cfg.AuthHTTPURL),
		Ready: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("shop_starting", "addr", cfg.Addr())
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	log.Info("shop_shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("echo_shutdown_failed", "error", err)
	}
	if dispatcher != nil {
		if err := dispatcher.Wait(shutdownCtx); err != nil {
			log.Warn("notifications_not_drained", "error", err)
		}
	}

	log.Info("shop_stopped")
	return nil
}

func closeDB(gdb *gorm.DB) {
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
