// Package txn runs multi-row cart and order writes as one unit.
//
// Do begins a transaction, hands it to the caller, commits when the callback
// returns nil and rolls back otherwise. Serialization failures and deadlocks
// are retried from the start. When the unit finally fails, compensations
// registered for side effects made outside the database are run. Callers must
// not talk to payment or notification providers from inside the callback.
package txn

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/pkg/apperr"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const (
	defaultMaxAttempts = 3
	baseBackoff        = 20 * time.Millisecond
	compensateTimeout  = 10 * time.Second
)

type Manager struct {
	DB          *gorm.DB
	MaxAttempts int
}

func New(db *gorm.DB, maxAttempts int) *Manager {
	return &Manager{DB: db, MaxAttempts: maxAttempts}
}

// Compensation undoes a side effect made before or during the transaction.
type Compensation func(ctx context.Context) error

type compensation struct {
	name string
	fn   Compensation
}

type options struct {
	compensations []compensation
}

type Option func(*options)

func WithCompensation(name string, fn Compensation) Option {
	return func(o *options) {
		o.compensations = append(o.compensations, compensation{name: name, fn: fn})
	}
}

func (m *Manager) Do(ctx context.Context, name string, fn func(tx *gorm.DB) error, opts ...Option) error {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := otel.Tracer("storefront/txn").Start(ctx, "txn."+name)
	defer span.End()
	l := logging.FromContext(ctx).With("txn", name)

	var (
		err     error
		attempt int
	)
	for attempt = 1; ; attempt++ {
		err = m.DB.WithContext(ctx).Transaction(fn)
		if err == nil || !Retryable(err) || attempt >= m.maxAttempts() {
			break
		}
		l.Warn("txn_retry", "attempt", attempt, "error", err)
		if werr := sleep(ctx, backoff(attempt)); werr != nil {
			err = werr
			break
		}
	}
	span.SetAttributes(attribute.Int("txn.attempts", attempt))

	if err == nil {
		span.SetAttributes(attribute.String("txn.outcome", "committed"))
		return nil
	}

	span.SetAttributes(attribute.String("txn.outcome", "aborted"))
	span.RecordError(err)
	span.SetStatus(codes.Error, apperr.Code(err))

	m.compensate(ctx, l, o.compensations)

	if apperr.Typed(err) {
		return err
	}
	l.Error("txn_failed", "attempts", attempt, "error", err)
	return apperr.Internal(err)
}

// compensate runs in reverse registration order and only logs failures.
func (m *Manager) compensate(ctx context.Context, l *slog.Logger, cs []compensation) {
	if len(cs) == 0 {
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()

	for i := len(cs) - 1; i >= 0; i-- {
		if err := cs[i].fn(cctx); err != nil {
			l.Error("txn_compensation_failed", "compensation", cs[i].name, "error", err)
			continue
		}
		l.Info("txn_compensated", "compensation", cs[i].name)
	}
}

func (m *Manager) maxAttempts() int {
	if m.MaxAttempts < 1 {
		return defaultMaxAttempts
	}
	return m.MaxAttempts
}

// Retryable reports whether the database aborted the transaction because of
// contention rather than because of what it did.
func Retryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return true
		}
	}
	return false
}

func backoff(attempt int) time.Duration {
	d := baseBackoff << (attempt - 1)
	return d + time.Duration(rand.Int64N(int64(d)))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
