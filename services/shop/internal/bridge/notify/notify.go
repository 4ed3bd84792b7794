// Package notify delivers best-effort messages to users. Nothing in the
// shop waits on, or fails because of, a notification.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// Multi sends through every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, recipient, subject, body string) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, recipient, subject, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dispatcher hands notifications to background goroutines.
type Dispatcher struct {
	n       Notifier
	log     *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(n Notifier, log *slog.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{n: n, log: log, timeout: timeout}
}

// Dispatch returns immediately. The send outlives the request that caused it
// but is bounded by the dispatcher timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, recipient, subject, body string) {
	if d == nil || d.n == nil {
		return
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		if err := d.n.Send(sendCtx, recipient, subject, body); err != nil {
			d.log.Warn("notification_failed", "recipient", recipient, "subject", subject, "error", err)
			return
		}
		d.log.Debug("notification_sent", "recipient", recipient, "subject", subject)
	}()
}

// Wait blocks until in-flight sends finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
