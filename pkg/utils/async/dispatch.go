package async

import (
	"context"
	"errors"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskscale/pkg/utils/logging"
)

// Dispatcher runs fire-and-forget tasks detached from the request context.
// Wait blocks until every dispatched task has returned.
type Dispatcher struct {
	wg sync.WaitGroup
}

// Dispatch executes handler in a new goroutine with a background context that
// keeps the caller's logger. Errors and panics are logged, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, task string, handler func(ctx context.Context) error) {
	bgCtx := logging.With(context.Background(), logging.From(ctx).With("task", task))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logging.From(bgCtx).Error("panic in async task", "panic", r)
			}
		}()

		if err := handler(bgCtx); err != nil {
			attrs := []any{"error", err.Error()}
			var ge *goerr.Error
			if errors.As(err, &ge) {
				attrs = append(attrs, "values", ge.Values())
			}
			logging.From(bgCtx).Error("async task failed", attrs...)
		}
	}()
}

// Wait blocks until all dispatched tasks finish
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
