package cache

import (
	"context"
	"sync"

	errs "github.com/botpanel/go-botpanel/internal/errors"
)

// Subscription is a live hold on one cache entry. It keeps the entry's
// subscriber count up so invalidations refetch it eagerly; Close releases
// the hold and, once the last holder is gone, starts the reclamation
// grace period.
type Subscription struct {
	store     *Store
	key       entryKey
	closeOnce sync.Once
}

// Wait blocks until the entry settles in Success or Error for its latest
// fetch generation, then returns the cached value or the fetch error. A
// Success entry returns immediately without any network activity.
func (sub *Subscription) Wait(ctx context.Context) (any, error) {
	for {
		status, data, err, settled, ok := sub.store.snapshot(sub.key)
		if !ok {
			return nil, errs.ErrEntryReclaimed
		}

		switch status {
		case StatusSuccess:
			return data, nil
		case StatusError:
			return nil, err
		}

		if settled == nil {
			return nil, errs.ErrInternal
		}
		select {
		case <-settled:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Refetch forces a new fetch generation for the entry regardless of its
// freshness, e.g. a manual refresh of the portfolio view.
func (sub *Subscription) Refetch(ctx context.Context) {
	sub.store.refetch(ctx, sub.key)
}

// Close releases the subscription. Closing twice is safe.
func (sub *Subscription) Close() {
	sub.closeOnce.Do(func() {
		sub.store.unsubscribe(sub.key)
	})
}

// WaitAs waits for the subscription and converts the cached value to T.
func WaitAs[T any](ctx context.Context, sub *Subscription) (T, error) {
	var zero T
	data, err := sub.Wait(ctx)
	if err != nil {
		return zero, err
	}
	value, ok := data.(T)
	if !ok {
		return zero, errs.ErrInternal
	}
	return value, nil
}
