package portfolio

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/botpanel/go-botpanel/cache"
)

// TagType is the cache entity type for the portfolio snapshot. The query
// provides no tags: no local mutation ever touches exchange balances, so
// freshness is purely time-based (TTL or a manual Refetch).
const TagType = "Portfolio"

// Requester issues backend calls; satisfied by transport.Executor.
type Requester interface {
	Do(ctx context.Context, method, path string, body any, requiresAuth bool, out any) error
}

// Service exposes the read-only portfolio endpoint.
type Service struct {
	requester Requester
	cache     *cache.Store
	ttl       time.Duration
}

// NewService initializes the portfolio endpoint service. ttl bounds how
// old a cached snapshot may be before a new subscriber forces a refetch.
func NewService(requester Requester, store *cache.Store, ttl time.Duration) (*Service, error) {
	if requester == nil {
		return nil, errors.New("[NewService] requester is required")
	}
	if store == nil {
		return nil, errors.New("[NewService] cache store is required")
	}
	return &Service{requester: requester, cache: store, ttl: ttl}, nil
}

// WatchBalance subscribes to the account snapshot.
func (s *Service) WatchBalance(ctx context.Context) (*cache.Subscription, error) {
	return s.cache.Watch(ctx, cache.Query{
		Type: TagType,
		TTL:  s.ttl,
		Fetch: func(ctx context.Context) (any, error) {
			var out accountEnvelope
			if err := s.requester.Do(ctx, http.MethodGet, "/binance/account", nil, true, &out); err != nil {
				return nil, err
			}
			return out.Data, nil
		},
	})
}

// GetBalance is the one-shot form of WatchBalance.
func (s *Service) GetBalance(ctx context.Context) (Account, error) {
	sub, err := s.WatchBalance(ctx)
	if err != nil {
		return Account{}, err
	}
	defer sub.Close()
	return cache.WaitAs[Account](ctx, sub)
}
