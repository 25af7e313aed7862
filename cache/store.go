package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultKeepUnusedFor = 60 * time.Second

// Store is the keyed cache of query results. It guarantees one entry per
// distinct (type, params) key, at most one in-flight fetch per key at any
// time, and last-fetch-wins application of responses regardless of their
// arrival order.
type Store struct {
	mu            sync.Mutex
	entries       map[entryKey]*entry
	keepUnusedFor time.Duration
	logger        zerolog.Logger
	nowTime       func() time.Time
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithKeepUnusedFor sets how long an entry with no subscribers survives
// before it is reclaimed.
func WithKeepUnusedFor(d time.Duration) StoreOption {
	return func(s *Store) {
		s.keepUnusedFor = d
	}
}

// WithLogger sets the structured logger used for cache lifecycle events.
func WithLogger(l zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// NewStore initializes an empty cache store.
func NewStore(options ...StoreOption) *Store {
	s := &Store{
		entries:       make(map[entryKey]*entry),
		keepUnusedFor: defaultKeepUnusedFor,
		logger:        zerolog.Nop(),
		nowTime:       time.Now,
	}

	for _, opt := range options {
		opt(s)
	}

	return s
}

// Watch subscribes to the entry for the query's key, creating it on
// first use. A fetch is started when the entry is Uninitialized, in
// Error state, or Success past its TTL; a Loading entry is shared as-is,
// so concurrent watchers of one key ride a single network call.
func (s *Store) Watch(ctx context.Context, q Query) (*Subscription, error) {
	if q.Type == "" {
		return nil, errors.New("[Watch] query type is required")
	}
	if q.Fetch == nil {
		return nil, errors.New("[Watch] query fetcher is required")
	}
	key, err := newEntryKey(q.Type, q.Params)
	if err != nil {
		return nil, errors.Wrap(err, "[Watch] hash query params")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{
			key:        key,
			status:     StatusUninitialized,
			staticTags: q.Tags,
			tags:       q.Tags,
			tagsFor:    q.TagsFor,
			fetch:      q.Fetch,
			ttl:        q.TTL,
		}
		s.entries[key] = e
	}

	e.subscribers++
	if e.reclaim != nil {
		e.reclaim.Stop()
		e.reclaim = nil
	}

	switch e.status {
	case StatusUninitialized, StatusError:
		s.startFetch(ctx, e)
	case StatusSuccess:
		if e.ttl > 0 && s.nowTime().Sub(e.lastFetchedAt) >= e.ttl {
			s.startFetch(ctx, e)
		}
	}

	return &Subscription{store: s, key: key}, nil
}

// Mutate runs the mutation and, only on success, routes its invalidated
// tags through the cache. A failed mutation leaves every entry untouched.
func (s *Store) Mutate(ctx context.Context, m Mutation) (any, error) {
	data, err := m.Do(ctx)
	if err != nil {
		s.logger.Debug().Str("mutation", m.Name).Err(err).Msg("mutation failed, no invalidation")
		return nil, err
	}
	s.logger.Debug().Str("mutation", m.Name).Msg("mutation succeeded")
	s.Invalidate(ctx, m.Invalidates...)
	return data, nil
}

// startFetch begins a new fetch generation for the entry. Callers hold
// the store mutex. The response is applied only if no newer generation
// has started since; stale responses are dropped, not cancelled.
func (s *Store) startFetch(ctx context.Context, e *entry) {
	e.generation++
	generation := e.generation
	e.status = StatusLoading

	// Waiters parked on the previous channel wake up, observe Loading
	// and move to the new one.
	if e.settledOpen {
		close(e.settled)
	}
	e.settled = make(chan struct{})
	e.settledOpen = true

	// The fetch outlives the subscriber that triggered it; dropping a
	// subscription does not abort the call.
	fetchCtx := context.WithoutCancel(ctx)

	go func() {
		data, err := e.fetch(fetchCtx)

		s.mu.Lock()
		defer s.mu.Unlock()

		current, ok := s.entries[e.key]
		if !ok || current != e {
			return // reclaimed while in flight
		}
		if generation != e.generation {
			s.logger.Debug().
				Str("type", e.key.Type).
				Uint64("generation", generation).
				Msg("stale response dropped")
			return
		}

		if err != nil {
			e.status = StatusError
			e.err = err
			s.logger.Debug().Str("type", e.key.Type).Err(err).Msg("fetch failed")
		} else {
			e.status = StatusSuccess
			e.data = data
			e.err = nil
			e.lastFetchedAt = s.nowTime()
			e.tags = e.staticTags
			if e.tagsFor != nil {
				e.tags = append(append([]Tag{}, e.staticTags...), e.tagsFor(data)...)
			}
		}
		close(e.settled)
		e.settledOpen = false
	}()
}

// unsubscribe drops one subscriber from the key. The last unsubscribe
// arms the reclamation timer; the entry is deleted once the grace period
// elapses with no new subscriber.
func (s *Store) unsubscribe(key entryKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.subscribers == 0 {
		return
	}
	e.subscribers--
	if e.subscribers > 0 {
		return
	}

	e.reclaim = time.AfterFunc(s.keepUnusedFor, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		current, ok := s.entries[key]
		if !ok || current != e || e.subscribers > 0 {
			return
		}
		delete(s.entries, key)
		s.logger.Debug().Str("type", key.Type).Msg("cache entry reclaimed")
	})
}

// snapshot returns the entry's current status, value and error. Used by
// subscriptions; not exported.
func (s *Store) snapshot(key entryKey) (Status, any, error, chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return StatusUninitialized, nil, nil, nil, false
	}
	return e.status, e.data, e.err, e.settled, true
}

// refetch starts a new generation for the key using the entry's original
// fetcher.
func (s *Store) refetch(ctx context.Context, key entryKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		s.startFetch(ctx, e)
	}
}

// Len reports the number of live entries, for observability and tests.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}
