package cache_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/botpanel/go-botpanel/cache"
	"github.com/botpanel/go-botpanel/transport"
)

// countingFetcher returns "v0", "v1", ... and counts its invocations.
type countingFetcher struct {
	calls int32
}

func (f *countingFetcher) fetch(context.Context) (any, error) {
	n := atomic.AddInt32(&f.calls, 1) - 1
	return fmt.Sprintf("v%d", n), nil
}

func (f *countingFetcher) count() int32 {
	return atomic.LoadInt32(&f.calls)
}

func listQuery(f *countingFetcher) cache.Query {
	return cache.Query{
		Type:  "Client",
		Tags:  []cache.Tag{cache.ListTag("Client")},
		Fetch: f.fetch,
	}
}

func TestWatchRequiresTypeAndFetcher(t *testing.T) {
	store := cache.NewStore()

	_, err := store.Watch(context.Background(), cache.Query{Fetch: (&countingFetcher{}).fetch})
	require.Error(t, err)

	_, err = store.Watch(context.Background(), cache.Query{Type: "Client"})
	require.Error(t, err)
}

func TestConcurrentWatchersShareOneFetch(t *testing.T) {
	store := cache.NewStore()
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	q := cache.Query{
		Type: "Client",
		Tags: []cache.Tag{cache.ListTag("Client")},
		Fetch: func(context.Context) (any, error) {
			atomic.AddInt32(&calls, 1)
			<-release
			return "shared", nil
		},
	}

	subs := make([]*cache.Subscription, 0, 5)
	for i := 0; i < 5; i++ {
		sub, err := store.Watch(ctx, q)
		require.NoError(t, err)
		defer sub.Close()
		subs = append(subs, sub)
	}
	close(release)

	for _, sub := range subs {
		value, err := sub.Wait(ctx)
		require.NoError(t, err)
		require.Equal(t, "shared", value)
	}
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestFreshEntryServedWithoutRefetch(t *testing.T) {
	store := cache.NewStore()
	ctx := context.Background()
	fetcher := &countingFetcher{}

	first, err := store.Watch(ctx, listQuery(fetcher))
	require.NoError(t, err)
	defer first.Close()
	value, err := first.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "v0", value)

	second, err := store.Watch(ctx, listQuery(fetcher))
	require.NoError(t, err)
	defer second.Close()
	value, err = second.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "v0", value)

	require.EqualValues(t, 1, fetcher.count())
}

func TestStaleResponseIsDropped(t *testing.T) {
	store := cache.NewStore()
	ctx := context.Background()

	gates := []chan struct{}{make(chan struct{}), make(chan struct{})}
	results := []string{"first", "second"}
	var call int32
	q := cache.Query{
		Type: "Client",
		Tags: []cache.Tag{cache.ListTag("Client")},
		Fetch: func(context.Context) (any, error) {
			n := atomic.AddInt32(&call, 1) - 1
			<-gates[n]
			return results[n], nil
		},
	}

	sub, err := store.Watch(ctx, q) // generation 1 in flight
	require.NoError(t, err)
	defer sub.Close()

	sub.Refetch(ctx) // generation 2 starts before generation 1 resolves

	close(gates[1]) // generation 2 resolves first
	value, err := sub.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "second", value)

	close(gates[0]) // generation 1's response arrives late and must be dropped
	time.Sleep(50 * time.Millisecond)

	value, err = sub.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "second", value)
}

func TestInvalidateRefetchesSubscribedEntries(t *testing.T) {
	store := cache.NewStore()
	ctx := context.Background()
	fetcher := &countingFetcher{}

	sub, err := store.Watch(ctx, listQuery(fetcher))
	require.NoError(t, err)
	defer sub.Close()
	value, err := sub.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "v0", value)

	store.Invalidate(ctx, cache.ListTag("Client"))

	value, err = sub.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "v1", value)
	require.EqualValues(t, 2, fetcher.count())
}

func TestInvalidateResetsUnsubscribedEntries(t *testing.T) {
	store := cache.NewStore(cache.WithKeepUnusedFor(time.Hour))
	ctx := context.Background()
	fetcher := &countingFetcher{}

	sub, err := store.Watch(ctx, listQuery(fetcher))
	require.NoError(t, err)
	_, err = sub.Wait(ctx)
	require.NoError(t, err)
	sub.Close()

	store.Invalidate(ctx, cache.ListTag("Client"))
	require.EqualValues(t, 1, fetcher.count(), "no eager refetch without subscribers")

	// The next subscriber always triggers a fresh fetch.
	sub, err = store.Watch(ctx, listQuery(fetcher))
	require.NoError(t, err)
	defer sub.Close()
	value, err := sub.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "v1", value)
	require.EqualValues(t, 2, fetcher.count())
}

func TestInvalidateDiscardsInFlightFetchForIdleEntry(t *testing.T) {
	store := cache.NewStore(cache.WithKeepUnusedFor(time.Hour))
	ctx := context.Background()

	release := make(chan struct{})
	var calls int32
	q := cache.Query{
		Type: "Client",
		Tags: []cache.Tag{cache.ListTag("Client")},
		Fetch: func(context.Context) (any, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				<-release
				return "outdated", nil
			}
			return "fresh", nil
		},
	}

	sub, err := store.Watch(ctx, q)
	require.NoError(t, err)
	sub.Close() // the view goes away while its fetch is still in flight

	store.Invalidate(ctx, cache.ListTag("Client"))
	close(release) // the pre-invalidation response arrives afterwards
	time.Sleep(50 * time.Millisecond)

	// The next subscriber must trigger a fresh fetch rather than be
	// served the superseded response.
	sub, err = store.Watch(ctx, q)
	require.NoError(t, err)
	defer sub.Close()
	value, err := sub.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "fresh", value)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestInvalidateLeavesOtherTypesUntouched(t *testing.T) {
	store := cache.NewStore()
	ctx := context.Background()
	clientFetcher := &countingFetcher{}
	botFetcher := &countingFetcher{}

	clientSub, err := store.Watch(ctx, listQuery(clientFetcher))
	require.NoError(t, err)
	defer clientSub.Close()
	botSub, err := store.Watch(ctx, cache.Query{
		Type:  "Bot",
		Tags:  []cache.Tag{cache.ListTag("Bot")},
		Fetch: botFetcher.fetch,
	})
	require.NoError(t, err)
	defer botSub.Close()

	_, err = clientSub.Wait(ctx)
	require.NoError(t, err)
	_, err = botSub.Wait(ctx)
	require.NoError(t, err)

	store.Invalidate(ctx, cache.ListTag("Client"))
	_, err = clientSub.Wait(ctx)
	require.NoError(t, err)

	require.EqualValues(t, 2, clientFetcher.count())
	require.EqualValues(t, 1, botFetcher.count())
}

func TestPerIDInvalidationMatchesListThroughDerivedTags(t *testing.T) {
	store := cache.NewStore()
	ctx := context.Background()

	var calls int32
	q := cache.Query{
		Type: "Client",
		Tags: []cache.Tag{cache.ListTag("Client")},
		TagsFor: func(data any) []cache.Tag {
			ids := data.([]int)
			tags := make([]cache.Tag, 0, len(ids))
			for _, id := range ids {
				tags = append(tags, cache.IDTag("Client", id))
			}
			return tags
		},
		Fetch: func(context.Context) (any, error) {
			atomic.AddInt32(&calls, 1)
			return []int{1, 2}, nil
		},
	}

	sub, err := store.Watch(ctx, q)
	require.NoError(t, err)
	defer sub.Close()
	_, err = sub.Wait(ctx)
	require.NoError(t, err)

	// An id the list contains invalidates the whole list entry.
	store.Invalidate(ctx, cache.IDTag("Client", 2))
	_, err = sub.Wait(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))

	// An id the list does not contain leaves it alone.
	store.Invalidate(ctx, cache.IDTag("Client", 99))
	time.Sleep(20 * time.Millisecond)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestMutateInvalidatesOnlyOnSuccess(t *testing.T) {
	store := cache.NewStore()
	ctx := context.Background()
	fetcher := &countingFetcher{}

	sub, err := store.Watch(ctx, listQuery(fetcher))
	require.NoError(t, err)
	defer sub.Close()
	before, err := sub.Wait(ctx)
	require.NoError(t, err)

	_, err = store.Mutate(ctx, cache.Mutation{
		Name:        "createClient",
		Invalidates: []cache.Tag{cache.ListTag("Client")},
		Do: func(context.Context) (any, error) {
			return nil, &transport.HTTPError{Status: 500}
		},
	})
	var httpErr *transport.HTTPError
	require.ErrorAs(t, err, &httpErr)

	after, err := sub.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, before, after, "failed mutation must not touch cache state")
	require.EqualValues(t, 1, fetcher.count(), "failed mutation must not invalidate")

	result, err := store.Mutate(ctx, cache.Mutation{
		Name:        "createClient",
		Invalidates: []cache.Tag{cache.ListTag("Client")},
		Do: func(context.Context) (any, error) {
			return "created", nil
		},
	})
	require.NoError(t, err)
	require.Equal(t, "created", result)

	value, err := sub.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "v1", value)
	require.EqualValues(t, 2, fetcher.count())
}

func TestFetchErrorSurfacesToAllWaitersAndIsRetried(t *testing.T) {
	store := cache.NewStore()
	ctx := context.Background()

	boom := errors.New("backend down")
	var calls int32
	release := make(chan struct{})
	q := cache.Query{
		Type: "Client",
		Tags: []cache.Tag{cache.ListTag("Client")},
		Fetch: func(context.Context) (any, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				<-release
				return nil, boom
			}
			return "recovered", nil
		},
	}

	first, err := store.Watch(ctx, q)
	require.NoError(t, err)
	second, err := store.Watch(ctx, q)
	require.NoError(t, err)
	close(release)

	_, err = first.Wait(ctx)
	require.ErrorIs(t, err, boom)
	_, err = second.Wait(ctx)
	require.ErrorIs(t, err, boom)
	first.Close()
	second.Close()

	// A new subscriber to an Error entry retries the fetch.
	retry, err := store.Watch(ctx, q)
	require.NoError(t, err)
	defer retry.Close()
	value, err := retry.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "recovered", value)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestEntryReclaimedAfterGracePeriod(t *testing.T) {
	store := cache.NewStore(cache.WithKeepUnusedFor(20 * time.Millisecond))
	ctx := context.Background()
	fetcher := &countingFetcher{}

	sub, err := store.Watch(ctx, listQuery(fetcher))
	require.NoError(t, err)
	_, err = sub.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	sub.Close()
	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)

	// A later subscriber starts from scratch.
	sub, err = store.Watch(ctx, listQuery(fetcher))
	require.NoError(t, err)
	defer sub.Close()
	_, err = sub.Wait(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, fetcher.count())
}

func TestResubscribeCancelsReclamation(t *testing.T) {
	store := cache.NewStore(cache.WithKeepUnusedFor(30 * time.Millisecond))
	ctx := context.Background()
	fetcher := &countingFetcher{}

	sub, err := store.Watch(ctx, listQuery(fetcher))
	require.NoError(t, err)
	_, err = sub.Wait(ctx)
	require.NoError(t, err)
	sub.Close()

	// Re-render: a new subscriber arrives inside the grace period.
	sub, err = store.Watch(ctx, listQuery(fetcher))
	require.NoError(t, err)
	defer sub.Close()

	time.Sleep(60 * time.Millisecond)
	require.Equal(t, 1, store.Len())
	require.EqualValues(t, 1, fetcher.count())
}

func TestTTLForcesRefetchForNewSubscribers(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	nowFn := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	store := cache.NewStore(cache.WithNowTime(nowFn))
	ctx := context.Background()
	fetcher := &countingFetcher{}
	q := cache.Query{Type: "Portfolio", TTL: 30 * time.Second, Fetch: fetcher.fetch}

	first, err := store.Watch(ctx, q)
	require.NoError(t, err)
	defer first.Close()
	_, err = first.Wait(ctx)
	require.NoError(t, err)

	// Within the TTL the cached value is served as-is.
	second, err := store.Watch(ctx, q)
	require.NoError(t, err)
	second.Close()
	require.EqualValues(t, 1, fetcher.count())

	mu.Lock()
	now = now.Add(31 * time.Second)
	mu.Unlock()

	third, err := store.Watch(ctx, q)
	require.NoError(t, err)
	defer third.Close()
	value, err := third.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "v1", value)
	require.EqualValues(t, 2, fetcher.count())
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	store := cache.NewStore()

	block := make(chan struct{})
	defer close(block)
	q := cache.Query{
		Type: "Client",
		Fetch: func(context.Context) (any, error) {
			<-block
			return nil, nil
		},
	}

	sub, err := store.Watch(context.Background(), q)
	require.NoError(t, err)
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = sub.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
