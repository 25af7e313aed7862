package cache

import "context"

// Invalidate routes a set of invalidated tags to the entries they
// affect. Entries with live subscribers are refetched immediately with
// their original fetcher; the rest are reset to Uninitialized so the
// next subscriber triggers a fresh fetch. Actively-viewed data is
// therefore never stale beyond one refetch round-trip.
func (s *Store) Invalidate(ctx context.Context, tags ...Tag) {
	if len(tags) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if !s.affected(e, tags) {
			continue
		}
		s.logger.Debug().
			Str("type", e.key.Type).
			Int("subscribers", e.subscribers).
			Msg("invalidation triggered")
		if e.subscribers > 0 {
			s.startFetch(ctx, e)
		} else {
			// A fetch that was in flight when the invalidation ran must
			// not revive the entry, so it is superseded here too.
			e.generation++
			e.status = StatusUninitialized
			e.data = nil
			e.err = nil
			e.tags = e.staticTags
			if e.settledOpen {
				close(e.settled)
				e.settledOpen = false
			}
		}
	}
}

// affected reports whether any invalidated tag intersects the tags the
// entry provides. Callers hold the store mutex.
func (s *Store) affected(e *entry, invalidated []Tag) bool {
	for _, tag := range invalidated {
		if matches(e.tags, tag) {
			return true
		}
	}
	return false
}
