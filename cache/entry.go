package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a cache entry.
type Status int

const (
	StatusUninitialized Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// entryKey identifies one cache entry: the entity type plus a digest of
// the query parameters. Exactly one entry exists per distinct key.
type entryKey struct {
	Type      string
	ParamHash string
}

func newEntryKey(entityType string, params any) (entryKey, error) {
	if params == nil {
		return entryKey{Type: entityType, ParamHash: "void"}, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return entryKey{}, err
	}
	sum := sha256.Sum256(raw)
	return entryKey{Type: entityType, ParamHash: hex.EncodeToString(sum[:8])}, nil
}

// entry is the cached state for one key. All fields are guarded by the
// store mutex.
type entry struct {
	key    entryKey
	status Status
	data   any
	err    error

	// staticTags come from the query declaration; tags additionally
	// carries per-element tags derived from the last successful result.
	staticTags []Tag
	tags       []Tag
	tagsFor    func(data any) []Tag

	fetch Fetcher
	ttl   time.Duration

	// generation counts started fetches. A response is applied only if
	// its generation is still the latest, so a slow stale request can
	// never clobber a fresher result.
	generation uint64

	subscribers   int
	lastFetchedAt time.Time

	// settled is closed when the latest fetch generation is applied.
	// Waiters re-check status after every wakeup.
	settled     chan struct{}
	settledOpen bool

	reclaim *time.Timer
}
