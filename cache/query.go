package cache

import (
	"context"
	"time"
)

// Fetcher loads the value for a cache entry, normally by delegating to
// the request executor. It is retained by the entry so invalidation can
// refetch with the original call.
type Fetcher func(ctx context.Context) (any, error)

// Query declares a read operation over one entity type.
type Query struct {
	// Type is the entity type, e.g. "Client". Required.
	Type string

	// Params distinguishes entries within a type; its JSON encoding is
	// hashed into the entry key. Nil means the type's singleton query.
	Params any

	// Tags the entry provides for invalidation matching.
	Tags []Tag

	// TagsFor optionally derives additional tags from a successful
	// result, e.g. one id tag per element of a list.
	TagsFor func(data any) []Tag

	// TTL bounds the age of a Success entry. Zero disables time-based
	// staleness; tagged entries normally rely on invalidation instead.
	TTL time.Duration

	// Fetch loads the value. Required.
	Fetch Fetcher
}

// Mutation declares a write operation and the tags it invalidates on
// success. A failed mutation invalidates nothing.
type Mutation struct {
	// Name identifies the operation in lifecycle logs.
	Name string

	// Invalidates lists the tags whose entries must be refetched or
	// reset after the mutation succeeds.
	Invalidates []Tag

	// Do performs the write, normally via the request executor.
	Do func(ctx context.Context) (any, error)
}
