package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/botpanel/go-botpanel/cache"
	"github.com/botpanel/go-botpanel/transport"
)

// TagType is the cache tag family for client records.
const TagType = "Client"

// Requester issues backend calls; satisfied by transport.Executor.
type Requester interface {
	Do(ctx context.Context, method, path string, body any, requiresAuth bool, out any) error
}

// Service exposes the client-record endpoints. Queries go through the
// cache; mutations invalidate the affected tags so open views refetch.
type Service struct {
	requester Requester
	cache     *cache.Store
}

// NewService initializes the client-record endpoint service.
func NewService(requester Requester, store *cache.Store) (*Service, error) {
	if requester == nil {
		return nil, errors.New("[NewService] requester is required")
	}
	if store == nil {
		return nil, errors.New("[NewService] cache store is required")
	}
	return &Service{requester: requester, cache: store}, nil
}

// WatchList subscribes to the full client list. The entry provides the
// list tag plus one id tag per element, so both list-level and per-id
// invalidations reach it.
func (s *Service) WatchList(ctx context.Context) (*cache.Subscription, error) {
	return s.cache.Watch(ctx, cache.Query{
		Type: TagType,
		Tags: []cache.Tag{cache.ListTag(TagType)},
		TagsFor: func(data any) []cache.Tag {
			list, ok := data.([]Client)
			if !ok {
				return nil
			}
			tags := make([]cache.Tag, 0, len(list))
			for _, c := range list {
				tags = append(tags, cache.IDTag(TagType, c.ID))
			}
			return tags
		},
		Fetch: func(ctx context.Context) (any, error) {
			var out []Client
			if err := s.requester.Do(ctx, http.MethodGet, "/clients", nil, true, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
	})
}

// List is the one-shot form of WatchList.
func (s *Service) List(ctx context.Context) ([]Client, error) {
	sub, err := s.WatchList(ctx)
	if err != nil {
		return nil, err
	}
	defer sub.Close()
	return cache.WaitAs[[]Client](ctx, sub)
}

// WatchGet subscribes to a single client record.
func (s *Service) WatchGet(ctx context.Context, id int) (*cache.Subscription, error) {
	return s.cache.Watch(ctx, cache.Query{
		Type:   TagType,
		Params: id,
		Tags:   []cache.Tag{cache.IDTag(TagType, id)},
		Fetch: func(ctx context.Context) (any, error) {
			var out Client
			if err := s.requester.Do(ctx, http.MethodGet, fmt.Sprintf("/clients/%d", id), nil, true, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
	})
}

// Get is the one-shot form of WatchGet.
func (s *Service) Get(ctx context.Context, id int) (Client, error) {
	sub, err := s.WatchGet(ctx, id)
	if err != nil {
		return Client{}, err
	}
	defer sub.Close()
	return cache.WaitAs[Client](ctx, sub)
}

// Create adds a client record and invalidates the list so open list
// views pick up the server-assigned id.
func (s *Service) Create(ctx context.Context, req CreateClientRequest) (Client, error) {
	if req.FullName == "" {
		return Client{}, &transport.ValidationError{Field: "full_name", Reason: "is required"}
	}
	if req.APIKey == "" {
		return Client{}, &transport.ValidationError{Field: "api_key", Reason: "is required"}
	}
	if req.APIToken == "" {
		return Client{}, &transport.ValidationError{Field: "api_token", Reason: "is required"}
	}

	data, err := s.cache.Mutate(ctx, cache.Mutation{
		Name:        "createClient",
		Invalidates: []cache.Tag{cache.ListTag(TagType)},
		Do: func(ctx context.Context) (any, error) {
			var out Client
			if err := s.requester.Do(ctx, http.MethodPost, "/clients", req, true, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
	})
	if err != nil {
		return Client{}, err
	}
	return data.(Client), nil
}

// Update replaces a client record's fields.
func (s *Service) Update(ctx context.Context, req UpdateClientRequest) (Client, error) {
	if req.ID == 0 {
		return Client{}, &transport.ValidationError{Field: "id", Reason: "is required"}
	}

	data, err := s.cache.Mutate(ctx, cache.Mutation{
		Name:        "updateClient",
		Invalidates: []cache.Tag{cache.ListTag(TagType), cache.IDTag(TagType, req.ID)},
		Do: func(ctx context.Context) (any, error) {
			var out Client
			if err := s.requester.Do(ctx, http.MethodPut, fmt.Sprintf("/clients/%d", req.ID), req, true, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
	})
	if err != nil {
		return Client{}, err
	}
	return data.(Client), nil
}

// Delete removes a client record.
func (s *Service) Delete(ctx context.Context, id int) (DeleteClientResponse, error) {
	if id == 0 {
		return DeleteClientResponse{}, &transport.ValidationError{Field: "id", Reason: "is required"}
	}

	data, err := s.cache.Mutate(ctx, cache.Mutation{
		Name:        "deleteClient",
		Invalidates: []cache.Tag{cache.ListTag(TagType), cache.IDTag(TagType, id)},
		Do: func(ctx context.Context) (any, error) {
			var out DeleteClientResponse
			if err := s.requester.Do(ctx, http.MethodDelete, fmt.Sprintf("/clients/%d", id), nil, true, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
	})
	if err != nil {
		return DeleteClientResponse{}, err
	}
	return data.(DeleteClientResponse), nil
}
