package bots

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/botpanel/go-botpanel/cache"
	"github.com/botpanel/go-botpanel/transport"
)

// TagType is the cache tag family for bot configurations.
const TagType = "Bot"

// activeParams keys the "active config" query separately from the list.
const activeParams = "active"

// Requester issues backend calls; satisfied by transport.Executor.
type Requester interface {
	Do(ctx context.Context, method, path string, body any, requiresAuth bool, out any) error
}

// Service exposes the bot-configuration endpoints.
type Service struct {
	requester Requester
	cache     *cache.Store
}

// NewService initializes the bot-configuration endpoint service.
func NewService(requester Requester, store *cache.Store) (*Service, error) {
	if requester == nil {
		return nil, errors.New("[NewService] requester is required")
	}
	if store == nil {
		return nil, errors.New("[NewService] cache store is required")
	}
	return &Service{requester: requester, cache: store}, nil
}

// WatchList subscribes to all bot configurations.
func (s *Service) WatchList(ctx context.Context) (*cache.Subscription, error) {
	return s.cache.Watch(ctx, cache.Query{
		Type: TagType,
		Tags: []cache.Tag{cache.ListTag(TagType)},
		TagsFor: func(data any) []cache.Tag {
			list, ok := data.([]Config)
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
			var out []Config
			if err := s.requester.Do(ctx, http.MethodGet, "/bot/configs", nil, true, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
	})
}

// List is the one-shot form of WatchList.
func (s *Service) List(ctx context.Context) ([]Config, error) {
	sub, err := s.WatchList(ctx)
	if err != nil {
		return nil, err
	}
	defer sub.Close()
	return cache.WaitAs[[]Config](ctx, sub)
}

// WatchActive subscribes to the currently active configuration. The
// entry provides the id tag of whichever config is active, so toggling
// any config refetches it.
func (s *Service) WatchActive(ctx context.Context) (*cache.Subscription, error) {
	return s.cache.Watch(ctx, cache.Query{
		Type:   TagType,
		Params: activeParams,
		Tags:   []cache.Tag{cache.ListTag(TagType)},
		TagsFor: func(data any) []cache.Tag {
			if c, ok := data.(Config); ok {
				return []cache.Tag{cache.IDTag(TagType, c.ID)}
			}
			return nil
		},
		Fetch: func(ctx context.Context) (any, error) {
			var out Config
			if err := s.requester.Do(ctx, http.MethodGet, "/bot/active", nil, true, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
	})
}

// GetActive is the one-shot form of WatchActive.
func (s *Service) GetActive(ctx context.Context) (Config, error) {
	sub, err := s.WatchActive(ctx)
	if err != nil {
		return Config{}, err
	}
	defer sub.Close()
	return cache.WaitAs[Config](ctx, sub)
}

// Create adds a bot configuration. New configs start inactive.
func (s *Service) Create(ctx context.Context, req CreateConfigRequest) (Config, error) {
	if req.SelectedCoin == "" {
		return Config{}, &transport.ValidationError{Field: "selected_coin", Reason: "is required"}
	}

	data, err := s.cache.Mutate(ctx, cache.Mutation{
		Name:        "createBotConfig",
		Invalidates: []cache.Tag{cache.ListTag(TagType)},
		Do: func(ctx context.Context) (any, error) {
			var out Config
			if err := s.requester.Do(ctx, http.MethodPost, "/bot/configs", req, true, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
	})
	if err != nil {
		return Config{}, err
	}
	return data.(Config), nil
}

// Update patches a bot configuration.
func (s *Service) Update(ctx context.Context, req UpdateConfigRequest) (Config, error) {
	if req.ID == 0 {
		return Config{}, &transport.ValidationError{Field: "id", Reason: "is required"}
	}

	data, err := s.cache.Mutate(ctx, cache.Mutation{
		Name:        "updateBotConfig",
		Invalidates: []cache.Tag{cache.ListTag(TagType), cache.IDTag(TagType, req.ID)},
		Do: func(ctx context.Context) (any, error) {
			var out Config
			if err := s.requester.Do(ctx, http.MethodPut, fmt.Sprintf("/bot/configs/%d", req.ID), req, true, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
	})
	if err != nil {
		return Config{}, err
	}
	return data.(Config), nil
}

// Delete removes a bot configuration.
func (s *Service) Delete(ctx context.Context, id int) (DeleteConfigResponse, error) {
	if id == 0 {
		return DeleteConfigResponse{}, &transport.ValidationError{Field: "id", Reason: "is required"}
	}

	data, err := s.cache.Mutate(ctx, cache.Mutation{
		Name:        "deleteBotConfig",
		Invalidates: []cache.Tag{cache.ListTag(TagType), cache.IDTag(TagType, id)},
		Do: func(ctx context.Context) (any, error) {
			var out DeleteConfigResponse
			if err := s.requester.Do(ctx, http.MethodDelete, fmt.Sprintf("/bot/configs/%d", id), nil, true, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
	})
	if err != nil {
		return DeleteConfigResponse{}, err
	}
	return data.(DeleteConfigResponse), nil
}

// Toggle starts or stops a configuration. Activating one deactivates
// every other config on the backend, so the whole tag family is
// invalidated rather than just the toggled id.
func (s *Service) Toggle(ctx context.Context, id int, isActive bool) (ToggleResponse, error) {
	if id == 0 {
		return ToggleResponse{}, &transport.ValidationError{Field: "id", Reason: "is required"}
	}

	body := struct {
		IsActive bool `json:"is_active"`
	}{IsActive: isActive}

	data, err := s.cache.Mutate(ctx, cache.Mutation{
		Name:        "toggleBot",
		Invalidates: []cache.Tag{cache.ListTag(TagType)},
		Do: func(ctx context.Context) (any, error) {
			var out ToggleResponse
			if err := s.requester.Do(ctx, http.MethodPost, fmt.Sprintf("/bot/configs/%d/toggle", id), body, true, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
	})
	if err != nil {
		return ToggleResponse{}, err
	}
	return data.(ToggleResponse), nil
}
