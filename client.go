// Package botpanel assembles the dashboard client: session store,
// request executor, entity cache and the typed endpoint services, wired
// the way the backend contract expects.
package botpanel

import (
	cleanhttp "github.com/hashicorp/go-cleanhttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/botpanel/go-botpanel/auth"
	"github.com/botpanel/go-botpanel/bots"
	"github.com/botpanel/go-botpanel/cache"
	"github.com/botpanel/go-botpanel/clients"
	"github.com/botpanel/go-botpanel/internal/config"
	"github.com/botpanel/go-botpanel/portfolio"
	"github.com/botpanel/go-botpanel/session"
	"github.com/botpanel/go-botpanel/transport"
)

// Panel is the assembled client. All services share one session store,
// one executor and one cache, so a mutation through any service
// refetches the views every other service holds open.
type Panel struct {
	Session   *session.Store
	Cache     *cache.Store
	Auth      *auth.Service
	Clients   *clients.Service
	Bots      *bots.Service
	Portfolio *portfolio.Service
}

// PanelOption defines a function type to modify the Panel assembly.
type PanelOption func(*panelSettings)

type panelSettings struct {
	logger  zerolog.Logger
	storage session.Storage
}

// WithLogger sets the structured logger shared by all components.
func WithLogger(l zerolog.Logger) PanelOption {
	return func(s *panelSettings) {
		s.logger = l
	}
}

// WithSessionStorage overrides the file-backed session storage,
// primarily for tests.
func WithSessionStorage(storage session.Storage) PanelOption {
	return func(s *panelSettings) {
		s.storage = storage
	}
}

// New builds a Panel from configuration and restores any persisted
// session before the first authenticated request can happen. A 401 on
// any authenticated call forces a logout, so `Session.IsAuthenticated`
// is the single signal a UI needs to watch for redirects.
func New(cfg config.Config, options ...PanelOption) (*Panel, error) {
	settings := panelSettings{logger: zerolog.Nop()}
	for _, opt := range options {
		opt(&settings)
	}

	storage := settings.storage
	if storage == nil {
		fileStorage, err := session.NewFileStorage(cfg.GetDataFolder())
		if err != nil {
			return nil, errors.Wrap(err, "[New] session storage")
		}
		storage = fileStorage
	}

	sessions, err := session.NewStore(storage, session.WithLogger(settings.logger))
	if err != nil {
		return nil, errors.Wrap(err, "[New] session store")
	}
	if err := sessions.Restore(); err != nil {
		return nil, errors.Wrap(err, "[New] session restore")
	}

	store := cache.NewStore(
		cache.WithKeepUnusedFor(cfg.GetKeepUnusedFor()),
		cache.WithLogger(settings.logger),
	)

	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = cfg.GetHTTPTimeout()

	executor, err := transport.NewExecutor(cfg.GetBaseURL(), sessions,
		transport.WithHTTPClient(httpClient),
		transport.WithLogger(settings.logger),
		transport.WithUnauthorizedHook(func() {
			_ = sessions.Logout()
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[New] executor")
	}

	authService, err := auth.NewService(executor, store, sessions)
	if err != nil {
		return nil, errors.Wrap(err, "[New] auth service")
	}
	clientService, err := clients.NewService(executor, store)
	if err != nil {
		return nil, errors.Wrap(err, "[New] clients service")
	}
	botService, err := bots.NewService(executor, store)
	if err != nil {
		return nil, errors.Wrap(err, "[New] bots service")
	}
	portfolioService, err := portfolio.NewService(executor, store, cfg.GetPortfolioTTL())
	if err != nil {
		return nil, errors.Wrap(err, "[New] portfolio service")
	}

	return &Panel{
		Session:   sessions,
		Cache:     store,
		Auth:      authService,
		Clients:   clientService,
		Bots:      botService,
		Portfolio: portfolioService,
	}, nil
}
