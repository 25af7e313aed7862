package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/botpanel/go-botpanel/users"
)

// Snapshot is the read-only projection of the session handed to the UI.
type Snapshot struct {
	User          *users.User
	Authenticated bool
}

// Store owns the current identity and token. It performs no network
// calls: it is pure state plus persistence. Authenticated is never
// tracked separately; it is derived from token presence, so the two can
// not drift apart.
type Store struct {
	mu      sync.RWMutex
	storage Storage
	logger  zerolog.Logger
	nowTime func() time.Time

	token *oauth2.Token
	user  *users.User
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithLogger sets the structured logger used for session lifecycle events.
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

// NewStore initializes a Store backed by the given durable storage.
func NewStore(storage Storage, options ...StoreOption) (*Store, error) {
	if storage == nil {
		return nil, errors.New("[NewStore] storage is required")
	}

	s := &Store{
		storage: storage,
		logger:  zerolog.Nop(),
		nowTime: time.Now,
	}

	for _, opt := range options {
		opt(s)
	}

	return s, nil
}

// Restore loads the persisted token and user. It must run once at
// startup, before any authenticated request. A storage state with only
// one of the two values present, an unparseable user document, or a
// provably expired token is treated as corrupt: both values are purged
// and the session stays unauthenticated.
func (s *Store) Restore() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, tokenOK, err := s.storage.Get(TokenKey)
	if err != nil {
		return errors.Wrap(err, "[Restore] read token")
	}
	rawUser, userOK, err := s.storage.Get(UserKey)
	if err != nil {
		return errors.Wrap(err, "[Restore] read user")
	}

	if !tokenOK && !userOK {
		s.logger.Debug().Msg("no persisted session to restore")
		return nil
	}
	if !tokenOK || !userOK {
		s.logger.Warn().Msg("partial session state found, purging")
		return s.purge()
	}

	var user users.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		s.logger.Warn().Err(err).Msg("persisted user is malformed, purging")
		return s.purge()
	}
	if expired(token, s.nowTime()) {
		s.logger.Info().Str("username", user.Username).Msg("persisted token expired, purging")
		return s.purge()
	}

	s.token = &oauth2.Token{AccessToken: token, TokenType: "bearer"}
	s.user = &user
	s.logger.Info().Str("username", user.Username).Msg("session restored")
	return nil
}

// SetCredentials replaces the session identity and persists both values.
// Every endpoint picks up the new bearer token on its next call.
func (s *Store) SetCredentials(user users.User, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rawUser, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "[SetCredentials] marshal user")
	}
	if err := s.storage.Set(TokenKey, token); err != nil {
		return errors.Wrap(err, "[SetCredentials] persist token")
	}
	if err := s.storage.Set(UserKey, string(rawUser)); err != nil {
		return errors.Wrap(err, "[SetCredentials] persist user")
	}

	s.token = &oauth2.Token{AccessToken: token, TokenType: "bearer"}
	s.user = &user
	s.logger.Info().Str("username", user.Username).Msg("credentials set")
	return nil
}

// Logout clears the in-memory session and the durable storage together.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info().Msg("logging out")
	return s.purge()
}

// Snapshot returns the read-only session projection.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{User: s.user, Authenticated: s.token != nil}
}

// IsAuthenticated reports whether a token is currently held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token != nil
}

// BearerToken implements transport.TokenSource.
func (s *Store) BearerToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == nil {
		return "", false
	}
	return s.token.AccessToken, true
}

// purge clears both storage keys and the in-memory fields. Callers hold
// the write lock.
func (s *Store) purge() error {
	s.token = nil
	s.user = nil
	if err := s.storage.Delete(TokenKey); err != nil {
		return errors.Wrap(err, "purge token")
	}
	if err := s.storage.Delete(UserKey); err != nil {
		return errors.Wrap(err, "purge user")
	}
	return nil
}

// expired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens carry no client-readable expiry and are accepted as-is;
// the backend still rejects them with a 401 if they have lapsed.
func expired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
