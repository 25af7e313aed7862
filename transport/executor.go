package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	cleanhttp "github.com/hashicorp/go-cleanhttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// TokenSource supplies the bearer token attached to authenticated
// requests. The session store satisfies this interface.
type TokenSource interface {
	BearerToken() (token string, ok bool)
}

// Executor issues HTTP calls against the backend, attaches the bearer
// token when one is available, serializes JSON bodies and normalizes
// transport and HTTP failures into typed errors. It performs no retries:
// every call maps to exactly one request, so retry policy stays with the
// caller.
type Executor struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	logger         zerolog.Logger
	onUnauthorized func()
}

// ExecutorOption defines a function type to modify the Executor instance.
type ExecutorOption func(*Executor)

// WithHTTPClient replaces the default pooled HTTP client. Timeout policy
// belongs to the supplied client, not to the executor.
func WithHTTPClient(c *http.Client) ExecutorOption {
	return func(e *Executor) {
		e.httpClient = c
	}
}

// WithLogger sets the structured logger used for request lifecycle events.
func WithLogger(l zerolog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithUnauthorizedHook registers a callback invoked whenever an
// authenticated request comes back 401. The session wiring uses this to
// force a logout.
func WithUnauthorizedHook(hook func()) ExecutorOption {
	return func(e *Executor) {
		e.onUnauthorized = hook
	}
}

// NewExecutor initializes an Executor for the given backend base URL.
func NewExecutor(baseURL string, tokens TokenSource, options ...ExecutorOption) (*Executor, error) {
	if baseURL == "" {
		return nil, errors.New("[NewExecutor] baseURL is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewExecutor] token source is required")
	}

	e := &Executor{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: cleanhttp.DefaultPooledClient(),
		tokens:     tokens,
		logger:     zerolog.Nop(),
	}

	for _, opt := range options {
		opt(e)
	}

	return e, nil
}

// Do performs a single HTTP call. body, when non-nil, is serialized as
// JSON; out, when non-nil, receives the decoded response body. All
// failure paths return one of *NetworkError, *HTTPError or *DecodeError;
// nothing panics across this boundary.
func (e *Executor) Do(ctx context.Context, method, path string, body any, requiresAuth bool, out any) error {
	requestID := uuid.NewString()
	started := time.Now()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &DecodeError{Err: errors.Wrap(err, "marshal request body")}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+path, reader)
	if err != nil {
		return &NetworkError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if token, ok := e.tokens.BearerToken(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.logger.Warn().
			Str("request_id", requestID).
			Str("method", method).
			Str("path", path).
			Err(err).
			Msg("request failed before a response was received")
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}

	e.logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("request completed")

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		httpErr := &HTTPError{Status: resp.StatusCode, Body: respBody}
		if httpErr.IsUnauthorized() && requiresAuth && e.onUnauthorized != nil {
			e.onUnauthorized()
		}
		return httpErr
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &DecodeError{Err: err}
		}
	}
	return nil
}
