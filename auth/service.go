package auth

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/botpanel/go-botpanel/cache"
	"github.com/botpanel/go-botpanel/session"
	"github.com/botpanel/go-botpanel/transport"
)

// Requester issues backend calls; satisfied by transport.Executor.
type Requester interface {
	Do(ctx context.Context, method, path string, body any, requiresAuth bool, out any) error
}

// Service exposes the authentication endpoints. A successful login feeds
// the session store, which every authenticated endpoint draws its bearer
// token from on the next call.
type Service struct {
	requester Requester
	cache     *cache.Store
	session   *session.Store
}

// NewService initializes the auth endpoint service.
func NewService(requester Requester, store *cache.Store, sessions *session.Store) (*Service, error) {
	if requester == nil {
		return nil, errors.New("[NewService] requester is required")
	}
	if store == nil {
		return nil, errors.New("[NewService] cache store is required")
	}
	if sessions == nil {
		return nil, errors.New("[NewService] session store is required")
	}
	return &Service{requester: requester, cache: store, session: sessions}, nil
}

// Login exchanges credentials for a bearer token, persists the session
// and invalidates the auth tag family. Bad credentials surface as
// *transport.HTTPError with status 401.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	if req.Username == "" {
		return LoginResponse{}, &transport.ValidationError{Field: "username", Reason: "is required"}
	}
	if req.Password == "" {
		return LoginResponse{}, &transport.ValidationError{Field: "password", Reason: "is required"}
	}

	data, err := s.cache.Mutate(ctx, cache.Mutation{
		Name:        "login",
		Invalidates: []cache.Tag{cache.TypeTag(TagType)},
		Do: func(ctx context.Context) (any, error) {
			var out LoginResponse
			if err := s.requester.Do(ctx, http.MethodPost, "/login", req, false, &out); err != nil {
				return nil, err
			}
			if err := s.session.SetCredentials(out.User, out.AccessToken); err != nil {
				return nil, err
			}
			return out, nil
		},
	})
	if err != nil {
		return LoginResponse{}, err
	}
	return data.(LoginResponse), nil
}

// Register creates an account. It does not log the new account in; the
// caller follows up with Login.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (RegisterResponse, error) {
	if req.Username == "" {
		return RegisterResponse{}, &transport.ValidationError{Field: "username", Reason: "is required"}
	}
	if req.Email == "" {
		return RegisterResponse{}, &transport.ValidationError{Field: "email", Reason: "is required"}
	}
	if req.Password == "" {
		return RegisterResponse{}, &transport.ValidationError{Field: "password", Reason: "is required"}
	}

	data, err := s.cache.Mutate(ctx, cache.Mutation{
		Name:        "register",
		Invalidates: []cache.Tag{cache.TypeTag(TagType)},
		Do: func(ctx context.Context) (any, error) {
			var out RegisterResponse
			if err := s.requester.Do(ctx, http.MethodPost, "/register", req, false, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
	})
	if err != nil {
		return RegisterResponse{}, err
	}
	return data.(RegisterResponse), nil
}

// ForgotPassword requests a password reset token for the given email.
func (s *Service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (ForgotPasswordResponse, error) {
	if req.Email == "" {
		return ForgotPasswordResponse{}, &transport.ValidationError{Field: "email", Reason: "is required"}
	}

	var out ForgotPasswordResponse
	if err := s.requester.Do(ctx, http.MethodPost, "/forgot-password", req, false, &out); err != nil {
		return ForgotPasswordResponse{}, err
	}
	return out, nil
}

// ResetPassword redeems a reset token for a new password.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) (ResetPasswordResponse, error) {
	if req.Token == "" {
		return ResetPasswordResponse{}, &transport.ValidationError{Field: "token", Reason: "is required"}
	}
	if req.NewPassword == "" {
		return ResetPasswordResponse{}, &transport.ValidationError{Field: "new_password", Reason: "is required"}
	}

	var out ResetPasswordResponse
	if err := s.requester.Do(ctx, http.MethodPost, "/reset-password", req, false, &out); err != nil {
		return ResetPasswordResponse{}, err
	}
	return out, nil
}

// Logout clears the session. Purely local; the backend holds no session
// state to revoke.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.session.Logout(); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.TypeTag(TagType))
	return nil
}
