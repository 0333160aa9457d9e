// Package auth wraps the Basalt auth endpoints. It keeps the current
// session in memory and feeds the access token to the shared transport; it
// performs no verification or cryptography of its own — tokens are opaque
// values the backend issued.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-hclog"

	"github.com/basalt-io/basalt-go/pkg/transport"
)

// User is the authenticated user as reported by the backend.
type User struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Session holds the tokens for the signed-in user. ExpiresAt is derived
// from the access token's exp claim, falling back to the server-sent
// expires_at field.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         *User
}

// Expired reports whether the session's access token has expired. A zero
// ExpiresAt (expiry unknown) counts as not expired.
func (s *Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// Credentials are the inputs for password sign-up and sign-in.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the credentials before they go over the wire.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, is.Email),
		validation.Field(&c.Password, validation.Required),
	)
}

// Service wraps the auth endpoints.
type Service struct {
	tc     *transport.Client
	logger hclog.Logger

	mu      sync.RWMutex
	session *Session
}

// NewService creates an auth service on top of the shared transport.
func NewService(tc *transport.Client, logger hclog.Logger) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Service{
		tc:     tc,
		logger: logger.Named("auth"),
	}
}

// AccessToken returns the current session's access token, or "" when signed
// out. Used as the transport's token source.
func (s *Service) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	return s.session.AccessToken
}

// Session returns the current session, or nil when signed out.
func (s *Service) Session() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// SignUp registers a new user and stores the resulting session.
func (s *Service) SignUp(ctx context.Context, creds Credentials) (*Session, error) {
	return s.exchange(ctx, "/v1/auth/signup", creds)
}

// SignInWithPassword signs in with email and password and stores the
// resulting session.
func (s *Service) SignInWithPassword(ctx context.Context, creds Credentials) (*Session, error) {
	return s.exchange(ctx, "/v1/auth/token", creds)
}

func (s *Service) exchange(ctx context.Context, path string, creds Credentials) (*Session, error) {
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}

	var payload sessionPayload
	if err := s.tc.Do(ctx, http.MethodPost, path, creds, &payload); err != nil {
		return nil, err
	}

	session := payload.toSession(s.logger)
	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	s.logger.Debug("session established", "expires_at", session.ExpiresAt)
	return session, nil
}

// RefreshSession exchanges the refresh token for a new session.
func (s *Service) RefreshSession(ctx context.Context) (*Session, error) {
	s.mu.RLock()
	current := s.session
	s.mu.RUnlock()
	if current == nil || current.RefreshToken == "" {
		return nil, fmt.Errorf("no session to refresh")
	}

	body := map[string]string{"refresh_token": current.RefreshToken}
	var payload sessionPayload
	if err := s.tc.Do(ctx, http.MethodPost, "/v1/auth/refresh", body, &payload); err != nil {
		return nil, err
	}

	session := payload.toSession(s.logger)
	s.mu.Lock()
	s.session = session
	s.mu.Unlock()
	return session, nil
}

// SignOut revokes the session server-side and clears it locally. The local
// session is cleared even when revocation fails.
func (s *Service) SignOut(ctx context.Context) error {
	err := s.tc.Do(ctx, http.MethodPost, "/v1/auth/signout", nil, nil)

	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
	return err
}

// User fetches the user for the current session.
func (s *Service) User(ctx context.Context) (*User, error) {
	var user User
	if err := s.tc.Do(ctx, http.MethodGet, "/v1/auth/user", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// sessionPayload is the backend's token response.
type sessionPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
	User         *User  `json:"user"`
}

func (p sessionPayload) toSession(logger hclog.Logger) *Session {
	return &Session{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresAt:    parseExpiry(p.AccessToken, p.ExpiresAt, logger),
		User:         p.User,
	}
}

// parseExpiry reads the exp claim from the access token without verifying
// the signature (verification is the backend's job), falling back to the
// server's expires_at field, which has shown up in several formats.
func parseExpiry(accessToken, expiresAt string, logger hclog.Logger) time.Time {
	if accessToken != "" {
		parser := jwt.NewParser()
		if token, _, err := parser.ParseUnverified(accessToken, jwt.MapClaims{}); err == nil {
			if exp, err := token.Claims.GetExpirationTime(); err == nil && exp != nil {
				return exp.Time
			}
		}
	}

	if expiresAt != "" {
		if ts, err := dateparse.ParseAny(expiresAt); err == nil {
			return ts
		}
		logger.Warn("unparseable expires_at", "value", expiresAt)
	}
	return time.Time{}
}
