package authsdk

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

// Session represents an authenticated caller holding a session token.
// It is safe for concurrent use.
type Session struct {
	client *SDKClient

	mu    sync.RWMutex
	token string
}

// Token returns the current session token.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Relogin replaces the token with a fresh one, for example after enabling
// MFA or once the old token has expired.
func (s *Session) Relogin(ctx context.Context, req LoginRequest) error {
	out, err := s.client.Login(ctx, req)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.token = out.Token
	s.mu.Unlock()
	return nil
}

func (s *Session) do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	token := s.Token()
	if token == "" {
		return nil, errors.New("session has no token")
	}
	return s.client.doJSON(ctx, method, path, token, payload)
}

// Me returns the account the token belongs to.
func (s *Session) Me(ctx context.Context) (*User, error) {
	resp, err := s.do(ctx, http.MethodGet, "/v1/me", nil)
	if err != nil {
		return nil, err
	}

	var user User
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}
