package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the gatekeep service. It performs the
// unauthenticated operations and creates Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new gatekeep client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register creates an account and returns its public view.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/register", "", req)
	if err != nil {
		return nil, err
	}

	var user User
	if err := decodeJSON(resp, &user, http.StatusCreated); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for a session token. Accounts with MFA enabled
// fail with ErrMFARequired until req.TOTP is set.
func (c *SDKClient) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/login", "", req)
	if err != nil {
		return nil, err
	}

	var out LoginResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Authenticate logs in and wraps the token in a Session.
func (c *SDKClient) Authenticate(ctx context.Context, email, password, totp string) (*Session, error) {
	out, err := c.Login(ctx, LoginRequest{Email: email, Password: password, TOTP: totp})
	if err != nil {
		return nil, err
	}
	return c.NewSession(out.Token), nil
}

// NewSession wraps an existing token. Tokens are not refreshed; once one
// expires every call fails with ErrNotAuthenticated and the caller must log
// in again.
func (c *SDKClient) NewSession(token string) *Session {
	return &Session{client: c, token: token}
}
