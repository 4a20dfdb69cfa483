// Package identity signs users in against the Firebase Identity Toolkit REST
// API. The Admin SDK has no client-side sign-in surface, so this speaks the
// same REST endpoints a mobile client would: anonymous sign-up, email
// sign-in, and email registration.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://identitytoolkit.googleapis.com/v1"

// ErrAuthFailed wraps every sign-in rejection; the message carries the
// user-facing text.
var ErrAuthFailed = errors.New("authentication failed")

// Credentials is the authenticated session returned by every sign-in path.
type Credentials struct {
	UID          string
	IDToken      string
	RefreshToken string
	Email        string
	IsAnonymous  bool
}

// Client calls the Identity Toolkit REST API with a Firebase web API key.
type Client struct {
	// BaseURL lets tests point the client at a fake API; empty means the
	// production endpoint.
	BaseURL string

	apiKey     string
	httpClient *http.Client
}

// NewClient creates an identity client for the given Firebase web API key.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type authResponse struct {
	LocalID      string `json:"localId"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	Email        string `json:"email"`
}

// SignInAnonymously creates a fresh anonymous identity.
func (c *Client) SignInAnonymously(ctx context.Context) (*Credentials, error) {
	resp, err := c.post(ctx, "accounts:signUp", map[string]interface{}{
		"returnSecureToken": true,
	})
	if err != nil {
		return nil, err
	}
	return &Credentials{
		UID:          resp.LocalID,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		IsAnonymous:  true,
	}, nil
}

// SignInWithEmail authenticates an existing email account.
func (c *Client) SignInWithEmail(ctx context.Context, email, password string) (*Credentials, error) {
	resp, err := c.post(ctx, "accounts:signInWithPassword", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return nil, err
	}
	return &Credentials{
		UID:          resp.LocalID,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		Email:        resp.Email,
	}, nil
}

// SignUpWithEmail registers a new email account.
func (c *Client) SignUpWithEmail(ctx context.Context, email, password string) (*Credentials, error) {
	resp, err := c.post(ctx, "accounts:signUp", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return nil, err
	}
	return &Credentials{
		UID:          resp.LocalID,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		Email:        resp.Email,
	}, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload map[string]interface{}) (*authResponse, error) {
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode identity request: %w", err)
	}

	url := fmt.Sprintf("%s/%s?key=%s", baseURL, endpoint, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read identity response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(data, resp.StatusCode)
	}

	var out authResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode identity response: %w", err)
	}
	return &out, nil
}

// apiError converts Identity Toolkit error codes into user-facing messages.
func apiError(body []byte, status int) error {
	var wrapper struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	code := ""
	if err := json.Unmarshal(body, &wrapper); err == nil {
		code = wrapper.Error.Message
	}

	// Codes may carry a suffix such as "WEAK_PASSWORD : Password should be
	// at least 6 characters"; match on the leading token.
	if i := strings.IndexAny(code, " :"); i > 0 {
		code = code[:i]
	}

	switch code {
	case "EMAIL_NOT_FOUND":
		return fmt.Errorf("%w: No account found with this email", ErrAuthFailed)
	case "INVALID_PASSWORD":
		return fmt.Errorf("%w: Incorrect password", ErrAuthFailed)
	case "INVALID_EMAIL":
		return fmt.Errorf("%w: Invalid email address", ErrAuthFailed)
	case "INVALID_LOGIN_CREDENTIALS":
		return fmt.Errorf("%w: Invalid email or password", ErrAuthFailed)
	case "EMAIL_EXISTS":
		return fmt.Errorf("%w: This email is already registered", ErrAuthFailed)
	case "WEAK_PASSWORD":
		return fmt.Errorf("%w: Password is too weak", ErrAuthFailed)
	case "":
		return fmt.Errorf("%w: unexpected response (status %d)", ErrAuthFailed, status)
	default:
		return fmt.Errorf("%w: %s", ErrAuthFailed, code)
	}
}
