// Package identity talks to the upstream identity service. The console never
// authorizes on its own: everything in here is a cache/convenience layer over
// what the identity service grants.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrEmailNotVerified is returned by SignIn when the account exists but the
// email address has not been confirmed yet. Callers branch on it to offer a
// re-send-verification affordance.
var ErrEmailNotVerified = errors.New("identity: email not verified")

// APIError carries the HTTP status of a failed identity call. A 401 is the
// only status callers may treat as an authoritative invalid-credential signal.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("identity: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("identity: status %d", e.Status)
}

// IsUnauthorized reports whether err is an APIError with status 401.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Credentials are the sign-in inputs.
type Credentials struct {
	Email    string
	Password string
}

// SignUpRequest carries registration data. Registration never signs the user
// in; they still go through SignIn afterwards.
type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	CompanyName string `json:"companyName,omitempty"`
}

// SignInResult is the token exchange response. User may be a sparse summary;
// callers should check RawProfile.Sparse and fetch the full profile if so.
type SignInResult struct {
	Token string      `json:"token"`
	User  *RawProfile `json:"user"`
}

// API is the surface the session controller depends on.
type API interface {
	SignIn(ctx context.Context, creds Credentials) (*SignInResult, error)
	SignUp(ctx context.Context, req SignUpRequest) error
	Profile(ctx context.Context, token string) (*RawProfile, error)
	SignOut(ctx context.Context, token string) error
}

// Client implements API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client for the identity service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// SignIn exchanges credentials for a bearer token.
func (c *Client) SignIn(ctx context.Context, creds Credentials) (*SignInResult, error) {
	payload := map[string]string{"email": creds.Email, "password": creds.Password}
	var result SignInResult
	if err := c.do(ctx, http.MethodPost, "/v1/auth/login", "", payload, &result); err != nil {
		return nil, err
	}
	if result.Token == "" {
		return nil, &APIError{Status: http.StatusBadGateway, Message: "login response missing token"}
	}
	return &result, nil
}

// SignUp registers a new account.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/register", "", req, nil)
}

// Profile fetches the raw profile for the given bearer token.
func (c *Client) Profile(ctx context.Context, token string) (*RawProfile, error) {
	var profile RawProfile
	if err := c.do(ctx, http.MethodGet, "/v1/auth/profile", token, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// SignOut invalidates the token server side.
func (c *Client) SignOut(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/logout", token, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("identity: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("identity: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity: %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("identity: decode response: %w", err)
		}
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body errorBody
	_ = json.Unmarshal(data, &body)
	if body.Code == "email_not_verified" || body.Error == "email_not_verified" {
		return ErrEmailNotVerified
	}
	message := body.Message
	if message == "" {
		message = body.Error
	}
	return &APIError{Status: resp.StatusCode, Message: message}
}

var _ API = (*Client)(nil)
