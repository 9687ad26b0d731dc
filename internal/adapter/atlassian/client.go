package atlassian

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainatlassian "github.com/arcnid/innovation-jira/internal/domain/atlassian"
)

// Client encapsulates outbound HTTP calls to the Atlassian identity platform.
type Client interface {
	ExchangeCode(ctx context.Context, code string) (*domainatlassian.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*domainatlassian.TokenResponse, error)
	AccessibleResources(ctx context.Context, accessToken string) ([]domainatlassian.Resource, error)
}

// StatusError carries a non-2xx upstream response so callers can surface the
// provider's status and body verbatim.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed: status=%d body=%s", e.Op, e.StatusCode, e.Body)
}

// Config holds the OAuth application settings the client needs.
type Config struct {
	AuthBaseURL  string
	APIBaseURL   string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// HTTPClient is the default HTTP implementation of Client.
type HTTPClient struct {
	cfg        Config
	httpClient *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient constructs the default Client.
func NewHTTPClient(cfg Config, client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{cfg: cfg, httpClient: client}
}

// ExchangeCode trades an authorization code for tokens.
func (c *HTTPClient) ExchangeCode(ctx context.Context, code string) (*domainatlassian.TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("client_id", c.cfg.ClientID)
	data.Set("client_secret", c.cfg.ClientSecret)
	data.Set("code", code)
	data.Set("redirect_uri", c.cfg.RedirectURI)
	return c.postToken(ctx, "token exchange", data)
}

// RefreshToken trades a refresh token for a new access token.
func (c *HTTPClient) RefreshToken(ctx context.Context, refreshToken string) (*domainatlassian.TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("client_id", c.cfg.ClientID)
	data.Set("client_secret", c.cfg.ClientSecret)
	data.Set("refresh_token", refreshToken)
	return c.postToken(ctx, "token refresh", data)
}

func (c *HTTPClient) postToken(ctx context.Context, op string, data url.Values) (*domainatlassian.TokenResponse, error) {
	endpoint := strings.TrimRight(c.cfg.AuthBaseURL, "/") + "/oauth/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}
	if resp.StatusCode >= 300 {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var token domainatlassian.TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", op, err)
	}
	return &token, nil
}

// AccessibleResources lists the Jira Cloud sites the token is authorized for.
func (c *HTTPClient) AccessibleResources(ctx context.Context, accessToken string) ([]domainatlassian.Resource, error) {
	endpoint := strings.TrimRight(c.cfg.APIBaseURL, "/") + "/oauth/token/accessible-resources"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build accessible-resources request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("accessible-resources request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read accessible-resources: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &StatusError{Op: "accessible-resources", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var resources []domainatlassian.Resource
	if err := json.Unmarshal(body, &resources); err != nil {
		return nil, fmt.Errorf("decode accessible-resources: %w", err)
	}
	return resources, nil
}

// AuthorizationURL builds the Atlassian consent URL for a login redirect.
func AuthorizationURL(cfg Config, scopes []string, state string) string {
	q := url.Values{}
	q.Set("audience", "api.atlassian.com")
	q.Set("client_id", cfg.ClientID)
	q.Set("scope", strings.Join(scopes, " "))
	q.Set("redirect_uri", cfg.RedirectURI)
	q.Set("state", state)
	q.Set("response_type", "code")
	q.Set("prompt", "consent")
	return strings.TrimRight(cfg.AuthBaseURL, "/") + "/authorize?" + q.Encode()
}
