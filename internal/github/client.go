// Package github talks to GitHub's OAuth and profile endpoints. The provider
// is consumed as an opaque HTTP service; nothing in here is persisted.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	domainoauth "github.com/orynlabs/oryn-auth/internal/domain/oauth"
)

const (
	defaultAuthorizeURL = "https://github.com/login/oauth/authorize"
	defaultTokenURL     = "https://github.com/login/oauth/access_token"
	defaultProfileURL   = "https://api.github.com/user"

	// Minimum scope able to read the public profile.
	defaultScope = "read:user"

	userAgent = "Oryn-Server"

	defaultTimeout = 10 * time.Second
)

// Config carries the provider settings registered with GitHub. The endpoint
// overrides exist for tests against a local server.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthorizeURL string
	TokenURL     string
	ProfileURL   string
	Timeout      time.Duration
}

// Client performs the server-to-server half of the authorization code flow.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient builds a provider client with bounded call timeouts.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.AuthorizeURL == "" {
		cfg.AuthorizeURL = defaultAuthorizeURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.ProfileURL == "" {
		cfg.ProfileURL = defaultProfileURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// AuthorizeURL builds the browser redirect target for the given CSRF state.
func (c *Client) AuthorizeURL(state string) string {
	query := url.Values{}
	query.Set("client_id", c.cfg.ClientID)
	query.Set("redirect_uri", c.cfg.RedirectURI)
	query.Set("state", state)
	query.Set("scope", defaultScope)
	return fmt.Sprintf("%s?%s", c.cfg.AuthorizeURL, query.Encode())
}

// ExchangeCode trades a single-use authorization code for an access token.
// A provider-reported OAuth error comes back as *oauth.ProviderError; the
// caller must not retry, codes are single-use.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*domainoauth.TokenResponse, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
		"code":          code,
		"redirect_uri":  c.cfg.RedirectURI,
	})
	if err != nil {
		return nil, fmt.Errorf("encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	// GitHub reports OAuth errors in a 200 body, so decode the error shape
	// regardless of status.
	var combined struct {
		domainoauth.TokenResponse
		domainoauth.ProviderError
	}
	if err := json.Unmarshal(body, &combined); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if combined.Code != "" {
		c.log().Warn("provider rejected code exchange", zap.String("error", combined.Code))
		return nil, &domainoauth.ProviderError{Code: combined.Code, Description: combined.ProviderError.Description}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}
	if combined.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access token")
	}

	token := combined.TokenResponse
	return &token, nil
}

// FetchProfile loads the authenticated user's public profile. The access
// token is used for this single call and discarded by the caller afterwards.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*domainoauth.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ProfileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Authorization", "token "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainoauth.ErrProfileFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log().Warn("profile endpoint returned non-success", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", domainoauth.ErrProfileFetch, resp.StatusCode)
	}

	profile := new(domainoauth.Profile)
	if err := json.NewDecoder(resp.Body).Decode(profile); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", domainoauth.ErrProfileFetch, err)
	}
	return profile, nil
}

func (c *Client) log() *zap.Logger {
	if c != nil && c.logger != nil {
		return c.logger
	}
	return zap.L()
}
