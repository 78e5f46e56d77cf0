// Package session performs the OAuth2 password-grant login against the CC98
// identity provider and exposes authenticated access to the forum API.
package session

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cc98-notifier/pkg/forum"
)

const (
	// DefaultAPIBase is the CC98 REST API.
	DefaultAPIBase = "https://api.cc98.org"
	// DefaultOpenIDBase is the identity provider hosting the token endpoint.
	DefaultOpenIDBase = "https://openid.cc98.org"

	// tokenScope is the scope set the web client requests; the API rejects
	// tokens issued with anything narrower.
	tokenScope = "cc98-api openid offline_access"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	maxErrorBody = 4 << 10
)

// AuthError indicates a failed login attempt.
type AuthError struct {
	Reason string
	Body   string
	Status int
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("login failed: HTTP %d", e.Status)
	}
	return "login failed: " + e.Reason
}

// IsAuthError checks if an error is a login failure.
func IsAuthError(err error) bool {
	var auth *AuthError
	return errors.As(err, &auth)
}

// Session holds the bearer token for the forum API. It is the only owner of
// credential and token state; all authenticated calls go through it. It is
// not safe for concurrent use — the poll loop is the single caller.
type Session struct {
	client      *http.Client
	tokenClient *http.Client
	logger      *slog.Logger
	credentials *forum.Credentials
	tokens      forum.TokenSet
	username    string
	password    string
	apiBase     string
	openIDBase  string
}

// Config holds session construction parameters. Credentials may be nil when
// discovery failed; Login then fails without a network call.
type Config struct {
	Username    string
	Password    string
	Credentials *forum.Credentials
	APIBase     string
	OpenIDBase  string
	Logger      *slog.Logger
}

// New creates a session. The API client deliberately carries no timeout: a
// hung call stalls the poll loop rather than converting into a spurious
// cycle failure, matching the loop's single-thread contract.
func New(cfg *Config) *Session {
	apiBase := cfg.APIBase
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	openIDBase := cfg.OpenIDBase
	if openIDBase == "" {
		openIDBase = DefaultOpenIDBase
	}

	return &Session{
		client: &http.Client{},
		// The identity provider's certificate is not publicly trusted in
		// this deployment, so verification is disabled for the token
		// endpoint only. Known risk, kept on purpose.
		tokenClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // IdP cert is self-signed
			},
		},
		logger:      cfg.Logger,
		credentials: cfg.Credentials,
		username:    cfg.Username,
		password:    cfg.Password,
		apiBase:     strings.TrimSuffix(apiBase, "/"),
		openIDBase:  strings.TrimSuffix(openIDBase, "/"),
	}
}

// Login exchanges the account password plus the scraped client credentials
// for a bearer token. On failure any previously held token is left in place.
func (s *Session) Login(ctx context.Context) error {
	if s.credentials == nil || s.credentials.ClientID == "" || s.credentials.ClientSecret == "" {
		s.logger.Error("Client credentials not resolved, cannot login")
		return &AuthError{Reason: "client credentials not resolved"}
	}

	s.logger.Info("Attempting login via OAuth2 password grant")

	form := url.Values{
		"client_id":     {s.credentials.ClientID},
		"client_secret": {s.credentials.ClientSecret},
		"grant_type":    {"password"},
		"username":      {s.username},
		"password":      {s.password},
		"scope":         {tokenScope},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.openIDBase+"/connect/token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.tokenClient.Do(req)
	if err != nil {
		s.logger.Error("Token request failed", "error", err)
		return &AuthError{Reason: err.Error()}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			s.logger.Warn("Failed to close token response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		s.logger.Error("Login failed", "status_code", resp.StatusCode, "body", string(body))
		return &AuthError{Status: resp.StatusCode, Body: string(body)}
	}

	var tokens forum.TokenSet
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		s.logger.Error("Malformed token response", "error", err)
		return &AuthError{Reason: "malformed token response: " + err.Error()}
	}
	if tokens.AccessToken == "" {
		return &AuthError{Reason: "token response missing access_token"}
	}

	s.tokens = tokens
	s.logger.Info("Login successful")
	return nil
}

// Get issues an authenticated GET against the API. The raw response is
// returned for the caller to interpret; status handling and retries belong
// to the poll loop, not here.
func (s *Session) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	reqURL := s.apiBase + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if s.tokens.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.tokens.AccessToken)
	}

	return s.client.Do(req)
}
