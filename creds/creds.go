// Package creds discovers the OAuth client credentials embedded in the CC98
// front-end bundle. The forum does not publish its client id/secret; the web
// client ships them inside its main script, so we scrape the served HTML for
// the bundle filename and pull the values out of the script text.
package creds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"cc98-notifier/pkg/forum"

	"github.com/PuerkitoBio/goquery"
	"github.com/codeGROOVE-dev/retry"
)

// DefaultBaseURL is the public CC98 front-end.
const DefaultBaseURL = "https://www.cc98.org"

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var (
	bundleRegex       = regexp.MustCompile(`main-[a-f0-9]+\.js`)
	clientIDRegex     = regexp.MustCompile(`client_id\s*[:=]\s*["']([^"']+)["']`)
	clientSecretRegex = regexp.MustCompile(`client_secret\s*[:=]\s*["']([^"']+)["']`)
)

// DiscoveryError indicates that credential scraping could not complete.
// Stage names the step that failed so operators can tell a site outage apart
// from a front-end build change.
type DiscoveryError struct {
	Stage string
	Err   error
}

func (e *DiscoveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("credential discovery failed at %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("credential discovery failed at %s", e.Stage)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// IsDiscoveryError checks if an error is a credential discovery failure.
func IsDiscoveryError(err error) bool {
	var discovery *DiscoveryError
	return errors.As(err, &discovery)
}

// Resolver scrapes the forum's web bundle for OAuth client credentials.
type Resolver struct {
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// New creates a resolver against the given front-end base URL.
func New(baseURL string, logger *slog.Logger) *Resolver {
	return &Resolver{
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Resolve fetches the site root, locates the main script bundle, and extracts
// the client id and secret from it. This is best-effort and intentionally
// fragile to front-end build changes; a failure here surfaces later as a
// login failure, not a crash.
func (r *Resolver) Resolve(ctx context.Context) (*forum.Credentials, error) {
	r.logger.Info("Fetching OAuth client credentials from web bundle", "base_url", r.baseURL)

	homepage, err := r.fetch(ctx, r.baseURL+"/")
	if err != nil {
		return nil, &DiscoveryError{Stage: "homepage", Err: err}
	}

	bundleName := findBundleName(homepage)
	if bundleName == "" {
		return nil, &DiscoveryError{Stage: "bundle name", Err: errors.New("no main-<hex>.js reference in page source")}
	}

	bundleURL := r.baseURL + "/static/scripts/" + bundleName
	r.logger.Info("Found JS bundle", "url", bundleURL)

	bundle, err := r.fetch(ctx, bundleURL)
	if err != nil {
		return nil, &DiscoveryError{Stage: "bundle", Err: err}
	}

	idMatch := clientIDRegex.FindStringSubmatch(bundle)
	if idMatch == nil {
		return nil, &DiscoveryError{Stage: "client_id", Err: errors.New("no client_id assignment in bundle")}
	}
	secretMatch := clientSecretRegex.FindStringSubmatch(bundle)
	if secretMatch == nil {
		return nil, &DiscoveryError{Stage: "client_secret", Err: errors.New("no client_secret assignment in bundle")}
	}

	r.logger.Info("Client credentials resolved", "bundle", bundleName)
	return &forum.Credentials{
		ClientID:     idMatch[1],
		ClientSecret: secretMatch[1],
	}, nil
}

// findBundleName locates the main script filename, preferring script tag
// sources over a raw text match so that a mention in page copy can't fool us.
func findBundleName(page string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err == nil {
		var name string
		doc.Find("script[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			src, _ := s.Attr("src")
			if m := bundleRegex.FindString(src); m != "" {
				name = m
				return false
			}
			return true
		})
		if name != "" {
			return name
		}
	}
	return bundleRegex.FindString(page)
}

func (r *Resolver) fetch(ctx context.Context, fetchURL string) (string, error) {
	var body string

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, http.NoBody)
			if err != nil {
				return fmt.Errorf("create request: %w", err)
			}
			req.Header.Set("User-Agent", userAgent)

			startTime := time.Now()
			resp, err := r.client.Do(req)
			duration := time.Since(startTime)

			if err != nil {
				r.logger.Warn("HTTP request failed, will retry",
					"url", fetchURL,
					"duration_ms", duration.Milliseconds(),
					"error", err)
				return err
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					r.logger.Warn("Failed to close response body", "error", closeErr)
				}
			}()

			if resp.StatusCode != http.StatusOK {
				r.logger.Warn("HTTP request returned non-OK status, will retry",
					"url", fetchURL,
					"status_code", resp.StatusCode)
				return fmt.Errorf("HTTP %d", resp.StatusCode)
			}

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}
			body = string(data)
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Info("Retrying fetch after error", "attempt", n, "url", fetchURL, "error", err)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("after retries: %w", err)
	}

	return body, nil
}
