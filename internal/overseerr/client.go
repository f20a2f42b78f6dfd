package overseerr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"overbridge/pkg/models"
	"overbridge/pkg/textutil"
)

// AuthMode identifies which credential kind a request actually used.
type AuthMode string

const (
	AuthModeCookie AuthMode = "cookie"
	AuthModeAPIKey AuthMode = "api-key"
)

// AuthStrategy selects the credential sequence for a call.
type AuthStrategy string

const (
	// StrategyCookie sends the stored session cookie, no key header.
	StrategyCookie AuthStrategy = "cookie"
	// StrategyAPIKey omits cookies, sends the key header, no fallback.
	StrategyAPIKey AuthStrategy = "api-key"
	// StrategyCookieWithFallback tries the cookie first and retries once
	// with the key header (and no cookies) on a 401.
	StrategyCookieWithFallback AuthStrategy = "cookie-with-key-fallback"
)

// StrategyFromSettings maps the persisted auth-method selector to a strategy.
func StrategyFromSettings(s models.Settings) AuthStrategy {
	switch s.AuthMethod {
	case models.AuthMethodAPIKey:
		return StrategyAPIKey
	case models.AuthMethodCookieWithFallback:
		return StrategyCookieWithFallback
	default:
		return StrategyCookie
	}
}

const (
	requestTimeout  = 15 * time.Second
	snippetMaxBytes = 500
	apiKeyHeader    = "X-Api-Key"
)

// Client issues HTTP calls to an Overseerr server. Cookie-mode requests go
// through a jar-backed client so the login session persists across calls;
// key-mode requests use a jarless client so no cookies leak alongside the
// key.
type Client struct {
	cookieClient *http.Client
	bareClient   *http.Client

	// The key is swapped whenever the user saves settings, while other
	// handlers may be mid-request on the same client.
	mu     sync.RWMutex
	apiKey string
}

// NewClient builds a client. apiKey may be empty when the user only uses
// cookie auth.
func NewClient(apiKey string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		cookieClient: &http.Client{Timeout: requestTimeout, Jar: jar},
		bareClient:   &http.Client{Timeout: requestTimeout},
		apiKey:       apiKey,
	}
}

// SetAPIKey swaps the key used by key-mode requests. Safe to call while
// requests are in flight.
func (c *Client) SetAPIKey(key string) {
	c.mu.Lock()
	c.apiKey = key
	c.mu.Unlock()
}

func (c *Client) currentAPIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

// RequestOptions carries per-call request details plus the auth-failed
// side-effect hook the session coordinator uses to invalidate its cache and
// trigger the login-prompt flow.
type RequestOptions struct {
	Method string
	Body   any

	// OnAuthFailure runs when a 401 exhausts the strategy, except when the
	// failing mode was the key mode: a rejected key should not trigger a
	// browser login tab.
	OnAuthFailure func(sanitizedBase string)
}

// Outcome is a successful (non-401) exchange. Any HTTP status other than 401
// is returned here, not as an error; callers decide what non-2xx means for
// their endpoint.
type Outcome struct {
	Response     *http.Response
	URL          string
	UsedAuthMode AuthMode
}

// Execute runs one logical request against baseUrl+endpoint, walking the
// strategy's auth modes until one yields a non-401 response.
func (c *Client) Execute(ctx context.Context, baseURL, endpoint string, opts RequestOptions, strategy AuthStrategy) (*Outcome, error) {
	sanitizedBase, err := textutil.SanitizeBaseURL(baseURL)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	modes := strategyModes(strategy)
	url := sanitizedBase + endpoint

	for i, mode := range modes {
		resp, err := c.attempt(ctx, url, mode, opts)
		if err != nil {
			return nil, &TransportError{URL: sanitizedBase, Err: err}
		}

		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			if i < len(modes)-1 {
				continue
			}
			if mode != AuthModeAPIKey && opts.OnAuthFailure != nil {
				opts.OnAuthFailure(sanitizedBase)
			}
			return nil, &AuthRequiredError{Mode: mode, Message: authFailureMessage(mode)}
		}

		return &Outcome{Response: resp, URL: url, UsedAuthMode: mode}, nil
	}

	// strategyModes never returns an empty list.
	return nil, fmt.Errorf("no auth modes for strategy %q", strategy)
}

func strategyModes(strategy AuthStrategy) []AuthMode {
	switch strategy {
	case StrategyAPIKey:
		return []AuthMode{AuthModeAPIKey}
	case StrategyCookieWithFallback:
		return []AuthMode{AuthModeCookie, AuthModeAPIKey}
	default:
		return []AuthMode{AuthModeCookie}
	}
}

func authFailureMessage(mode AuthMode) string {
	if mode == AuthModeAPIKey {
		return "Overseerr rejected the API key; update it in the options page"
	}
	return "log into Overseerr in the opened tab, then retry"
}

func (c *Client) attempt(ctx context.Context, url string, mode AuthMode, opts RequestOptions) (*http.Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != nil {
		encoded, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if mode == AuthModeAPIKey {
		req.Header.Set(apiKeyHeader, c.currentAPIKey())
		return c.bareClient.Do(req)
	}
	return c.cookieClient.Do(req)
}

// readSnippet drains up to snippetMaxBytes of a response body for error
// diagnostics and closes it.
func readSnippet(resp *http.Response) string {
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, snippetMaxBytes))
	return string(b)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, snippetMaxBytes))
	resp.Body.Close()
}
