package session

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"overbridge/internal/overseerr"
	"overbridge/pkg/textutil"
)

// TTL for a verified session. Within this window EnsureSession answers from
// cache without a network call, so batch enrichment does not hammer the
// identity endpoint.
const sessionTTL = 5 * time.Minute

// Event types pushed to the extension over the event hub.
const (
	EventLoginRequired  = "login_required"
	EventSessionChanged = "session_changed"
)

// Event is the payload broadcast to connected popups.
type Event struct {
	Type          string `json:"type"`
	Origin        string `json:"origin"`
	LoginURL      string `json:"loginUrl,omitempty"`
	TabID         int    `json:"tabId,omitempty"`
	Authenticated bool   `json:"authenticated"`
	At            string `json:"at"`
}

// Broadcaster pushes events to connected UI clients.
type Broadcaster interface {
	BroadcastJSON(v any)
}

// identityClient is the slice of the catalog client the coordinator needs.
type identityClient interface {
	CurrentUser(ctx context.Context, base string, strategy overseerr.AuthStrategy, onAuthFailure func(string)) (*overseerr.UserInfo, error)
}

// Coordinator owns the auth session state per server origin: a TTL cache of
// verified sessions and the pending-login registry that keeps the extension
// from opening duplicate login tabs. It is the single writer for both maps;
// other components only see EnsureSession results.
type Coordinator struct {
	client identityClient
	hub    Broadcaster
	now    func() time.Time

	mu            sync.Mutex
	sessions      map[string]time.Time // origin -> expiry
	pendingLogins map[string]int       // origin -> tab id (0 until the extension reports one)
	inflight      map[string]*check
}

type check struct {
	done chan struct{}
	ok   bool
	err  error
}

// New builds a coordinator. hub may be nil (no event push, e.g. the CLI).
func New(client identityClient, hub Broadcaster) *Coordinator {
	return &Coordinator{
		client:        client,
		hub:           hub,
		now:           time.Now,
		sessions:      make(map[string]time.Time),
		pendingLogins: make(map[string]int),
		inflight:      make(map[string]*check),
	}
}

// Options controls one EnsureSession call.
type Options struct {
	// PromptLogin asks the extension to open (or refocus) a login tab when
	// the check fails with an auth error.
	PromptLogin bool
	// ForceRefresh skips the TTL cache.
	ForceRefresh bool
	Strategy     overseerr.AuthStrategy
}

// EnsureSession reports whether an authenticated, request-capable session
// exists for the given server. Cached success is returned without a network
// call. Concurrent calls for the same origin share one identity check.
// Errors are returned as values and never panic past this boundary.
func (c *Coordinator) EnsureSession(ctx context.Context, baseURL string, opts Options) (bool, error) {
	origin, err := textutil.SanitizeBaseURL(baseURL)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	if !opts.ForceRefresh {
		if expiry, ok := c.sessions[origin]; ok && expiry.After(c.now()) {
			c.mu.Unlock()
			return true, nil
		}
	}
	if pending, ok := c.inflight[origin]; ok {
		c.mu.Unlock()
		<-pending.done
		return pending.ok, pending.err
	}
	pending := &check{done: make(chan struct{})}
	c.inflight[origin] = pending
	c.mu.Unlock()

	ok, err := c.verify(ctx, origin, opts)

	c.mu.Lock()
	delete(c.inflight, origin)
	c.mu.Unlock()
	pending.ok, pending.err = ok, err
	close(pending.done)

	return ok, err
}

func (c *Coordinator) verify(ctx context.Context, origin string, opts Options) (bool, error) {
	onAuthFailure := func(base string) {
		c.Invalidate(base)
		if opts.PromptLogin {
			c.requestLogin(base)
		}
	}

	user, err := c.client.CurrentUser(ctx, origin, opts.Strategy, onAuthFailure)
	if err != nil {
		return false, err
	}

	if user == nil || user.ID == nil {
		c.Invalidate(origin)
		if opts.PromptLogin {
			c.requestLogin(origin)
		}
		return false, &overseerr.AuthRequiredError{
			Mode:    overseerr.AuthModeCookie,
			Message: "log into Overseerr in the opened tab, then retry",
		}
	}

	// A guest is logged in but cannot submit requests; treat it as an auth
	// failure with its own message, and do not prompt for a login tab.
	if strings.EqualFold(user.UserType, "guest") {
		c.Invalidate(origin)
		return false, &overseerr.AuthRequiredError{
			Mode:    overseerr.AuthModeCookie,
			Message: "log into Overseerr with an account that can make requests",
		}
	}

	c.mu.Lock()
	c.sessions[origin] = c.now().Add(sessionTTL)
	_, hadPending := c.pendingLogins[origin]
	delete(c.pendingLogins, origin)
	c.mu.Unlock()

	if hadPending {
		log.Printf("[session] auth recovered for %s, pending login cleared", origin)
	}
	c.broadcast(Event{Type: EventSessionChanged, Origin: origin, Authenticated: true})
	return true, nil
}

// Invalidate drops the cached session for an origin. Called on any observed
// 401, on explicit refresh, and when the server configuration changes.
func (c *Coordinator) Invalidate(baseURL string) {
	origin, err := textutil.SanitizeBaseURL(baseURL)
	if err != nil {
		return
	}
	c.mu.Lock()
	delete(c.sessions, origin)
	c.mu.Unlock()
}

// AuthFailureHook returns the side-effect hook wired into catalog calls made
// outside the coordinator (search, status lookups): cache invalidation plus
// an optional login prompt.
func (c *Coordinator) AuthFailureHook(promptLogin bool) func(string) {
	return func(origin string) {
		c.Invalidate(origin)
		if promptLogin {
			c.requestLogin(origin)
		}
	}
}

// requestLogin records a pending login for the origin and asks the extension
// to open a login tab, or to refocus the one already tracked. At most one
// pending entry exists per origin.
func (c *Coordinator) requestLogin(origin string) {
	c.mu.Lock()
	tabID, exists := c.pendingLogins[origin]
	if !exists {
		c.pendingLogins[origin] = 0
	}
	c.mu.Unlock()

	event := Event{
		Type:     EventLoginRequired,
		Origin:   origin,
		LoginURL: origin + "/login",
	}
	if exists {
		event.TabID = tabID
	}
	c.broadcast(event)
}

// ReportLoginTab records the tab id the extension opened for an origin's
// login page.
func (c *Coordinator) ReportLoginTab(baseURL string, tabID int) error {
	origin, err := textutil.SanitizeBaseURL(baseURL)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.pendingLogins[origin] = tabID
	c.mu.Unlock()
	return nil
}

// ClearLoginTab removes the pending entry tracking tabID. The extension
// calls this when it observes the tab closing.
func (c *Coordinator) ClearLoginTab(tabID int) {
	c.mu.Lock()
	for origin, tracked := range c.pendingLogins {
		if tracked == tabID {
			delete(c.pendingLogins, origin)
			break
		}
	}
	c.mu.Unlock()
}

// PendingLogin reports the tracked login tab for an origin, if any.
func (c *Coordinator) PendingLogin(baseURL string) (int, bool) {
	origin, err := textutil.SanitizeBaseURL(baseURL)
	if err != nil {
		return 0, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	tabID, ok := c.pendingLogins[origin]
	return tabID, ok
}

func (c *Coordinator) broadcast(event Event) {
	if c.hub == nil {
		return
	}
	event.At = c.now().UTC().Format(time.RFC3339)
	c.hub.BroadcastJSON(event)
}
