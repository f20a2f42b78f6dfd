package overseerr

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"overbridge/pkg/models"
)

func TestExecuteCookieFallbackToAPIKey(t *testing.T) {
	var calls []http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Header.Clone())
		if r.Header.Get(apiKeyHeader) == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	client := NewClient("secret-key")
	outcome, err := client.Execute(context.Background(), srv.URL, "/api/v1/search?query=x",
		RequestOptions{}, StrategyCookieWithFallback)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	defer outcome.Response.Body.Close()

	if outcome.UsedAuthMode != AuthModeAPIKey {
		t.Errorf("UsedAuthMode = %q, want %q", outcome.UsedAuthMode, AuthModeAPIKey)
	}
	if len(calls) != 2 {
		t.Fatalf("got %d network calls, want 2", len(calls))
	}
	if calls[0].Get(apiKeyHeader) != "" {
		t.Error("first attempt must not carry the API key header")
	}
	if calls[1].Get(apiKeyHeader) != "secret-key" {
		t.Error("second attempt must carry the API key header")
	}
}

func TestExecuteCookie401InvokesHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	hookCalls := 0
	client := NewClient("")
	_, err := client.Execute(context.Background(), srv.URL, "/api/v1/auth/me", RequestOptions{
		OnAuthFailure: func(base string) {
			hookCalls++
			if base != srv.URL {
				t.Errorf("hook base = %q, want %q", base, srv.URL)
			}
		},
	}, StrategyCookie)

	var authErr *AuthRequiredError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want AuthRequiredError", err)
	}
	if authErr.Code() != CodeAuthRequired {
		t.Errorf("code = %q, want %q", authErr.Code(), CodeAuthRequired)
	}
	if authErr.Mode != AuthModeCookie {
		t.Errorf("mode = %q, want cookie", authErr.Mode)
	}
	if hookCalls != 1 {
		t.Errorf("hook called %d times, want 1", hookCalls)
	}
}

func TestExecuteRejectedKeySuppressesHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	for _, strategy := range []AuthStrategy{StrategyAPIKey, StrategyCookieWithFallback} {
		hookCalls := 0
		client := NewClient("bad-key")
		_, err := client.Execute(context.Background(), srv.URL, "/api/v1/auth/me", RequestOptions{
			OnAuthFailure: func(string) { hookCalls++ },
		}, strategy)

		var authErr *AuthRequiredError
		if !errors.As(err, &authErr) {
			t.Fatalf("strategy %s: err = %v, want AuthRequiredError", strategy, err)
		}
		if authErr.Mode != AuthModeAPIKey {
			t.Errorf("strategy %s: mode = %q, want api-key", strategy, authErr.Mode)
		}
		if !strings.Contains(authErr.Message, "API key") {
			t.Errorf("strategy %s: message %q should mention the API key", strategy, authErr.Message)
		}
		if hookCalls != 0 {
			t.Errorf("strategy %s: a rejected key must not invoke the auth-failure hook", strategy)
		}
	}
}

func TestSetAPIKeyConcurrentWithRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(apiKeyHeader)
		if key != "key-a" && key != "key-b" {
			t.Errorf("request carried a torn key: %q", key)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient("key-a")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			client.SetAPIKey("key-b")
			client.SetAPIKey("key-a")
		}()
		go func() {
			defer wg.Done()
			outcome, err := client.Execute(context.Background(), srv.URL, "/api/v1/status",
				RequestOptions{}, StrategyAPIKey)
			if err != nil {
				t.Errorf("Execute: %v", err)
				return
			}
			drain(outcome.Response)
		}()
	}
	wg.Wait()
}

func TestExecuteTransportError(t *testing.T) {
	client := NewClient("")
	_, err := client.Execute(context.Background(), "http://127.0.0.1:1", "/api/v1/status",
		RequestOptions{}, StrategyCookie)

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("err = %v, want TransportError", err)
	}
	if !strings.Contains(transportErr.Error(), "check your URL") {
		t.Errorf("message should guide the user to check the URL: %q", transportErr.Error())
	}
}

func TestExecuteValidatesBaseURL(t *testing.T) {
	client := NewClient("")
	_, err := client.Execute(context.Background(), "   ", "/api/v1/status",
		RequestOptions{}, StrategyCookie)

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestSearchBuildsYearHintAndFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("query"); got != "dune year:2021" {
			t.Errorf("query = %q, want %q", got, "dune year:2021")
		}
		if got := r.URL.Query().Get("page"); got != "1" {
			t.Errorf("page = %q, want 1", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"id":1,"mediaType":"person","name":"Denis Villeneuve"},
			{"id":438631,"mediaType":"movie","title":"Dune","voteAverage":7.8}
		]}`))
	}))
	defer srv.Close()

	client := NewClient("")
	resp, err := client.Search(context.Background(), srv.URL, StrategyCookie, "dune", 2021, 0, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("got %d results, want 1 (people filtered out)", len(resp.Results))
	}
	if resp.Results[0].ID != 438631 {
		t.Errorf("unexpected result: %+v", resp.Results[0])
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	client := NewClient("")
	_, err := client.Search(context.Background(), "https://seerr.example.com", StrategyCookie, "  ", 0, 1, nil)

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestMediaStatusTreats404AsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/movie/42" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient("")
	statuses, err := client.MediaStatus(context.Background(), srv.URL, StrategyCookie, 42, models.MediaTypeMovie, nil)
	if err != nil {
		t.Fatalf("MediaStatus: %v", err)
	}
	if statuses.Availability != nil || statuses.RequestStatus != nil {
		t.Errorf("404 should yield nil statuses, got %+v", statuses)
	}
}

func TestSubmitRequestSeasons(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(buf))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":1}`))
	}))
	defer srv.Close()

	client := NewClient("")
	if _, err := client.SubmitRequest(context.Background(), srv.URL, StrategyCookie, 100, models.MediaTypeTV, false, nil); err != nil {
		t.Fatalf("SubmitRequest tv: %v", err)
	}
	if _, err := client.SubmitRequest(context.Background(), srv.URL, StrategyCookie, 200, models.MediaTypeMovie, true, nil); err != nil {
		t.Fatalf("SubmitRequest movie: %v", err)
	}

	if len(bodies) != 2 {
		t.Fatalf("got %d requests, want 2", len(bodies))
	}
	if !strings.Contains(bodies[0], `"seasons":[0]`) {
		t.Errorf("tv request should ask for all seasons: %s", bodies[0])
	}
	if !strings.Contains(bodies[1], `"seasons":[]`) || !strings.Contains(bodies[1], `"is4k":true`) {
		t.Errorf("movie request body: %s", bodies[1])
	}
}

func TestDecodeOutcomeServerErrorSnippet(t *testing.T) {
	long := strings.Repeat("x", 2000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(long))
	}))
	defer srv.Close()

	client := NewClient("")
	_, err := client.Search(context.Background(), srv.URL, StrategyCookie, "dune", 0, 1, nil)

	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("err = %v, want ServerError", err)
	}
	if serverErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d", serverErr.StatusCode)
	}
	if len(serverErr.Snippet) > snippetMaxBytes {
		t.Errorf("snippet length %d exceeds cap %d", len(serverErr.Snippet), snippetMaxBytes)
	}
}

func TestFetchServerStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/status" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get(apiKeyHeader) != "" {
			t.Error("status endpoint must be called without credentials")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":"1.33.2","commitTag":"abc","updateAvailable":true,"commitsBehind":3}`))
	}))
	defer srv.Close()

	client := NewClient("irrelevant")
	status, err := client.FetchServerStatus(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchServerStatus: %v", err)
	}
	if status.Version != "1.33.2" || !status.UpdateAvailable || status.CommitsBehind != 3 {
		t.Errorf("unexpected status: %+v", status)
	}
}
