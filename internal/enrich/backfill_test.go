package enrich

import (
	"context"
	"sync"
	"testing"

	"overbridge/internal/overseerr"
	"overbridge/pkg/models"
)

type scriptedStatusClient struct {
	mu       sync.Mutex
	lookups  []int
	statuses map[int]overseerr.MediaStatuses
	errs     map[int]error
	// optional hook run before each lookup returns
	beforeReturn func(tmdbID int)
}

func (c *scriptedStatusClient) MediaStatus(_ context.Context, _ string, _ overseerr.AuthStrategy, tmdbID int, _ string, _ func(string)) (overseerr.MediaStatuses, error) {
	c.mu.Lock()
	c.lookups = append(c.lookups, tmdbID)
	c.mu.Unlock()

	if c.beforeReturn != nil {
		c.beforeReturn(tmdbID)
	}
	if err, ok := c.errs[tmdbID]; ok {
		return overseerr.MediaStatuses{}, err
	}
	return c.statuses[tmdbID], nil
}

func resolvedEntry(tmdbID int) models.EnrichedEntry {
	id := tmdbID
	return models.EnrichedEntry{Title: "x", MediaType: models.MediaTypeMovie, TmdbID: &id}
}

func TestParseListKind(t *testing.T) {
	for _, name := range []string{"detected", "weak", "search"} {
		kind, ok := ParseListKind(name)
		if !ok || string(kind) != name {
			t.Errorf("ParseListKind(%q) = (%q, %v)", name, kind, ok)
		}
	}
	if _, ok := ParseListKind("bogus"); ok {
		t.Error("unknown list names must be rejected")
	}
}

func TestBackfillAppliesStatuses(t *testing.T) {
	availability := 5
	request := 2
	client := &scriptedStatusClient{
		statuses: map[int]overseerr.MediaStatuses{
			10: {Availability: &availability, RequestStatus: &request},
		},
	}
	b := NewBackfiller(client)

	entries := []models.EnrichedEntry{resolvedEntry(10), {Title: "unresolved"}}
	token := b.Begin(ListDetected)

	var patches []models.StatusPatch
	b.Run(context.Background(), Params{}, ListDetected, token, entries, func(patch models.StatusPatch) {
		patches = append(patches, patch)
	})

	if len(client.lookups) != 1 {
		t.Fatalf("got %d lookups, want 1 (unresolved entries skipped)", len(client.lookups))
	}
	if len(patches) != 1 || patches[0].TmdbID != 10 {
		t.Fatalf("patches = %+v", patches)
	}

	ApplyPatch(entries, patches[0])
	if entries[0].AvailabilityStatus == nil || *entries[0].AvailabilityStatus != 5 {
		t.Errorf("availability = %v, want 5", entries[0].AvailabilityStatus)
	}
	if entries[0].RequestStatus == nil || *entries[0].RequestStatus != 2 {
		t.Errorf("requestStatus = %v, want 2", entries[0].RequestStatus)
	}
	if entries[0].StatusLoading {
		t.Error("patch should clear statusLoading")
	}
}

func TestBackfillStaleTokenAbandonsSilently(t *testing.T) {
	client := &scriptedStatusClient{}
	b := NewBackfiller(client)

	token := b.Begin(ListDetected)
	// A refresh begins a new batch before the first one runs.
	b.Begin(ListDetected)

	applied := 0
	b.Run(context.Background(), Params{}, ListDetected, token, []models.EnrichedEntry{resolvedEntry(1)}, func(models.StatusPatch) {
		applied++
	})

	if len(client.lookups) != 0 {
		t.Errorf("stale batch made %d lookups, want 0", len(client.lookups))
	}
	if applied != 0 {
		t.Errorf("stale batch applied %d patches, want 0", applied)
	}
}

func TestBackfillRaceWithRefreshDropsInFlightResult(t *testing.T) {
	client := &scriptedStatusClient{
		statuses: map[int]overseerr.MediaStatuses{1: {}},
	}
	b := NewBackfiller(client)
	// Invalidate the batch while its first lookup is in flight.
	client.beforeReturn = func(int) { b.Begin(ListWeak) }

	token := b.Begin(ListWeak)
	applied := 0
	b.Run(context.Background(), Params{}, ListWeak, token, []models.EnrichedEntry{resolvedEntry(1), resolvedEntry(2)}, func(models.StatusPatch) {
		applied++
	})

	if applied != 0 {
		t.Errorf("applied %d patches after refresh, want 0", applied)
	}
	if len(client.lookups) != 1 {
		t.Errorf("got %d lookups, want 1 (batch stops once stale)", len(client.lookups))
	}
}

func TestBackfillTokensArePerList(t *testing.T) {
	availability := 1
	client := &scriptedStatusClient{
		statuses: map[int]overseerr.MediaStatuses{1: {Availability: &availability}},
	}
	b := NewBackfiller(client)

	token := b.Begin(ListDetected)
	// Refreshing another list must not invalidate this batch.
	b.Begin(ListSearch)

	applied := 0
	b.Run(context.Background(), Params{}, ListDetected, token, []models.EnrichedEntry{resolvedEntry(1)}, func(models.StatusPatch) {
		applied++
	})

	if applied != 1 {
		t.Errorf("applied %d patches, want 1", applied)
	}
}

func TestBackfillAuthFailureStopsBatch(t *testing.T) {
	client := &scriptedStatusClient{
		errs: map[int]error{
			1: &overseerr.AuthRequiredError{Mode: overseerr.AuthModeCookie, Message: "log in"},
		},
	}
	b := NewBackfiller(client)

	token := b.Begin(ListDetected)
	applied := 0
	b.Run(context.Background(), Params{}, ListDetected, token, []models.EnrichedEntry{resolvedEntry(1), resolvedEntry(2)}, func(models.StatusPatch) {
		applied++
	})

	if len(client.lookups) != 1 {
		t.Errorf("got %d lookups, want 1 (auth failure stops the batch)", len(client.lookups))
	}
	if applied != 0 {
		t.Errorf("applied %d patches, want 0", applied)
	}
}

func TestBackfillOtherErrorPatchesAndContinues(t *testing.T) {
	availability := 4
	client := &scriptedStatusClient{
		errs:     map[int]error{1: context.DeadlineExceeded},
		statuses: map[int]overseerr.MediaStatuses{2: {Availability: &availability}},
	}
	b := NewBackfiller(client)

	token := b.Begin(ListSearch)
	var patches []models.StatusPatch
	b.Run(context.Background(), Params{}, ListSearch, token, []models.EnrichedEntry{resolvedEntry(1), resolvedEntry(2)}, func(patch models.StatusPatch) {
		patches = append(patches, patch)
	})

	if len(patches) != 2 {
		t.Fatalf("got %d patches, want 2", len(patches))
	}
	if patches[0].StatusError == "" {
		t.Error("failed lookup should patch a status error")
	}
	if patches[1].AvailabilityStatus == nil || *patches[1].AvailabilityStatus != 4 {
		t.Errorf("second patch = %+v", patches[1])
	}
}
