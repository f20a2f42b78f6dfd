package enrich

import (
	"context"
	"log"
	"sync"

	"overbridge/internal/overseerr"
	"overbridge/pkg/models"
)

// Logical result lists whose status lookups are tracked independently. A
// refresh of one list must not discard in-flight lookups for the others.
type ListKind string

const (
	ListDetected ListKind = "detected"
	ListWeak     ListKind = "weak"
	ListSearch   ListKind = "search"
)

// ParseListKind maps a wire-level list name to its ListKind.
func ParseListKind(s string) (ListKind, bool) {
	switch kind := ListKind(s); kind {
	case ListDetected, ListWeak, ListSearch:
		return kind, true
	}
	return "", false
}

// statusClient is the slice of the catalog client the backfiller needs.
type statusClient interface {
	MediaStatus(ctx context.Context, base string, strategy overseerr.AuthStrategy, tmdbID int, mediaType string, onAuthFailure func(string)) (overseerr.MediaStatuses, error)
}

// Backfiller fetches availability/request statuses for already-enriched
// entries. Each list carries a monotonically increasing token; a batch
// started under an older token abandons silently instead of overwriting
// state that a newer refresh owns.
type Backfiller struct {
	client statusClient

	mu     sync.Mutex
	tokens map[ListKind]uint64
}

func NewBackfiller(client statusClient) *Backfiller {
	return &Backfiller{
		client: client,
		tokens: make(map[ListKind]uint64),
	}
}

// Begin invalidates any in-flight batch for the list and returns the token
// the new batch must carry.
func (b *Backfiller) Begin(list ListKind) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[list]++
	return b.tokens[list]
}

func (b *Backfiller) stale(list ListKind, token uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens[list] != token
}

// Run looks up statuses for every entry that resolved to a catalog id,
// delivering one patch per lookup through apply. The token is re-checked
// before every patch; a stale batch stops without side effects. An auth
// failure stops the remaining lookups for this batch.
func (b *Backfiller) Run(ctx context.Context, params Params, list ListKind, token uint64, entries []models.EnrichedEntry, apply func(patch models.StatusPatch)) {
	for _, entry := range entries {
		if entry.TmdbID == nil {
			continue
		}
		if b.stale(list, token) {
			return
		}

		tmdbID := *entry.TmdbID
		statuses, err := b.client.MediaStatus(ctx, params.BaseURL, params.Strategy, tmdbID, entry.MediaType, params.OnAuthFailure)

		// The lookup may have raced a refresh; never apply a stale result.
		if b.stale(list, token) {
			return
		}

		if err != nil {
			if overseerr.IsAuthRequired(err) {
				log.Printf("[enrich] auth lost during %s status backfill", list)
				return
			}
			apply(models.StatusPatch{TmdbID: tmdbID, StatusError: "status lookup failed"})
			continue
		}

		apply(models.StatusPatch{
			TmdbID:             tmdbID,
			AvailabilityStatus: statuses.Availability,
			RequestStatus:      statuses.RequestStatus,
		})
	}
}

// ApplyPatch merges a status patch into the matching entries in place. Only
// the status sub-fields change.
func ApplyPatch(entries []models.EnrichedEntry, patch models.StatusPatch) {
	for i := range entries {
		if entries[i].TmdbID == nil || *entries[i].TmdbID != patch.TmdbID {
			continue
		}
		entries[i].AvailabilityStatus = patch.AvailabilityStatus
		entries[i].RequestStatus = patch.RequestStatus
		entries[i].StatusLoading = false
		entries[i].StatusError = patch.StatusError
	}
}
