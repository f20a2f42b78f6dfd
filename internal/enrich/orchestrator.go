package enrich

import (
	"context"
	"log"
	"strconv"

	"overbridge/internal/overseerr"
	"overbridge/pkg/models"
	"overbridge/pkg/textutil"
)

// searcher is the slice of the catalog client the orchestrator needs.
type searcher interface {
	Search(ctx context.Context, base string, strategy overseerr.AuthStrategy, query string, year, page int, onAuthFailure func(string)) (*overseerr.SearchResponse, error)
}

// Orchestrator resolves reconciled candidates against the catalog, one at a
// time. Sequential lookups are deliberate: the target is usually a personal
// server, and bursting a page worth of searches at it is rude.
type Orchestrator struct {
	client searcher
}

func NewOrchestrator(client searcher) *Orchestrator {
	return &Orchestrator{client: client}
}

// Params carries the per-batch call context.
type Params struct {
	BaseURL       string
	Strategy      overseerr.AuthStrategy
	SessionReady  bool
	OnAuthFailure func(string)
}

// Enrich maps each candidate to an EnrichedEntry. With no usable session it
// returns every candidate unresolved without touching the network. An auth
// failure mid-batch stops further lookups but keeps the partial results; any
// other per-candidate failure is logged and skipped.
func (o *Orchestrator) Enrich(ctx context.Context, params Params, candidates []models.ReconciledCandidate) []models.EnrichedEntry {
	entries := make([]models.EnrichedEntry, 0, len(candidates))

	authStopped := !params.SessionReady
	for _, candidate := range candidates {
		base := unresolvedEntry(candidate)
		if authStopped {
			entries = append(entries, base)
			continue
		}

		query, year := searchTerms(candidate)
		if query == "" {
			entries = append(entries, base)
			continue
		}

		resp, err := o.client.Search(ctx, params.BaseURL, params.Strategy, query, year, 1, params.OnAuthFailure)
		if err != nil {
			if overseerr.IsAuthRequired(err) {
				log.Printf("[enrich] auth lost mid-batch, leaving remaining candidates unresolved")
				authStopped = true
			} else {
				log.Printf("[enrich] lookup failed for %q: %v", query, err)
			}
			entries = append(entries, base)
			continue
		}

		best := overseerr.SelectBestMatch(resp.Results, candidate.MediaType)
		if best == nil {
			entries = append(entries, base)
			continue
		}
		entries = append(entries, mergeEntry(base, overseerr.NormalizeResult(*best)))
	}

	return entries
}

// searchTerms derives the catalog query and an optional year hint from a
// candidate. The hint is only used when the year is a plausible 4-digit one.
func searchTerms(candidate models.ReconciledCandidate) (string, int) {
	query, parsedYear := textutil.ExtractTitleAndYear(candidate.Title)

	year := 0
	if textutil.ExtractYear(candidate.ReleaseYear) == candidate.ReleaseYear && candidate.ReleaseYear != "" {
		if parsed, err := strconv.Atoi(candidate.ReleaseYear); err == nil {
			year = parsed
		}
	}
	if year == 0 {
		year = parsedYear
	}
	return query, year
}

// unresolvedEntry carries the candidate's own page-derived fields; TmdbID
// stays nil until the catalog confirms a match.
func unresolvedEntry(candidate models.ReconciledCandidate) models.EnrichedEntry {
	return models.EnrichedEntry{
		Title:       candidate.Title,
		ReleaseYear: candidate.ReleaseYear,
		Poster:      candidate.Poster,
		MediaType:   models.NormalizeMediaType(candidate.MediaType),
		Source:      candidate.Source,
	}
}

// mergeEntry overlays catalog data on the page-derived entry. Catalog fields
// win where present; page fields fill the gaps, and the source tag keeps
// naming the parser that found the title.
func mergeEntry(base models.EnrichedEntry, resolved models.EnrichedEntry) models.EnrichedEntry {
	merged := resolved
	if merged.Title == "" {
		merged.Title = base.Title
	}
	if merged.ReleaseYear == "" {
		merged.ReleaseYear = base.ReleaseYear
	}
	if merged.Poster == "" {
		merged.Poster = base.Poster
	}
	if merged.MediaType == "" {
		merged.MediaType = base.MediaType
	}
	merged.Source = base.Source
	return merged
}
