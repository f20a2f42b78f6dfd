package enrich

import (
	"context"
	"errors"
	"testing"

	"overbridge/internal/overseerr"
	"overbridge/pkg/models"
)

type scriptedSearcher struct {
	queries   []string
	years     []int
	responses map[string]*overseerr.SearchResponse
	errs      map[string]error
}

func (s *scriptedSearcher) Search(_ context.Context, _ string, _ overseerr.AuthStrategy, query string, year, _ int, _ func(string)) (*overseerr.SearchResponse, error) {
	s.queries = append(s.queries, query)
	s.years = append(s.years, year)
	if err, ok := s.errs[query]; ok {
		return nil, err
	}
	if resp, ok := s.responses[query]; ok {
		return resp, nil
	}
	return &overseerr.SearchResponse{}, nil
}

func candidate(title, year, mediaType string) models.ReconciledCandidate {
	return models.ReconciledCandidate{
		RawCandidate: models.RawCandidate{
			Title:       title,
			ReleaseYear: year,
			MediaType:   mediaType,
			Source:      "json-ld",
		},
	}
}

func TestEnrichSkipsNetworkWhenSessionNotReady(t *testing.T) {
	searcher := &scriptedSearcher{}
	o := NewOrchestrator(searcher)

	entries := o.Enrich(context.Background(), Params{SessionReady: false}, []models.ReconciledCandidate{
		candidate("Dune", "2021", models.MediaTypeMovie),
	})

	if len(searcher.queries) != 0 {
		t.Errorf("expected no network calls, got %d", len(searcher.queries))
	}
	if len(entries) != 1 || entries[0].TmdbID != nil {
		t.Errorf("entry should stay unresolved: %+v", entries)
	}
	if entries[0].Title != "Dune" || entries[0].Source != "json-ld" {
		t.Errorf("unresolved entry should keep page fields: %+v", entries[0])
	}
}

func TestEnrichResolvesAndMerges(t *testing.T) {
	rating := 7.8
	searcher := &scriptedSearcher{
		responses: map[string]*overseerr.SearchResponse{
			"Dune": {Results: []overseerr.SearchResult{
				{ID: 438631, MediaType: models.MediaTypeMovie, Title: "Dune", Overview: "Desert.", PosterPath: "/d.jpg", VoteAverage: &rating, ReleaseDate: "2021-10-22"},
			}},
		},
	}
	o := NewOrchestrator(searcher)

	entries := o.Enrich(context.Background(), Params{SessionReady: true}, []models.ReconciledCandidate{
		candidate("Dune", "2021", models.MediaTypeMovie),
	})

	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	entry := entries[0]
	if entry.TmdbID == nil || *entry.TmdbID != 438631 {
		t.Errorf("tmdbId = %v, want 438631", entry.TmdbID)
	}
	if entry.Rating == nil || *entry.Rating != 7.8 {
		t.Errorf("rating = %v", entry.Rating)
	}
	if entry.Source != "json-ld" {
		t.Errorf("source should keep naming the parser, got %q", entry.Source)
	}
	if searcher.years[0] != 2021 {
		t.Errorf("year hint = %d, want 2021", searcher.years[0])
	}
}

func TestEnrichOmitsImplausibleYearHint(t *testing.T) {
	searcher := &scriptedSearcher{}
	o := NewOrchestrator(searcher)

	o.Enrich(context.Background(), Params{SessionReady: true}, []models.ReconciledCandidate{
		candidate("Some Title", "1850", models.MediaTypeMovie),
	})

	if len(searcher.years) != 1 || searcher.years[0] != 0 {
		t.Errorf("years = %v, want [0]", searcher.years)
	}
}

func TestEnrichAuthFailureStopsBatchKeepsPartial(t *testing.T) {
	rating := 8.0
	searcher := &scriptedSearcher{
		responses: map[string]*overseerr.SearchResponse{
			"First": {Results: []overseerr.SearchResult{{ID: 1, MediaType: models.MediaTypeMovie, Title: "First", VoteAverage: &rating}}},
		},
		errs: map[string]error{
			"Second": &overseerr.AuthRequiredError{Mode: overseerr.AuthModeCookie, Message: "log in"},
		},
	}
	o := NewOrchestrator(searcher)

	entries := o.Enrich(context.Background(), Params{SessionReady: true}, []models.ReconciledCandidate{
		candidate("First", "", models.MediaTypeMovie),
		candidate("Second", "", models.MediaTypeMovie),
		candidate("Third", "", models.MediaTypeMovie),
	})

	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].TmdbID == nil {
		t.Error("first entry should have resolved before the auth failure")
	}
	if entries[1].TmdbID != nil || entries[2].TmdbID != nil {
		t.Error("entries after the auth failure must stay unresolved")
	}
	if len(searcher.queries) != 2 {
		t.Errorf("got %d searches, want 2 (third candidate never searched)", len(searcher.queries))
	}
}

func TestEnrichOtherFailuresAreIsolated(t *testing.T) {
	rating := 6.5
	searcher := &scriptedSearcher{
		responses: map[string]*overseerr.SearchResponse{
			"Second": {Results: []overseerr.SearchResult{{ID: 2, MediaType: models.MediaTypeMovie, Title: "Second", VoteAverage: &rating}}},
		},
		errs: map[string]error{
			"First": errors.New("boom"),
		},
	}
	o := NewOrchestrator(searcher)

	entries := o.Enrich(context.Background(), Params{SessionReady: true}, []models.ReconciledCandidate{
		candidate("First", "", models.MediaTypeMovie),
		candidate("Second", "", models.MediaTypeMovie),
	})

	if entries[0].TmdbID != nil {
		t.Error("failed lookup should leave the entry unresolved")
	}
	if entries[1].TmdbID == nil || *entries[1].TmdbID != 2 {
		t.Error("a failed lookup must not stop the rest of the batch")
	}
}

func TestEnrichQueryStripsNoiseAndParenYear(t *testing.T) {
	searcher := &scriptedSearcher{}
	o := NewOrchestrator(searcher)

	o.Enrich(context.Background(), Params{SessionReady: true}, []models.ReconciledCandidate{
		candidate("Dune: Part Two (2024)", "", models.MediaTypeMovie),
	})

	if len(searcher.queries) != 1 || searcher.queries[0] != "Dune" {
		t.Errorf("queries = %v", searcher.queries)
	}
	if searcher.years[0] != 2024 {
		t.Errorf("year hint = %d, want 2024 (from the parenthesised year)", searcher.years[0])
	}
}
