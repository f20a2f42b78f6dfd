package models

// Media types recognized across the detection pipeline. Anything else coming
// from a page is coerced to MediaTypeMovie.
const (
	MediaTypeMovie = "movie"
	MediaTypeTV    = "tv"
)

// NormalizeMediaType coerces loose page-derived type strings to a known value.
func NormalizeMediaType(t string) string {
	if t == MediaTypeTV {
		return MediaTypeTV
	}
	return MediaTypeMovie
}

// RawCandidate is a provisional media title extracted from a page by one
// signal parser, before reconciliation and server-side confirmation.
//
// All parsers map their findings into this structure first; the reconciler
// consumes the union. Immutable once emitted.
type RawCandidate struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle,omitempty"`
	Poster      string `json:"poster,omitempty"`
	ReleaseYear string `json:"releaseYear,omitempty"` // loosely formatted; canonicalized by the reconciler
	MediaType   string `json:"mediaType,omitempty"`   // "movie" or "tv"; defaults to "movie"
	Source      string `json:"source,omitempty"`      // id of the parser that emitted it
}

// ReconciledCandidate is the reconciler's output: a deduplicated candidate
// with a cleaned title, a canonical 4-digit release year (or empty), and a
// weak/strong classification.
type ReconciledCandidate struct {
	RawCandidate
	Weak bool `json:"weak"`
}

// EnrichedEntry is a reconciled candidate merged with catalog data once
// matched. TmdbID stays nil until the catalog resolves the title. The
// Status* fields are the only ones mutated after creation, and only by
// status-patch operations.
type EnrichedEntry struct {
	Title       string `json:"title"`
	ReleaseYear string `json:"releaseYear,omitempty"`
	Overview    string `json:"overview,omitempty"`
	Poster      string `json:"poster,omitempty"`
	MediaType   string `json:"mediaType"`
	Source      string `json:"source,omitempty"`

	TmdbID *int     `json:"tmdbId"`
	Rating *float64 `json:"rating"`

	AvailabilityStatus *int   `json:"availabilityStatus"`
	RequestStatus      *int   `json:"requestStatus"`
	StatusLoading      bool   `json:"statusLoading"`
	StatusError        string `json:"statusError,omitempty"`
}

// StatusPatch replaces the loading/error sub-fields of an EnrichedEntry once
// a backfill lookup for its catalog id completes.
type StatusPatch struct {
	TmdbID             int    `json:"tmdbId"`
	AvailabilityStatus *int   `json:"availabilityStatus"`
	RequestStatus      *int   `json:"requestStatus"`
	StatusError        string `json:"statusError,omitempty"`
}
