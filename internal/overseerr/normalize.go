package overseerr

import (
	"time"

	"overbridge/pkg/models"
	"overbridge/pkg/textutil"
)

const posterBaseURL = "https://image.tmdb.org/t/p/w200"

// PosterURL builds a fully-qualified poster image URL from a TMDB poster
// path; empty in, empty out.
func PosterURL(path string) string {
	if path == "" {
		return ""
	}
	return posterBaseURL + path
}

// SelectBestMatch prefers a result whose media type equals the candidate's
// declared type, falling back to the first result. Nil when there are none.
func SelectBestMatch(results []SearchResult, preferredMediaType string) *SearchResult {
	if len(results) == 0 {
		return nil
	}
	if preferredMediaType == models.MediaTypeMovie || preferredMediaType == models.MediaTypeTV {
		for i := range results {
			if results[i].MediaType == preferredMediaType {
				return &results[i]
			}
		}
	}
	return &results[0]
}

// NormalizeResult maps a raw search result to the entry shape the UI layer
// consumes. TV results carry name/firstAirDate, movies title/releaseDate;
// each falls back to the other when its primary field is empty.
func NormalizeResult(r SearchResult) models.EnrichedEntry {
	mediaType := models.NormalizeMediaType(r.MediaType)

	primary, fallback := r.Title, r.Name
	releaseDate := r.ReleaseDate
	if mediaType == models.MediaTypeTV {
		primary, fallback = r.Name, r.Title
		releaseDate = r.FirstAirDate
	}
	title := primary
	if title == "" {
		title = fallback
	}

	entry := models.EnrichedEntry{
		Title:       title,
		ReleaseYear: yearFromDate(releaseDate),
		Overview:    r.Overview,
		Poster:      PosterURL(r.PosterPath),
		MediaType:   mediaType,
		Source:      "overseerr",
		Rating:      r.VoteAverage,
	}
	if r.ID > 0 {
		id := r.ID
		entry.TmdbID = &id
	}

	statuses := DeriveMediaInfoStatuses(r.MediaInfo)
	entry.AvailabilityStatus = statuses.Availability
	entry.RequestStatus = statuses.RequestStatus
	return entry
}

// DeriveMediaInfoStatuses extracts the availability code and the status of
// the latest request (by createdAt; malformed dates are treated as epoch 0
// and rank last). The latest request strictly wins: when it carries no
// status code the request status stays nil rather than falling back to an
// older request.
func DeriveMediaInfoStatuses(info *MediaInfo) MediaStatuses {
	if info == nil {
		return MediaStatuses{}
	}

	statuses := MediaStatuses{Availability: info.Status}
	if len(info.Requests) == 0 {
		return statuses
	}

	latest := info.Requests[0]
	for _, req := range info.Requests[1:] {
		if requestTime(req) > requestTime(latest) {
			latest = req
		}
	}
	statuses.RequestStatus = latest.Status
	return statuses
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
}

func yearFromDate(date string) string {
	return textutil.ExtractYear(date)
}

func requestTime(req MediaRequestInfo) int64 {
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, req.CreatedAt); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}
