package overseerr

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"overbridge/pkg/models"
	"overbridge/pkg/textutil"
)

// MediaRequestInfo is one request entry attached to a media item.
type MediaRequestInfo struct {
	Status    *int   `json:"status"`
	CreatedAt string `json:"createdAt"`
}

// MediaInfo is the server's per-title availability block.
type MediaInfo struct {
	Status   *int               `json:"status"`
	Requests []MediaRequestInfo `json:"requests"`
}

// SearchResult is one entry from /api/v1/search. Movies carry title and
// releaseDate; TV carries name and firstAirDate.
type SearchResult struct {
	ID           int        `json:"id"`
	MediaType    string     `json:"mediaType"`
	Title        string     `json:"title"`
	Name         string     `json:"name"`
	Overview     string     `json:"overview"`
	PosterPath   string     `json:"posterPath"`
	VoteAverage  *float64   `json:"voteAverage"`
	ReleaseDate  string     `json:"releaseDate"`
	FirstAirDate string     `json:"firstAirDate"`
	MediaInfo    *MediaInfo `json:"mediaInfo"`
}

// SearchResponse is the decoded search payload, filtered to trackable media
// (movie/tv); the server also returns people and collections.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// MediaStatuses is the derived availability/request pair for one title.
// Both fields are nil when the server does not know the title yet.
type MediaStatuses struct {
	Availability  *int `json:"availability"`
	RequestStatus *int `json:"requestStatus"`
}

// RatingsEntry is one provider block from the combined-ratings endpoint.
type RatingsEntry struct {
	Title          string   `json:"title,omitempty"`
	Year           int      `json:"year,omitempty"`
	URL            string   `json:"url,omitempty"`
	CriticsScore   *float64 `json:"criticsScore,omitempty"`
	AudienceScore  *float64 `json:"audienceScore,omitempty"`
	CriticsRating  string   `json:"criticsRating,omitempty"`
	AudienceRating string   `json:"audienceRating,omitempty"`
}

// CombinedRatings aggregates third-party ratings known to the server.
type CombinedRatings struct {
	RT   *RatingsEntry `json:"rt,omitempty"`
	IMDB *RatingsEntry `json:"imdb,omitempty"`
}

// UserInfo is the identity-check payload from /api/v1/auth/me.
type UserInfo struct {
	ID       *int   `json:"id"`
	UserType string `json:"userType"`
}

// ServerStatus is the public, credential-free status payload.
type ServerStatus struct {
	Version         string `json:"version"`
	CommitTag       string `json:"commitTag"`
	UpdateAvailable bool   `json:"updateAvailable"`
	CommitsBehind   int    `json:"commitsBehind"`
	RestartRequired bool   `json:"restartRequired"`
}

// Search queries the catalog. A year hint is folded into the query text the
// way the Overseerr search box expects ("dune year:2021"); pass year 0 to
// omit it.
func (c *Client) Search(ctx context.Context, base string, strategy AuthStrategy, query string, year, page int, onAuthFailure func(string)) (*SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &ValidationError{Message: "search query required"}
	}
	if year > 0 {
		query = fmt.Sprintf("%s year:%d", query, year)
	}
	if page < 1 {
		page = 1
	}

	endpoint := "/api/v1/search?query=" + url.QueryEscape(query) + "&page=" + strconv.Itoa(page)
	outcome, err := c.Execute(ctx, base, endpoint, RequestOptions{OnAuthFailure: onAuthFailure}, strategy)
	if err != nil {
		return nil, err
	}

	var payload SearchResponse
	if err := decodeOutcome(outcome, &payload); err != nil {
		return nil, err
	}

	filtered := payload.Results[:0]
	for _, r := range payload.Results {
		if r.MediaType == models.MediaTypeMovie || r.MediaType == models.MediaTypeTV {
			filtered = append(filtered, r)
		}
	}
	payload.Results = filtered
	return &payload, nil
}

type requestBody struct {
	MediaType string `json:"mediaType"`
	MediaID   int    `json:"mediaId"`
	Is4K      bool   `json:"is4k"`
	Seasons   []int  `json:"seasons"`
}

// SubmitRequest files a media request. TV requests ask for all seasons; the
// server expects at least one season entry, and 0 means "all".
func (c *Client) SubmitRequest(ctx context.Context, base string, strategy AuthStrategy, tmdbID int, mediaType string, is4k bool, onAuthFailure func(string)) (json.RawMessage, error) {
	if tmdbID <= 0 {
		return nil, &ValidationError{Message: "missing TMDB id"}
	}

	body := requestBody{
		MediaType: models.NormalizeMediaType(mediaType),
		MediaID:   tmdbID,
		Is4K:      is4k,
		Seasons:   []int{},
	}
	if body.MediaType == models.MediaTypeTV {
		body.Seasons = []int{0}
	}

	outcome, err := c.Execute(ctx, base, "/api/v1/request", RequestOptions{
		Method:        http.MethodPost,
		Body:          body,
		OnAuthFailure: onAuthFailure,
	}, strategy)
	if err != nil {
		return nil, err
	}

	var created json.RawMessage
	if err := decodeOutcome(outcome, &created); err != nil {
		return nil, err
	}
	return created, nil
}

// MediaStatus fetches availability/request statuses for one TMDB id. A 404
// means the server does not know the title yet; that is a valid outcome, not
// an error.
func (c *Client) MediaStatus(ctx context.Context, base string, strategy AuthStrategy, tmdbID int, mediaType string, onAuthFailure func(string)) (MediaStatuses, error) {
	if tmdbID <= 0 {
		return MediaStatuses{}, &ValidationError{Message: "missing TMDB id"}
	}

	endpoint := mediaEndpoint(tmdbID, mediaType)
	outcome, err := c.Execute(ctx, base, endpoint, RequestOptions{OnAuthFailure: onAuthFailure}, strategy)
	if err != nil {
		return MediaStatuses{}, err
	}

	if outcome.Response.StatusCode == http.StatusNotFound {
		drain(outcome.Response)
		return MediaStatuses{}, nil
	}

	var payload struct {
		MediaInfo *MediaInfo `json:"mediaInfo"`
	}
	if err := decodeOutcome(outcome, &payload); err != nil {
		return MediaStatuses{}, err
	}
	return DeriveMediaInfoStatuses(payload.MediaInfo), nil
}

// CombinedRatings fetches third-party ratings for one TMDB id; nil on 404.
func (c *Client) CombinedRatings(ctx context.Context, base string, strategy AuthStrategy, tmdbID int, mediaType string, onAuthFailure func(string)) (*CombinedRatings, error) {
	if tmdbID <= 0 {
		return nil, &ValidationError{Message: "missing TMDB id"}
	}

	endpoint := mediaEndpoint(tmdbID, mediaType) + "/ratingscombined"
	outcome, err := c.Execute(ctx, base, endpoint, RequestOptions{OnAuthFailure: onAuthFailure}, strategy)
	if err != nil {
		return nil, err
	}

	if outcome.Response.StatusCode == http.StatusNotFound {
		drain(outcome.Response)
		return nil, nil
	}

	var payload CombinedRatings
	if err := decodeOutcome(outcome, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// CurrentUser runs the identity check.
func (c *Client) CurrentUser(ctx context.Context, base string, strategy AuthStrategy, onAuthFailure func(string)) (*UserInfo, error) {
	outcome, err := c.Execute(ctx, base, "/api/v1/auth/me", RequestOptions{OnAuthFailure: onAuthFailure}, strategy)
	if err != nil {
		return nil, err
	}

	var user UserInfo
	if err := decodeOutcome(outcome, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FetchServerStatus hits the public status endpoint; it requires no
// credentials and is used to validate a URL before auth is configured.
func (c *Client) FetchServerStatus(ctx context.Context, base string) (*ServerStatus, error) {
	sanitizedBase, err := textutil.SanitizeBaseURL(base)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sanitizedBase+"/api/v1/status", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.bareClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: sanitizedBase, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ServerError{
			Endpoint:   sanitizedBase + "/api/v1/status",
			StatusCode: resp.StatusCode,
			Snippet:    readSnippet(resp),
		}
	}

	defer resp.Body.Close()
	var status ServerStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode status payload: %w", err)
	}
	return &status, nil
}

func mediaEndpoint(tmdbID int, mediaType string) string {
	kind := "movie"
	if models.NormalizeMediaType(mediaType) == models.MediaTypeTV {
		kind = "tv"
	}
	return "/api/v1/" + kind + "/" + strconv.Itoa(tmdbID)
}

// decodeOutcome turns a non-2xx outcome into a ServerError (with a logged
// body snippet) and decodes a 2xx body into v.
func decodeOutcome(outcome *Outcome, v any) error {
	resp := outcome.Response
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := readSnippet(resp)
		log.Printf("[overseerr] request failed endpoint=%s status=%d body=%q",
			outcome.URL, resp.StatusCode, snippet)
		return &ServerError{Endpoint: outcome.URL, StatusCode: resp.StatusCode, Snippet: snippet}
	}

	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response from %s: %w", outcome.URL, err)
	}
	return nil
}
