package bridge

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"overbridge/internal/detect"
	"overbridge/internal/enrich"
	"overbridge/internal/events"
	"overbridge/internal/history"
	"overbridge/internal/overseerr"
	"overbridge/internal/parsers"
	"overbridge/internal/session"
	"overbridge/internal/settings"
	"overbridge/pkg/models"
)

// Handler is the HTTP surface the extension talks to. It owns no state of
// its own; everything lives in the injected components.
type Handler struct {
	Client   *overseerr.Client
	Sessions *session.Coordinator
	Enricher *enrich.Orchestrator
	Backfill *enrich.Backfiller
	Settings *settings.Repo
	History  *history.Repo
	Hub      *events.Hub
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/detect", h.detect)
	rg.POST("/search", h.search)
	rg.POST("/request", h.submitRequest)
	rg.POST("/status", h.fetchStatus)
	rg.POST("/statuses", h.refreshStatuses)
	rg.POST("/ratings", h.fetchRatings)
	rg.POST("/session/check", h.checkSession)
	rg.POST("/session/login-tab", h.reportLoginTab)
	rg.DELETE("/session/login-tab/:tab_id", h.clearLoginTab)
	rg.POST("/server/status", h.serverStatus)
	rg.GET("/settings", h.getSettings)
	rg.PUT("/settings", h.putSettings)
	rg.GET("/history", h.listHistory)
}

// callContext bundles the per-request configuration every catalog call
// needs.
type callContext struct {
	settings models.Settings
	strategy overseerr.AuthStrategy
}

func (h *Handler) loadCallContext(c *gin.Context) (callContext, bool) {
	s, err := h.Settings.Load(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return callContext{}, false
	}
	h.Client.SetAPIKey(s.OverseerrAPIKey)
	return callContext{settings: s, strategy: overseerr.StrategyFromSettings(s)}, true
}

type detectReq struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

type detectResp struct {
	Detected     []models.EnrichedEntry `json:"detected"`
	Weak         []models.EnrichedEntry `json:"weakDetections"`
	SessionReady bool                   `json:"sessionReady"`
	SessionError string                 `json:"sessionError,omitempty"`
}

func (h *Handler) detect(c *gin.Context) {
	var req detectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid json")
		return
	}
	if strings.TrimSpace(req.URL) == "" || strings.TrimSpace(req.HTML) == "" {
		respondBadRequest(c, "url and html required")
		return
	}

	cc, ok := h.loadCallContext(c)
	if !ok {
		return
	}

	page, err := parsers.NewPage(req.URL, req.HTML)
	if err != nil {
		respondBadRequest(c, "page could not be parsed")
		return
	}

	raw := parsers.Run(page, parsers.All())
	result := detect.Reconcile(raw, cc.settings.MaxDetections)

	resp := detectResp{}
	ready := false
	if cc.settings.OverseerrURL != "" {
		ready, err = h.Sessions.EnsureSession(c.Request.Context(), cc.settings.OverseerrURL, session.Options{
			PromptLogin: true,
			Strategy:    cc.strategy,
		})
		if err != nil {
			resp.SessionError = err.Error()
		}
	}
	resp.SessionReady = ready

	params := enrich.Params{
		BaseURL:       cc.settings.OverseerrURL,
		Strategy:      cc.strategy,
		SessionReady:  ready,
		OnAuthFailure: h.Sessions.AuthFailureHook(true),
	}
	resp.Detected = truncateOverviews(h.Enricher.Enrich(c.Request.Context(), params, result.Items), cc.settings.DescriptionLength)

	weakParams := params
	weakParams.SessionReady = ready && cc.settings.ShowWeakDetections
	resp.Weak = truncateOverviews(h.Enricher.Enrich(c.Request.Context(), weakParams, result.Weak), cc.settings.DescriptionLength)

	respondOK(c, resp)
}

type searchReq struct {
	Query string `json:"query"`
	Page  int    `json:"page"`
}

func (h *Handler) search(c *gin.Context) {
	var req searchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid json")
		return
	}

	cc, ok := h.loadCallContext(c)
	if !ok {
		return
	}

	resp, err := h.Client.Search(c.Request.Context(), cc.settings.OverseerrURL, cc.strategy, req.Query, 0, req.Page, h.Sessions.AuthFailureHook(true))
	if err != nil {
		respondErr(c, err)
		return
	}

	entries := make([]models.EnrichedEntry, 0, len(resp.Results))
	for _, r := range resp.Results {
		entries = append(entries, overseerr.NormalizeResult(r))
	}
	respondOK(c, gin.H{"results": truncateOverviews(entries, cc.settings.DescriptionLength)})
}

type submitReq struct {
	TmdbID      int    `json:"tmdbId"`
	MediaType   string `json:"mediaType"`
	Is4K        *bool  `json:"is4k"`
	Title       string `json:"title"`
	ReleaseYear string `json:"releaseYear"`
	Poster      string `json:"poster"`
}

func (h *Handler) submitRequest(c *gin.Context) {
	var req submitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid json")
		return
	}

	cc, ok := h.loadCallContext(c)
	if !ok {
		return
	}

	is4k := cc.settings.Prefer4K
	if req.Is4K != nil {
		is4k = *req.Is4K
	}

	created, err := h.Client.SubmitRequest(c.Request.Context(), cc.settings.OverseerrURL, cc.strategy, req.TmdbID, req.MediaType, is4k, h.Sessions.AuthFailureHook(true))
	if err != nil {
		respondErr(c, err)
		return
	}

	if _, err := h.History.Record(c.Request.Context(), history.Entry{
		TmdbID:      req.TmdbID,
		MediaType:   models.NormalizeMediaType(req.MediaType),
		Title:       req.Title,
		ReleaseYear: req.ReleaseYear,
		Poster:      req.Poster,
		Is4K:        is4k,
		ServerURL:   cc.settings.OverseerrURL,
	}); err != nil {
		// The request already went through; a history miss is not worth
		// failing the call over.
		respondOK(c, gin.H{"created": created})
		return
	}

	if h.Hub != nil {
		go h.Hub.BroadcastJSON(gin.H{
			"type":   "request_submitted",
			"tmdbId": req.TmdbID,
			"title":  req.Title,
			"at":     time.Now().UTC().Format(time.RFC3339),
		})
	}

	respondOK(c, gin.H{"created": created})
}

type mediaRef struct {
	TmdbID    int    `json:"tmdbId"`
	MediaType string `json:"mediaType"`
}

func (h *Handler) fetchStatus(c *gin.Context) {
	var req mediaRef
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid json")
		return
	}

	cc, ok := h.loadCallContext(c)
	if !ok {
		return
	}

	statuses, err := h.Client.MediaStatus(c.Request.Context(), cc.settings.OverseerrURL, cc.strategy, req.TmdbID, req.MediaType, h.Sessions.AuthFailureHook(false))
	if err != nil {
		respondErr(c, err)
		return
	}

	payload := gin.H{
		"availability":  statuses.Availability,
		"requestStatus": statuses.RequestStatus,
	}
	if statuses.Availability != nil {
		payload["availabilityLabel"] = models.AvailabilityLabel(*statuses.Availability)
	}
	if statuses.RequestStatus != nil {
		payload["requestStatusLabel"] = models.RequestStatusLabel(*statuses.RequestStatus)
	}

	// "Already requested here": surface the local history record so the
	// popup can say so even before the server reflects the request.
	last, err := h.History.LastForTitle(c.Request.Context(), req.TmdbID)
	if err == nil && last != nil {
		payload["requestedHere"] = true
		payload["requestedAt"] = last.RequestedAt
	} else {
		payload["requestedHere"] = false
	}

	respondOK(c, payload)
}

type statusBatchReq struct {
	List  string     `json:"list"`
	Items []mediaRef `json:"items"`
}

// refreshStatuses re-fetches availability/request statuses for a whole
// result list. Starting a batch invalidates any batch still running for the
// same list, so a popup refresh never gets overwritten by stale lookups.
func (h *Handler) refreshStatuses(c *gin.Context) {
	var req statusBatchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid json")
		return
	}

	list, ok := enrich.ParseListKind(req.List)
	if !ok {
		respondBadRequest(c, "list must be one of detected, weak, search")
		return
	}

	cc, ok := h.loadCallContext(c)
	if !ok {
		return
	}

	entries := make([]models.EnrichedEntry, 0, len(req.Items))
	for _, item := range req.Items {
		id := item.TmdbID
		entries = append(entries, models.EnrichedEntry{
			TmdbID:        &id,
			MediaType:     models.NormalizeMediaType(item.MediaType),
			StatusLoading: true,
		})
	}

	token := h.Backfill.Begin(list)
	params := enrich.Params{
		BaseURL:       cc.settings.OverseerrURL,
		Strategy:      cc.strategy,
		OnAuthFailure: h.Sessions.AuthFailureHook(false),
	}

	patches := make([]models.StatusPatch, 0, len(entries))
	h.Backfill.Run(c.Request.Context(), params, list, token, entries, func(patch models.StatusPatch) {
		enrich.ApplyPatch(entries, patch)
		patches = append(patches, patch)
	})

	respondOK(c, gin.H{
		"list":    string(list),
		"patches": patches,
		"items":   entries,
	})
}

func (h *Handler) fetchRatings(c *gin.Context) {
	var req mediaRef
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid json")
		return
	}

	cc, ok := h.loadCallContext(c)
	if !ok {
		return
	}

	ratings, err := h.Client.CombinedRatings(c.Request.Context(), cc.settings.OverseerrURL, cc.strategy, req.TmdbID, req.MediaType, h.Sessions.AuthFailureHook(false))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, ratings)
}

type sessionCheckReq struct {
	ForceRefresh bool `json:"forceRefresh"`
	PromptLogin  bool `json:"promptLogin"`
}

func (h *Handler) checkSession(c *gin.Context) {
	var req sessionCheckReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid json")
		return
	}

	cc, ok := h.loadCallContext(c)
	if !ok {
		return
	}
	if cc.settings.OverseerrURL == "" {
		respondBadRequest(c, "configure your Overseerr URL first")
		return
	}

	authenticated, err := h.Sessions.EnsureSession(c.Request.Context(), cc.settings.OverseerrURL, session.Options{
		PromptLogin:  req.PromptLogin,
		ForceRefresh: req.ForceRefresh,
		Strategy:     cc.strategy,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"authenticated": authenticated})
}

type loginTabReq struct {
	URL   string `json:"url"`
	TabID int    `json:"tabId"`
}

func (h *Handler) reportLoginTab(c *gin.Context) {
	var req loginTabReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid json")
		return
	}

	if err := h.Sessions.ReportLoginTab(req.URL, req.TabID); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	respondOK(c, gin.H{"tracked": true})
}

func (h *Handler) clearLoginTab(c *gin.Context) {
	tabID, err := strconv.Atoi(c.Param("tab_id"))
	if err != nil {
		respondBadRequest(c, "tab_id must be a number")
		return
	}
	h.Sessions.ClearLoginTab(tabID)
	respondOK(c, gin.H{"cleared": true})
}

type serverStatusReq struct {
	URL string `json:"url"`
}

func (h *Handler) serverStatus(c *gin.Context) {
	var req serverStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid json")
		return
	}

	url := strings.TrimSpace(req.URL)
	if url == "" {
		cc, ok := h.loadCallContext(c)
		if !ok {
			return
		}
		url = cc.settings.OverseerrURL
	}

	status, err := h.Client.FetchServerStatus(c.Request.Context(), url)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, status)
}

func (h *Handler) getSettings(c *gin.Context) {
	s, err := h.Settings.Load(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, s)
}

func (h *Handler) putSettings(c *gin.Context) {
	var s models.Settings
	if err := c.ShouldBindJSON(&s); err != nil {
		respondBadRequest(c, "invalid json")
		return
	}

	saved, err := h.Settings.Save(c.Request.Context(), s)
	if err != nil {
		respondErr(c, err)
		return
	}
	h.Client.SetAPIKey(saved.OverseerrAPIKey)

	// A changed server URL or auth method invalidates whatever session was
	// cached for the old configuration.
	if saved.OverseerrURL != "" {
		h.Sessions.Invalidate(saved.OverseerrURL)
	}
	respondOK(c, saved)
}

func (h *Handler) listHistory(c *gin.Context) {
	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	entries, total, err := h.History.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  entries,
	})
}

// truncateOverviews clips each overview to the configured word budget.
func truncateOverviews(entries []models.EnrichedEntry, maxWords int) []models.EnrichedEntry {
	for i := range entries {
		entries[i].Overview = truncateWords(entries[i].Overview, maxWords)
	}
	return entries
}

func truncateWords(s string, max int) string {
	if max <= 0 {
		return s
	}
	words := strings.Fields(s)
	if len(words) <= max {
		return s
	}
	return strings.Join(words[:max], " ") + "…"
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
