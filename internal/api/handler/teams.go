package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/albapepper/courtside/internal/api/respond"
	"github.com/albapepper/courtside/internal/cache"
	"github.com/albapepper/courtside/internal/schedule"
)

const maxEventBody = 16 << 10

// ListTeams returns teams with player counts, optionally for one season.
// @Summary List teams
// @Tags teams
// @Produce json
// @Param season query string false "Season label, e.g. 2025"
// @Success 200 {array} map[string]interface{}
// @Router /api/v1/teams [get]
func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	season := strings.TrimSpace(r.URL.Query().Get("season"))
	key := cache.PrefixTeams + season
	if season == "" {
		key = cache.PrefixTeams + "all"
	}

	var arg *string
	if season != "" {
		arg = &season
	}
	h.serveCached(w, r, key, cache.TTLTeams, "api_teams_by_season", arg)
}

// TeamSchedule returns a team's upcoming events.
// @Summary Team schedule
// @Tags schedule
// @Produce json
// @Param id path string true "Team ID"
// @Success 200 {array} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /api/v1/teams/{id}/schedule [get]
func (h *Handler) TeamSchedule(w http.ResponseWriter, r *http.Request) {
	teamID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	h.serveCached(w, r, cache.PrefixSchedule+teamID.String(), cache.TTLSchedule, "api_team_schedule", teamID)
}

// CreateEvent adds a game, practice or tournament to a team's schedule.
// @Summary Create schedule event
// @Tags schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Team ID"
// @Param body body schedule.Input true "Event"
// @Success 201 {object} schedule.Event
// @Failure 400 {object} respond.ErrorResponse
// @Failure 403 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/teams/{id}/schedule [post]
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	if h.schedule == nil {
		notConfigured(w, "Schedule")
		return
	}
	teamID, ok := uuidParam(w, r, "id")
	if !ok || !h.authorizeTeam(w, r, teamID) {
		return
	}
	var in schedule.Input
	if !respond.DecodeJSON(w, r, maxEventBody, &in) {
		return
	}

	ev, err := h.schedule.Create(r.Context(), teamID, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.cache.Invalidate(cache.PrefixSchedule + teamID.String())
	respond.WriteJSONObject(w, http.StatusCreated, ev)
}

// DeleteEvent removes a schedule event.
// @Summary Delete schedule event
// @Tags schedule
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 204
// @Failure 403 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/schedule/{eventID} [delete]
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if h.schedule == nil {
		notConfigured(w, "Schedule")
		return
	}
	id, ok := uuidParam(w, r, "eventID")
	if !ok {
		return
	}
	ev, err := h.schedule.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !h.authorizeTeam(w, r, ev.TeamID) {
		return
	}
	if err := h.schedule.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.cache.Invalidate(cache.PrefixSchedule + ev.TeamID.String())
	w.WriteHeader(http.StatusNoContent)
}

// TeamRoster returns players with parent contacts and payment status.
// @Summary Team roster
// @Description Coach and admin view. Includes parent contact details, so it is never cached.
// @Tags teams
// @Produce json
// @Security BearerAuth
// @Param id path string true "Team ID"
// @Success 200 {array} map[string]interface{}
// @Failure 403 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/teams/{id}/roster [get]
func (h *Handler) TeamRoster(w http.ResponseWriter, r *http.Request) {
	teamID, ok := uuidParam(w, r, "id")
	if !ok || !h.authorizeTeam(w, r, teamID) {
		return
	}
	var raw []byte
	if err := h.db.QueryRow(r.Context(), "api_team_roster", teamID).Scan(&raw); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond.WriteRawJSON(w, http.StatusOK, raw)
}

// serveCached answers from the response cache or runs a prepared statement
// returning a JSON document and caches it.
func (h *Handler) serveCached(w http.ResponseWriter, r *http.Request, key string, ttl time.Duration, stmt string, args ...any) {
	if data, etag, ok := h.cache.Get(key); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	var raw []byte
	if err := h.db.QueryRow(r.Context(), stmt, args...).Scan(&raw); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	etag := h.cache.Set(key, raw, ttl)
	respond.WriteJSON(w, raw, etag, ttl, false)
}
