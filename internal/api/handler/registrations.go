package handler

import (
	"net/http"

	"github.com/albapepper/courtside/internal/api/respond"
	"github.com/albapepper/courtside/internal/cache"
	"github.com/albapepper/courtside/internal/metrics"
	"github.com/albapepper/courtside/internal/registration"
)

const maxRegistrationBody = 1 << 20

// Register accepts a public registration form.
// @Summary Register players
// @Description Upserts the parent and players, opens a payment per player and emails the parent a checkout link.
// @Tags registrations
// @Accept json
// @Produce json
// @Param body body registration.Request true "Registration form"
// @Success 201 {object} registration.Result
// @Failure 400 {object} respond.ErrorResponse
// @Router /api/v1/registrations [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if h.registrations == nil {
		notConfigured(w, "Registration")
		return
	}
	var req registration.Request
	if !respond.DecodeJSON(w, r, maxRegistrationBody, &req) {
		return
	}

	res, err := h.registrations.Register(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	metrics.Registrations.Inc()
	h.cache.Invalidate(cache.PrefixTeams)

	respond.WriteJSONObject(w, http.StatusCreated, res)
}
