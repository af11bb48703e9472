package handler

import (
	"net/http"

	"github.com/albapepper/courtside/internal/api/respond"
)

// WelcomePDF downloads a player's welcome kit.
// @Summary Download welcome kit
// @Description Player details, coach contact and the team's upcoming schedule as a PDF.
// @Tags players
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Player ID"
// @Success 200 {file} binary
// @Failure 403 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/players/{id}/welcome.pdf [get]
func (h *Handler) WelcomePDF(w http.ResponseWriter, r *http.Request) {
	if h.documents == nil {
		notConfigured(w, "Documents")
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	allowed, err := h.canSeePlayer(r.Context(), caller(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !allowed {
		forbidden(w)
		return
	}

	pdf, err := h.documents.WelcomePDF(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond.WriteFile(w, "application/pdf", "welcome-"+id.String()[:8]+".pdf", pdf)
}
