package handler

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/albapepper/courtside/internal/api/respond"
	"github.com/albapepper/courtside/internal/auth"
	"github.com/albapepper/courtside/internal/roster"
)

// uuidParam parses a UUID path parameter, writing a 400 when malformed.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, respond.CodeInvalidRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// caller returns the authenticated claims. Routes using it sit behind
// auth.Require, so a missing caller is a wiring bug.
func caller(r *http.Request) *auth.Claims {
	c, _ := auth.FromContext(r.Context())
	if c == nil {
		return &auth.Claims{}
	}
	return c
}

func forbidden(w http.ResponseWriter) {
	respond.WriteError(w, http.StatusForbidden, respond.CodeForbidden, "You do not have access to this resource")
}

// teamCoach returns the coach email stored on a team.
func (h *Handler) teamCoach(ctx context.Context, teamID uuid.UUID) (string, error) {
	var coach string
	err := h.db.QueryRow(ctx, "team_coach_email", teamID).Scan(&coach)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", roster.ErrNotFound
	}
	return coach, err
}

// canManageTeam allows admins, and coaches whose email is the team's coach.
func canManageTeam(c *auth.Claims, coachEmail string) bool {
	switch c.Role {
	case auth.RoleAdmin:
		return true
	case auth.RoleCoach:
		return coachEmail != "" && strings.EqualFold(coachEmail, c.Email())
	}
	return false
}

// authorizeTeam writes 404/403 and returns false unless the caller may
// manage teamID.
func (h *Handler) authorizeTeam(w http.ResponseWriter, r *http.Request, teamID uuid.UUID) bool {
	coach, err := h.teamCoach(r.Context(), teamID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return false
	}
	if !canManageTeam(caller(r), coach) {
		forbidden(w)
		return false
	}
	return true
}

// canSeePlayer allows admins, the player's coach and the player's parents.
func (h *Handler) canSeePlayer(ctx context.Context, c *auth.Claims, playerID uuid.UUID) (bool, error) {
	var (
		coach   string
		parents []string
	)
	err := h.db.QueryRow(ctx, "player_access", playerID).Scan(&coach, &parents)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, roster.ErrNotFound
	}
	if err != nil {
		return false, err
	}
	switch c.Role {
	case auth.RoleAdmin:
		return true, nil
	case auth.RoleCoach:
		return canManageTeam(c, coach), nil
	case auth.RoleParent:
		return slices.Contains(parents, c.Email()), nil
	}
	return false, nil
}

// ownsBilling allows admins and the billed parent.
func ownsBilling(c *auth.Claims, parentEmail string) bool {
	return c.Role == auth.RoleAdmin ||
		(c.Role == auth.RoleParent && parentEmail != "" && strings.EqualFold(parentEmail, c.Email()))
}
