package roster

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// EntityCounts tallies writes for one entity type.
type EntityCounts struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged,omitempty"`
}

// RowError is a row that failed during execution.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult summarizes an import run. Success and Errors count rows.
type ImportResult struct {
	Players   EntityCounts `json:"players"`
	Parents   EntityCounts `json:"parents"`
	Teams     EntityCounts `json:"teams"`
	Success   int          `json:"success"`
	Errors    int          `json:"errors"`
	RowErrors []RowError   `json:"row_errors"`
}

// Summary returns a one-line description of the import.
func (r *ImportResult) Summary() string {
	return fmt.Sprintf(
		"success=%d errors=%d players_created=%d players_updated=%d players_unchanged=%d parents_created=%d parents_updated=%d teams_created=%d teams_updated=%d",
		r.Success, r.Errors,
		r.Players.Created, r.Players.Updated, r.Players.Unchanged,
		r.Parents.Created, r.Parents.Updated,
		r.Teams.Created, r.Teams.Updated,
	)
}

func (r *ImportResult) add(o RowOutcome) {
	r.Players.Created += o.counts.Players.Created
	r.Players.Updated += o.counts.Players.Updated
	r.Players.Unchanged += o.counts.Players.Unchanged
	r.Parents.Created += o.counts.Parents.Created
	r.Parents.Updated += o.counts.Parents.Updated
	r.Teams.Created += o.counts.Teams.Created
	r.Teams.Updated += o.counts.Teams.Updated
	r.Success++
}

// ApplyOptions adjusts how a row is written.
type ApplyOptions struct {
	// NewPlayerStatus is the status given to created players. Defaults to
	// PlayerRegistered.
	NewPlayerStatus string
	// CreateOnly inserts missing records but never modifies an existing
	// team, parent or player, and never links new parents to an existing
	// player.
	CreateOnly bool
}

// RowOutcome reports what ApplyRow wrote.
type RowOutcome struct {
	PlayerID      uuid.UUID
	TeamID        uuid.UUID
	Parent1ID     uuid.UUID
	Parent2ID     *uuid.UUID
	PlayerCreated bool
	PlayerStatus  string

	counts ImportResult
}

// ApplyRow upserts the team, parents and player for one validated row and
// links them, inside tx. State is re-read from tx, not taken from a preview.
func ApplyRow(ctx context.Context, tx Tx, row ImportRow, opts ApplyOptions) (RowOutcome, error) {
	var out RowOutcome
	p, err := buildPlan(ctx, tx, row)
	if err != nil {
		return out, err
	}

	// Team
	if p.teamExisting == nil {
		if err := tx.InsertTeam(ctx, &p.team); err != nil {
			return out, fmt.Errorf("insert team %q: %w", p.team.Name, err)
		}
		out.counts.Teams.Created++
	} else if p.teamChanged && !opts.CreateOnly {
		if err := tx.UpdateTeam(ctx, &p.team); err != nil {
			return out, fmt.Errorf("update team %q: %w", p.team.Name, err)
		}
		out.counts.Teams.Updated++
	}
	out.TeamID = p.team.ID

	// Parents
	keepExisting := opts.CreateOnly && p.playerExisting != nil
	if err := saveParent(ctx, tx, p.parent1Existing, &p.parent1, p.parent1Changed && !opts.CreateOnly, &out.counts); err != nil {
		return out, err
	}
	out.Parent1ID = p.parent1.ID
	if p.parent2 != nil && !keepExisting {
		if err := saveParent(ctx, tx, p.parent2Existing, p.parent2, p.parent2Changed && !opts.CreateOnly, &out.counts); err != nil {
			return out, err
		}
		id := p.parent2.ID
		out.Parent2ID = &id
	}

	// Player
	switch {
	case p.playerExisting == nil:
		teamID := p.team.ID
		p.player.TeamID = &teamID
		p.player.Status = opts.NewPlayerStatus
		if p.player.Status == "" {
			p.player.Status = PlayerRegistered
		}
		if err := tx.InsertPlayer(ctx, &p.player); err != nil {
			return out, fmt.Errorf("insert player: %w", err)
		}
		out.counts.Players.Created++
		out.PlayerCreated = true
	case p.playerChanged && !opts.CreateOnly:
		teamID := p.team.ID
		p.player.TeamID = &teamID
		if err := tx.UpdatePlayer(ctx, &p.player); err != nil {
			return out, fmt.Errorf("update player %s: %w", p.player.ID, err)
		}
		out.counts.Players.Updated++
	default:
		p.player = *p.playerExisting
		out.counts.Players.Unchanged++
	}
	if p.player.TeamID != nil {
		out.TeamID = *p.player.TeamID
	}
	out.PlayerID = p.player.ID
	out.PlayerStatus = p.player.Status

	// Links
	links := append(p.missingLinks, p.staleLinks...)
	// IDs of records created above were unknown while planning.
	if p.playerExisting == nil || p.parent1Existing == nil || (p.parent2 != nil && p.parent2Existing == nil) {
		links = requiredLinks(p)
	}
	if keepExisting {
		links = nil
	}
	for _, l := range links {
		l.PlayerID = p.player.ID
		if err := tx.UpsertLink(ctx, l); err != nil {
			return out, fmt.Errorf("link parent %s: %w", l.ParentID, err)
		}
	}
	return out, nil
}

// requiredLinks lists every parent link a row implies, used whenever a player
// or parent was created in this row and link IDs were not yet known.
func requiredLinks(p *plan) []ParentLink {
	links := []ParentLink{{
		ParentID:     p.parent1.ID,
		Relationship: p.row.Parent1Relationship,
		IsPrimary:    true,
	}}
	if p.parent2 != nil {
		links = append(links, ParentLink{
			ParentID:     p.parent2.ID,
			Relationship: p.row.Parent2Relationship,
		})
	}
	return links
}

func saveParent(ctx context.Context, tx Tx, existing *Parent, proposed *Parent, changed bool, counts *ImportResult) error {
	switch {
	case existing == nil:
		if err := tx.InsertParent(ctx, proposed); err != nil {
			return fmt.Errorf("insert parent %s: %w", proposed.Email, err)
		}
		counts.Parents.Created++
	case changed:
		if err := tx.UpdateParent(ctx, proposed); err != nil {
			return fmt.Errorf("update parent %s: %w", proposed.Email, err)
		}
		counts.Parents.Updated++
	}
	return nil
}

// Executor applies validated rows, one transaction per row.
type Executor struct {
	store  Store
	logger *slog.Logger
}

// NewExecutor creates an executor writing to store.
func NewExecutor(store Store, logger *slog.Logger) *Executor {
	return &Executor{store: store, logger: logger}
}

// Execute applies rows. A failing row is rolled back, recorded in RowErrors
// and skipped; rows already committed stay committed. Rows with blocking
// validation errors are never written and count as errors.
func (e *Executor) Execute(ctx context.Context, rows []ImportRow) (*ImportResult, error) {
	valid, rejected := FilterValid(rows)
	res := &ImportResult{RowErrors: []RowError{}}

	for _, row := range rejectedRows(rejected) {
		res.Errors++
		res.RowErrors = append(res.RowErrors, row)
	}

	for _, row := range valid {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		var outcome RowOutcome
		err := e.store.InTx(ctx, func(tx Tx) error {
			var err error
			outcome, err = ApplyRow(ctx, tx, row, ApplyOptions{})
			return err
		})
		if err != nil {
			e.logger.Warn("Import row failed", "row", row.Row, "error", err)
			res.Errors++
			res.RowErrors = append(res.RowErrors, RowError{Row: row.Row, Message: err.Error()})
			continue
		}
		res.add(outcome)
	}

	e.logger.Info("Import executed", "summary", res.Summary())
	return res, nil
}

// rejectedRows folds blocking validation errors into one RowError per row.
func rejectedRows(errs []ValidationError) []RowError {
	var out []RowError
	byRow := map[int]int{}
	for _, ve := range errs {
		if i, ok := byRow[ve.Row]; ok {
			out[i].Message += "; " + ve.Message
			continue
		}
		byRow[ve.Row] = len(out)
		out = append(out, RowError{Row: ve.Row, Message: ve.Message})
	}
	return out
}
