package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Status is the preview classification of a row.
type Status string

const (
	StatusNew      Status = "new"
	StatusUpdate   Status = "update"
	StatusNoChange Status = "no_change"
	StatusError    Status = "error"
)

// Diff pairs the stored record (nil when absent) with the record the import
// would leave behind.
type Diff[T any] struct {
	Existing *T `json:"existing,omitempty"`
	Proposed T  `json:"proposed"`
}

// PreviewRow is the side-by-side view of one row. Changes lists the fields
// that would be written to existing records.
type PreviewRow struct {
	Row     int           `json:"row"`
	Status  Status        `json:"status"`
	Player  *Diff[Player] `json:"player,omitempty"`
	Team    *Diff[Team]   `json:"team,omitempty"`
	Parent1 *Diff[Parent] `json:"parent1,omitempty"`
	Parent2 *Diff[Parent] `json:"parent2,omitempty"`
	Changes []string      `json:"changes"`
	Notes   []string      `json:"notes,omitempty"`
	Errors  []string      `json:"errors,omitempty"`
}

// PreviewSummary counts preview rows by status.
type PreviewSummary struct {
	Total    int `json:"total"`
	New      int `json:"new"`
	Update   int `json:"update"`
	NoChange int `json:"no_change"`
	Error    int `json:"error"`
}

// PreviewResult is the preview response. Rejected holds blocking validation
// errors for submitted rows that were left out.
type PreviewResult struct {
	Rows     []PreviewRow      `json:"rows"`
	Summary  PreviewSummary    `json:"summary"`
	Rejected []ValidationError `json:"rejected,omitempty"`
}

// HasErrors reports whether any row is classified as an error, in which case
// the import should not be confirmed.
func (r PreviewResult) HasErrors() bool { return r.Summary.Error > 0 }

// Reconciler classifies rows against stored state without writing.
type Reconciler struct {
	store  Reader
	logger *slog.Logger
}

// NewReconciler creates a reconciler reading from store.
func NewReconciler(store Reader, logger *slog.Logger) *Reconciler {
	return &Reconciler{store: store, logger: logger}
}

// Preview re-validates rows, then builds a PreviewRow for each valid one.
func (r *Reconciler) Preview(ctx context.Context, rows []ImportRow) (PreviewResult, error) {
	valid, rejected := FilterValid(rows)
	res := PreviewResult{Rows: make([]PreviewRow, 0, len(valid)), Rejected: rejected}

	for _, row := range valid {
		if err := ctx.Err(); err != nil {
			return PreviewResult{}, err
		}
		pr := r.previewRow(ctx, row)
		switch pr.Status {
		case StatusNew:
			res.Summary.New++
		case StatusUpdate:
			res.Summary.Update++
		case StatusNoChange:
			res.Summary.NoChange++
		case StatusError:
			res.Summary.Error++
		}
		res.Rows = append(res.Rows, pr)
	}
	res.Summary.Total = len(res.Rows)

	r.logger.Info("Import preview",
		"rows", res.Summary.Total,
		"new", res.Summary.New,
		"update", res.Summary.Update,
		"no_change", res.Summary.NoChange,
		"error", res.Summary.Error,
	)
	return res, nil
}

func (r *Reconciler) previewRow(ctx context.Context, row ImportRow) PreviewRow {
	p, err := buildPlan(ctx, r.store, row)
	if err != nil {
		r.logger.Warn("Preview lookup failed", "row", row.Row, "error", err)
		return PreviewRow{Row: row.Row, Status: StatusError, Changes: []string{}, Errors: []string{err.Error()}}
	}
	pr := PreviewRow{
		Row:     row.Row,
		Status:  p.status(),
		Player:  &Diff[Player]{Existing: p.playerExisting, Proposed: p.player},
		Team:    &Diff[Team]{Existing: p.teamExisting, Proposed: p.team},
		Parent1: &Diff[Parent]{Existing: p.parent1Existing, Proposed: p.parent1},
		Changes: p.changes,
		Notes:   p.notes,
	}
	if p.parent2 != nil {
		pr.Parent2 = &Diff[Parent]{Existing: p.parent2Existing, Proposed: *p.parent2}
	}
	return pr
}

// plan is the resolved state of one row: stored records, the records the
// import would produce, and the fields that differ. The reconciler reports it
// and the executor applies it.
type plan struct {
	row ImportRow

	teamExisting *Team
	team         Team

	parent1Existing *Parent
	parent1         Parent

	parent2Existing *Parent
	parent2         *Parent

	playerExisting *Player
	player         Player

	missingLinks []ParentLink
	staleLinks   []ParentLink

	teamChanged    bool
	parent1Changed bool
	parent2Changed bool
	playerChanged  bool

	changes []string
	// notes are informational and never affect the status.
	notes []string
}

func (p *plan) status() Status {
	switch {
	case p.playerExisting == nil:
		return StatusNew
	case len(p.changes) > 0:
		return StatusUpdate
	default:
		return StatusNoChange
	}
}

func (p *plan) change(field string) { p.changes = append(p.changes, field) }

// buildPlan resolves team, parents and player for a validated row. It only
// reads. Empty import values keep the stored value.
func buildPlan(ctx context.Context, store Reader, row ImportRow) (*plan, error) {
	row = row.Trimmed()
	p := &plan{row: row, changes: []string{}}

	gender, ok := CanonicalGender(row.PlayerGender)
	if !ok {
		return nil, fmt.Errorf("gender %q is not accepted", row.PlayerGender)
	}

	// Team
	team, err := store.FindTeam(ctx, row.TeamName, row.Season)
	switch {
	case errors.Is(err, ErrNotFound):
		p.team = Team{Name: row.TeamName, Season: row.Season, Division: row.TeamDivision}
	case err != nil:
		return nil, fmt.Errorf("look up team %q (%s): %w", row.TeamName, row.Season, err)
	default:
		p.teamExisting = team
		p.team = *team
		if mergeField(&p.team.Division, row.TeamDivision) {
			p.teamChanged = true
			p.change(string(FieldTeamDivision))
		}
	}

	// Parents
	p.parent1Existing, p.parent1, p.parent1Changed, err = resolveParent(ctx, store,
		row.Parent1Email, row.Parent1FirstName, row.Parent1LastName, row.Parent1Phone)
	if err != nil {
		return nil, fmt.Errorf("look up parent 1: %w", err)
	}
	if p.parent1Changed {
		p.changeParent("parent1", p.parent1Existing, p.parent1)
	}

	switch {
	case !row.parent2Complete():
	case strings.EqualFold(row.Parent2Email, row.Parent1Email):
		p.notes = append(p.notes, DuplicateParent2Message)
	default:
		existing, proposed, changed, err := resolveParent(ctx, store,
			row.Parent2Email, row.Parent2FirstName, row.Parent2LastName, row.Parent2Phone)
		if err != nil {
			return nil, fmt.Errorf("look up parent 2: %w", err)
		}
		p.parent2Existing, p.parent2, p.parent2Changed = existing, &proposed, changed
		if changed {
			p.changeParent("parent2", existing, proposed)
		}
	}

	// Player
	existing, err := findPlayer(ctx, store, row, p.parent1Existing)
	if err != nil {
		return nil, fmt.Errorf("look up player: %w", err)
	}
	if existing == nil {
		p.player = Player{
			ExternalID:   row.PlayerExternalID,
			FirstName:    row.PlayerFirstName,
			LastName:     row.PlayerLastName,
			DOB:          row.PlayerDOB,
			Gender:       gender,
			Grade:        row.PlayerGrade,
			School:       row.PlayerSchool,
			JerseyNumber: row.JerseyNumber,
			JerseySize:   row.JerseySize,
			MedicalNotes: row.MedicalNotes,
			Status:       PlayerRegistered,
		}
		if p.teamExisting != nil {
			id := p.teamExisting.ID
			p.player.TeamID = &id
		}
		return p, nil
	}

	p.playerExisting = existing
	p.player = *existing
	pl := &p.player
	for _, m := range []struct {
		field Field
		dst   *string
		val   string
	}{
		{FieldPlayerExternalID, &pl.ExternalID, row.PlayerExternalID},
		{FieldPlayerFirstName, &pl.FirstName, row.PlayerFirstName},
		{FieldPlayerLastName, &pl.LastName, row.PlayerLastName},
		{FieldPlayerDOB, &pl.DOB, row.PlayerDOB},
		{FieldPlayerGender, &pl.Gender, gender},
		{FieldPlayerGrade, &pl.Grade, row.PlayerGrade},
		{FieldPlayerSchool, &pl.School, row.PlayerSchool},
		{FieldJerseyNumber, &pl.JerseyNumber, row.JerseyNumber},
		{FieldJerseySize, &pl.JerseySize, row.JerseySize},
		{FieldMedicalNotes, &pl.MedicalNotes, row.MedicalNotes},
	} {
		if mergeField(m.dst, m.val) {
			p.playerChanged = true
			p.change(string(m.field))
		}
	}

	// Team assignment
	if p.teamExisting == nil || pl.TeamID == nil || *pl.TeamID != p.teamExisting.ID {
		p.playerChanged = true
		p.change(string(FieldTeamName))
		pl.TeamID = nil
		if p.teamExisting != nil {
			id := p.teamExisting.ID
			pl.TeamID = &id
		}
	}

	// Parent links
	links, err := store.ListParentLinks(ctx, existing.ID)
	if err != nil {
		return nil, fmt.Errorf("list parent links: %w", err)
	}
	p.diffLink(links, "parent1", p.parent1Existing, row.Parent1Relationship, true)
	if p.parent2 != nil {
		p.diffLink(links, "parent2", p.parent2Existing, row.Parent2Relationship, false)
	}
	return p, nil
}

// diffLink records a missing link, or a link whose relationship or primary
// flag would change. A parent that does not exist yet always needs a link.
func (p *plan) diffLink(links []ParentLink, prefix string, parent *Parent, relationship string, primary bool) {
	if parent == nil {
		p.change(prefix + "_link")
		return
	}
	for _, l := range links {
		if l.ParentID != parent.ID {
			continue
		}
		updated := l
		changed := mergeField(&updated.Relationship, relationship)
		if primary && !l.IsPrimary {
			updated.IsPrimary = true
			changed = true
		}
		if changed {
			p.staleLinks = append(p.staleLinks, updated)
			p.change(prefix + "_relationship")
		}
		return
	}
	p.missingLinks = append(p.missingLinks, ParentLink{
		PlayerID:     p.playerExisting.ID,
		ParentID:     parent.ID,
		Relationship: relationship,
		IsPrimary:    primary,
	})
	p.change(prefix + "_link")
}

func (p *plan) changeParent(prefix string, existing *Parent, proposed Parent) {
	if existing == nil {
		return
	}
	if existing.FirstName != proposed.FirstName {
		p.change(prefix + "_first_name")
	}
	if existing.LastName != proposed.LastName {
		p.change(prefix + "_last_name")
	}
	if existing.Phone != proposed.Phone {
		p.change(prefix + "_phone")
	}
}

// resolveParent looks up a parent by email and merges the row's contact
// fields onto it. changed is only true for an existing parent.
func resolveParent(ctx context.Context, store Reader, email, first, last, phone string) (*Parent, Parent, bool, error) {
	email = strings.ToLower(email)
	existing, err := store.FindParentByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, Parent{Email: email, FirstName: first, LastName: last, Phone: phone}, false, nil
	}
	if err != nil {
		return nil, Parent{}, false, err
	}
	proposed := *existing
	changed := mergeField(&proposed.FirstName, first)
	changed = mergeField(&proposed.LastName, last) || changed
	changed = mergeField(&proposed.Phone, phone) || changed
	return existing, proposed, changed, nil
}

// findPlayer matches by external id when the row carries one, otherwise by
// name and dob within parent 1's roster. A nil player means no match.
func findPlayer(ctx context.Context, store Reader, row ImportRow, parent1 *Parent) (*Player, error) {
	var (
		pl  *Player
		err error
	)
	switch {
	case row.PlayerExternalID != "":
		pl, err = store.FindPlayerByExternalID(ctx, row.PlayerExternalID)
	case parent1 != nil:
		pl, err = store.FindPlayerForParent(ctx, parent1.ID, row.PlayerFirstName, row.PlayerLastName, row.PlayerDOB)
	default:
		return nil, nil
	}
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return pl, err
}

// mergeField copies val into dst when val is non-empty and different.
func mergeField(dst *string, val string) bool {
	if val == "" || *dst == val {
		return false
	}
	*dst = val
	return true
}

