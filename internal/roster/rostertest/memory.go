// Package rostertest provides an in-memory roster.Store for tests.
package rostertest

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/courtside/internal/roster"
)

// MemoryStore is an in-process roster.Store. Transactions work on a copy of the
// state that replaces the original on commit.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
	now   func() time.Time
}

type linkKey struct{ player, parent uuid.UUID }

type memState struct {
	teams   map[uuid.UUID]roster.Team
	parents map[uuid.UUID]roster.Parent
	players map[uuid.UUID]roster.Player
	links   map[linkKey]roster.ParentLink
}

func (s *memState) clone() *memState {
	return &memState{
		teams:   maps.Clone(s.teams),
		parents: maps.Clone(s.parents),
		players: maps.Clone(s.players),
		links:   maps.Clone(s.links),
	}
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memState{
			teams:   map[uuid.UUID]roster.Team{},
			parents: map[uuid.UUID]roster.Parent{},
			players: map[uuid.UUID]roster.Player{},
			links:   map[linkKey]roster.ParentLink{},
		},
		now: time.Now,
	}
}

// InTx runs fn against a copy of the state and keeps the copy only when fn
// succeeds. Transactions are serialized.
func (m *MemoryStore) InTx(ctx context.Context, fn func(tx roster.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{state: m.state.clone(), now: m.now}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

func (m *MemoryStore) view() *memTx {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &memTx{state: m.state, now: m.now}
}

func (m *MemoryStore) FindTeam(ctx context.Context, name, season string) (*roster.Team, error) {
	return m.view().FindTeam(ctx, name, season)
}

func (m *MemoryStore) FindParentByEmail(ctx context.Context, email string) (*roster.Parent, error) {
	return m.view().FindParentByEmail(ctx, email)
}

func (m *MemoryStore) FindPlayerByExternalID(ctx context.Context, externalID string) (*roster.Player, error) {
	return m.view().FindPlayerByExternalID(ctx, externalID)
}

func (m *MemoryStore) FindPlayerForParent(ctx context.Context, parentID uuid.UUID, first, last, dob string) (*roster.Player, error) {
	return m.view().FindPlayerForParent(ctx, parentID, first, last, dob)
}

func (m *MemoryStore) ListParentLinks(ctx context.Context, playerID uuid.UUID) ([]roster.ParentLink, error) {
	return m.view().ListParentLinks(ctx, playerID)
}

// Players returns every stored player sorted by last then first name.
func (m *MemoryStore) Players() []roster.Player {
	v := m.view()
	out := slices.Collect(maps.Values(v.state.players))
	slices.SortFunc(out, func(a, b roster.Player) int {
		if c := strings.Compare(a.LastName, b.LastName); c != 0 {
			return c
		}
		return strings.Compare(a.FirstName, b.FirstName)
	})
	return out
}

// Counts returns the number of stored teams, parents, players and links.
func (m *MemoryStore) Counts() (teams, parents, players, links int) {
	v := m.view()
	return len(v.state.teams), len(v.state.parents), len(v.state.players), len(v.state.links)
}

// Team returns a stored team by id.
func (m *MemoryStore) Team(id uuid.UUID) (roster.Team, bool) {
	t, ok := m.view().state.teams[id]
	return t, ok
}

// memTx reads and writes one state snapshot. It is not safe for concurrent
// use; MemoryStore serializes access.
type memTx struct {
	state *memState
	now   func() time.Time
}

func (t *memTx) FindTeam(_ context.Context, name, season string) (*roster.Team, error) {
	for _, team := range t.state.teams {
		if strings.EqualFold(team.Name, name) && team.Season == season {
			return &team, nil
		}
	}
	return nil, roster.ErrNotFound
}

func (t *memTx) FindParentByEmail(_ context.Context, email string) (*roster.Parent, error) {
	for _, p := range t.state.parents {
		if strings.EqualFold(p.Email, email) {
			return &p, nil
		}
	}
	return nil, roster.ErrNotFound
}

func (t *memTx) FindPlayerByExternalID(_ context.Context, externalID string) (*roster.Player, error) {
	for _, p := range t.state.players {
		if p.ExternalID != "" && p.ExternalID == externalID {
			return &p, nil
		}
	}
	return nil, roster.ErrNotFound
}

func (t *memTx) FindPlayerForParent(_ context.Context, parentID uuid.UUID, first, last, dob string) (*roster.Player, error) {
	for k := range t.state.links {
		if k.parent != parentID {
			continue
		}
		p, ok := t.state.players[k.player]
		if ok && strings.EqualFold(p.FirstName, first) && strings.EqualFold(p.LastName, last) && p.DOB == dob {
			return &p, nil
		}
	}
	return nil, roster.ErrNotFound
}

func (t *memTx) ListParentLinks(_ context.Context, playerID uuid.UUID) ([]roster.ParentLink, error) {
	var out []roster.ParentLink
	for k, l := range t.state.links {
		if k.player == playerID {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b roster.ParentLink) int { return strings.Compare(a.ParentID.String(), b.ParentID.String()) })
	return out, nil
}

func (t *memTx) InsertTeam(ctx context.Context, team *roster.Team) error {
	if _, err := t.FindTeam(ctx, team.Name, team.Season); err == nil {
		return fmt.Errorf("team %q (%s) already exists", team.Name, team.Season)
	}
	team.ID = uuid.New()
	team.CreatedAt, team.UpdatedAt = t.now(), t.now()
	t.state.teams[team.ID] = *team
	return nil
}

func (t *memTx) UpdateTeam(_ context.Context, team *roster.Team) error {
	if _, ok := t.state.teams[team.ID]; !ok {
		return roster.ErrNotFound
	}
	team.UpdatedAt = t.now()
	t.state.teams[team.ID] = *team
	return nil
}

func (t *memTx) InsertParent(ctx context.Context, p *roster.Parent) error {
	if _, err := t.FindParentByEmail(ctx, p.Email); err == nil {
		return fmt.Errorf("parent %s already exists", p.Email)
	}
	p.ID = uuid.New()
	p.Email = strings.ToLower(p.Email)
	p.CreatedAt, p.UpdatedAt = t.now(), t.now()
	t.state.parents[p.ID] = *p
	return nil
}

func (t *memTx) UpdateParent(_ context.Context, p *roster.Parent) error {
	if _, ok := t.state.parents[p.ID]; !ok {
		return roster.ErrNotFound
	}
	p.UpdatedAt = t.now()
	t.state.parents[p.ID] = *p
	return nil
}

func (t *memTx) InsertPlayer(ctx context.Context, p *roster.Player) error {
	if p.ExternalID != "" {
		if _, err := t.FindPlayerByExternalID(ctx, p.ExternalID); err == nil {
			return fmt.Errorf("player external id %q already exists", p.ExternalID)
		}
	}
	p.ID = uuid.New()
	p.CreatedAt, p.UpdatedAt = t.now(), t.now()
	t.state.players[p.ID] = *p
	return nil
}

func (t *memTx) UpdatePlayer(_ context.Context, p *roster.Player) error {
	if _, ok := t.state.players[p.ID]; !ok {
		return roster.ErrNotFound
	}
	p.UpdatedAt = t.now()
	t.state.players[p.ID] = *p
	return nil
}

func (t *memTx) SetPlayerStatus(_ context.Context, playerID uuid.UUID, status string) error {
	p, ok := t.state.players[playerID]
	if !ok {
		return roster.ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = t.now()
	t.state.players[playerID] = p
	return nil
}

func (t *memTx) UpsertLink(_ context.Context, l roster.ParentLink) error {
	if _, ok := t.state.players[l.PlayerID]; !ok {
		return fmt.Errorf("link: player %s: %w", l.PlayerID, roster.ErrNotFound)
	}
	if _, ok := t.state.parents[l.ParentID]; !ok {
		return fmt.Errorf("link: parent %s: %w", l.ParentID, roster.ErrNotFound)
	}
	key := linkKey{l.PlayerID, l.ParentID}
	if cur, ok := t.state.links[key]; ok {
		if l.Relationship == "" {
			l.Relationship = cur.Relationship
		}
		l.IsPrimary = l.IsPrimary || cur.IsPrimary
	}
	t.state.links[key] = l
	return nil
}

var _ roster.Store = (*MemoryStore)(nil)
