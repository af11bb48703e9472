package roster

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by lookups that match no record.
var ErrNotFound = errors.New("not found")

// Player statuses.
const (
	PlayerRegistered     = "registered"
	PlayerPendingPayment = "pending_payment"
	PlayerActive         = "active"
	PlayerPaymentFailed  = "payment_failed"
	PlayerInactive       = "inactive"
)

// Team is a roster team for one season.
type Team struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Season     string    `json:"season"`
	Division   string    `json:"division,omitempty"`
	CoachEmail string    `json:"coach_email,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
	UpdatedAt  time.Time `json:"updated_at,omitzero"`
}

// Parent is a guardian contact, unique by lower-cased email.
type Parent struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Player is a registered child. DOB is kept in DateLayout form and Gender as
// its canonical code.
type Player struct {
	ID           uuid.UUID  `json:"id"`
	ExternalID   string     `json:"external_id,omitempty"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	DOB          string     `json:"dob"`
	Gender       string     `json:"gender"`
	Grade        string     `json:"grade,omitempty"`
	School       string     `json:"school,omitempty"`
	JerseyNumber string     `json:"jersey_number,omitempty"`
	JerseySize   string     `json:"jersey_size,omitempty"`
	MedicalNotes string     `json:"medical_notes,omitempty"`
	TeamID       *uuid.UUID `json:"team_id,omitempty"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at,omitzero"`
	UpdatedAt    time.Time  `json:"updated_at,omitzero"`
}

// ParentLink joins a player to a parent.
type ParentLink struct {
	PlayerID     uuid.UUID `json:"player_id"`
	ParentID     uuid.UUID `json:"parent_id"`
	Relationship string    `json:"relationship,omitempty"`
	IsPrimary    bool      `json:"is_primary"`
}

// Reader is the read side used by the reconciler. Lookups that match nothing
// return ErrNotFound.
type Reader interface {
	FindTeam(ctx context.Context, name, season string) (*Team, error)
	FindParentByEmail(ctx context.Context, email string) (*Parent, error)
	FindPlayerByExternalID(ctx context.Context, externalID string) (*Player, error)
	// FindPlayerForParent matches first and last name case-insensitively and
	// dob exactly among the players linked to parentID.
	FindPlayerForParent(ctx context.Context, parentID uuid.UUID, first, last, dob string) (*Player, error)
	ListParentLinks(ctx context.Context, playerID uuid.UUID) ([]ParentLink, error)
}

// Writer persists roster entities. Insert methods assign IDs.
type Writer interface {
	InsertTeam(ctx context.Context, t *Team) error
	UpdateTeam(ctx context.Context, t *Team) error
	InsertParent(ctx context.Context, p *Parent) error
	UpdateParent(ctx context.Context, p *Parent) error
	InsertPlayer(ctx context.Context, p *Player) error
	UpdatePlayer(ctx context.Context, p *Player) error
	SetPlayerStatus(ctx context.Context, playerID uuid.UUID, status string) error
	UpsertLink(ctx context.Context, l ParentLink) error
}

// Tx is a unit of work against the roster tables.
type Tx interface {
	Reader
	Writer
}

// Store is the roster datastore. InTx commits when fn returns nil and rolls
// back otherwise.
type Store interface {
	Reader
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
