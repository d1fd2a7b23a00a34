package concept

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("concept not found")
	ErrInvalidSystem = errors.New("code system does not exist")
	ErrEmptyCode     = errors.New("concept code is empty")
)

// Concept is one coded entry of a code system, unique by (SystemID, Code).
type Concept struct {
	ID        uuid.UUID
	SystemID  uuid.UUID
	Code      string
	Display   string
	IsSynonym bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Upsert is the input of an idempotent concept write.
type Upsert struct {
	SystemID  uuid.UUID
	Code      string
	Display   string
	IsSynonym bool
}

type Outcome string

const (
	OutcomeInserted  Outcome = "inserted"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

type UpsertResult struct {
	Concept *Concept
	Outcome Outcome
	// Raced reports that a concurrent writer inserted the row first.
	Raced bool
}

// Refresh returns the display and synonym flag an existing concept should
// carry after u is applied, and whether anything changed. A synonym never
// overwrites a primary term.
func (c *Concept) Refresh(u Upsert) (display string, isSynonym bool, changed bool) {
	if u.IsSynonym && !c.IsSynonym {
		return c.Display, c.IsSynonym, false
	}
	if c.Display == u.Display && c.IsSynonym == u.IsSynonym {
		return c.Display, c.IsSynonym, false
	}
	return u.Display, u.IsSynonym, true
}
