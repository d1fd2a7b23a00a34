package events

import (
	"time"

	"github.com/google/uuid"
)

// BatchImported is published after an import batch commits.
type BatchImported struct {
	SystemID           uuid.UUID
	SystemURL          string
	Subject            string
	ConceptsInserted   int
	ConceptsUpdated    int
	ConceptsUnchanged  int
	PropertiesAssigned int
	PropertiesSkipped  int
	Duration           time.Duration
	OccurredAt         time.Time
}
