package codesystem

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/termstore/modules/terminology/domain/property"
)

var ErrNotFound = errors.New("code system not found")

type CodeSystem struct {
	ID  uuid.UUID
	URL string
	// ProjectID is nil for shared terminologies.
	ProjectID  *uuid.UUID
	Name       string
	Title      string
	Properties []property.Definition
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (c *CodeSystem) IsShared() bool {
	return c.ProjectID == nil
}

// Property returns the declared definition with the exact code.
func (c *CodeSystem) Property(code string) (property.Definition, bool) {
	for _, p := range c.Properties {
		if p.Code == code {
			return p, true
		}
	}
	return property.Definition{}, false
}
