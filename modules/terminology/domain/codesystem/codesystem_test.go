package codesystem_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/iota-uz/termstore/modules/terminology/domain/codesystem"
	"github.com/iota-uz/termstore/modules/terminology/domain/property"
)

func TestCodeSystem(t *testing.T) {
	project := uuid.New()
	cs := &codesystem.CodeSystem{
		ProjectID: &project,
		Properties: []property.Definition{
			{Code: "parent", Type: property.TypeCode, URI: property.ParentURI},
			{Code: "status", Type: property.TypeString},
		},
	}
	assert.False(t, cs.IsShared())

	def, ok := cs.Property("parent")
	assert.True(t, ok)
	assert.Equal(t, property.KindConceptReference, def.Kind())

	_, ok = cs.Property("Parent")
	assert.False(t, ok, "lookup is case-sensitive")

	assert.True(t, (&codesystem.CodeSystem{}).IsShared())
}
