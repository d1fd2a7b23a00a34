package concept_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iota-uz/termstore/modules/terminology/domain/concept"
)

func TestConcept_Refresh(t *testing.T) {
	primary := &concept.Concept{Code: "A", Display: "Alpha"}
	synonym := &concept.Concept{Code: "A", Display: "alpha", IsSynonym: true}

	t.Run("same values are unchanged", func(t *testing.T) {
		_, _, changed := primary.Refresh(concept.Upsert{Code: "A", Display: "Alpha"})
		assert.False(t, changed)
	})

	t.Run("new display refreshes primary", func(t *testing.T) {
		display, isSyn, changed := primary.Refresh(concept.Upsert{Code: "A", Display: "Alpha v2"})
		assert.True(t, changed)
		assert.Equal(t, "Alpha v2", display)
		assert.False(t, isSyn)
	})

	t.Run("synonym never demotes primary", func(t *testing.T) {
		display, isSyn, changed := primary.Refresh(concept.Upsert{Code: "A", Display: "other", IsSynonym: true})
		assert.False(t, changed)
		assert.Equal(t, "Alpha", display)
		assert.False(t, isSyn)
	})

	t.Run("primary promotes synonym", func(t *testing.T) {
		display, isSyn, changed := synonym.Refresh(concept.Upsert{Code: "A", Display: "Alpha"})
		assert.True(t, changed)
		assert.Equal(t, "Alpha", display)
		assert.False(t, isSyn)
	})

	t.Run("synonym refreshes synonym display", func(t *testing.T) {
		display, isSyn, changed := synonym.Refresh(concept.Upsert{Code: "A", Display: "ALPHA", IsSynonym: true})
		assert.True(t, changed)
		assert.Equal(t, "ALPHA", display)
		assert.True(t, isSyn)
	})
}
