package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/termstore/modules/terminology/domain/concept"
	"github.com/iota-uz/termstore/modules/terminology/domain/property"
	"github.com/iota-uz/termstore/modules/terminology/services"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"nil", nil, exitOK},
		{"plain error", errors.New("boom"), 1},
		{"usage", withCode(exitUsage, errors.New("bad flag")), exitUsage},
		{"wrapped cli error", fmt.Errorf("ctx: %w", withCode(exitDB, errors.New("down"))), exitDB},
		{"invalid code", &services.ImportError{Kind: services.KindInvalidCode}, exitValidation},
		{"invalid target", &services.ImportError{Kind: services.KindInvalidTarget}, exitValidation},
		{"invalid system", &services.ImportError{Kind: services.KindInvalidSystem}, exitValidation},
		{"forbidden", &services.ImportError{Kind: services.KindForbidden}, exitForbidden},
		{"internal", &services.ImportError{Kind: services.KindInternal}, exitDBWrite},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, exitCode(tc.err))
		})
	}
}

func TestParseProjectIDs(t *testing.T) {
	id := uuid.New()
	ids, err := parseProjectIDs([]string{" " + id.String() + " "})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, ids)

	_, err = parseProjectIDs([]string{"not-a-uuid"})
	require.Error(t, err)
}

func TestImportOptionsIdentity(t *testing.T) {
	id := uuid.New()
	opts := importOptions{as: "ops", projectAdmins: []uuid.UUID{id}}
	identity := opts.identity()
	assert.Equal(t, "ops", identity.Subject())
	assert.False(t, identity.IsSuperAdmin())
	assert.True(t, identity.IsProjectAdmin(id))
	assert.False(t, identity.IsProjectAdmin(uuid.New()))
}

func TestImportSummary(t *testing.T) {
	req := services.ImportRequest{
		SystemURL:  "http://example.org/cs/demo",
		Concepts:   []services.ConceptItem{{Code: "A"}, {Code: "B"}},
		Properties: []services.PropertyItem{{Subject: "ZZZ", Property: "parent", Value: "A"}},
	}
	opts := importOptions{file: "batch.json", apply: true}
	identity := services.StaticIdentity{Name: "ops", SuperAdmin: true}

	t.Run("committed", func(t *testing.T) {
		res := &services.ImportResult{State: services.StateCommitted, ConceptsInserted: 2, PropertiesAssigned: 1}
		var buf bytes.Buffer
		require.NoError(t, writeJSONLine(&buf, newImportSummary(req, opts, identity, res, nil)))

		var got map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "committed", got["status"])
		assert.Equal(t, "batch.json", got["source"])
		assert.Equal(t, float64(2), got["counts"].(map[string]any)["concepts_rows"])
		assert.Equal(t, float64(2), got["result"].(map[string]any)["concepts_inserted"])
		assert.NotContains(t, got, "error")
	})

	t.Run("rejected", func(t *testing.T) {
		ie := &services.ImportError{
			Kind:    services.KindInvalidCode,
			Code:    "TERM_INVALID_CODE",
			Message: "unknown concept code",
			Value:   "ZZZ",
			Stage:   services.StateApplying,
		}
		s := newImportSummary(req, opts, identity, nil, ie)
		assert.Equal(t, "rejected", s.Status)
		assert.Nil(t, s.Result)
		require.NotNil(t, s.Error)
		assert.Equal(t, "invalid-code", s.Error.Kind)
		assert.Equal(t, "applying", s.Error.Stage)
		assert.Equal(t, "ZZZ", s.Error.Value)
	})
}

func TestLookupOutput(t *testing.T) {
	target := uuid.New()
	view := &services.ConceptView{
		Concept: &concept.Concept{ID: uuid.New(), Code: "A", Display: "Alpha"},
		Properties: []property.Value{
			{PropertyCode: "parent", Value: "B", TargetID: &target, TargetCode: "B"},
			{PropertyCode: "inactive", Value: "false"},
		},
	}
	out := newLookupOutput("http://example.org/cs/demo", view)
	assert.Equal(t, "A", out.Code)
	require.Len(t, out.Properties, 2)
	assert.Equal(t, target.String(), out.Properties[0].TargetID)
	assert.Empty(t, out.Properties[1].TargetID)

	assert.Equal(t, exitValidation, exitCode(lookupError(concept.ErrNotFound)))
	assert.Equal(t, exitDB, exitCode(lookupError(errors.New("conn refused"))))
}
