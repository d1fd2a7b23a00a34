package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/termstore/modules/terminology/domain/codesystem"
)

const selectCodeSystemSQL = `SELECT "code_systems"."id", "code_systems"."url", "code_systems"."project_id", ` +
	`"code_systems"."name", "code_systems"."title", "code_systems"."created_at", "code_systems"."updated_at" ` +
	`FROM "code_systems" WHERE "code_systems"."url" = $1`

var codeSystemCols = []string{"id", "url", "project_id", "name", "title", "created_at", "updated_at"}

func TestCodeSystemRepository_GetByURL(t *testing.T) {
	ctx := context.Background()
	const url = "http://example.org/cs/demo"

	t.Run("loads system with definitions", func(t *testing.T) {
		db, mock := newMockDB(t)
		systemID, projectID := uuid.New(), uuid.New()
		mock.ExpectQuery(selectCodeSystemSQL).WithArgs(url).
			WillReturnRows(sqlmock.NewRows(codeSystemCols).
				AddRow(systemID.String(), url, projectID.String(), "demo", "Demo", fixedNow, fixedNow))
		mock.ExpectQuery(listDefinitionsSQL).WithArgs(systemID).
			WillReturnRows(sqlmock.NewRows(definitionCols).
				AddRow(uuid.NewString(), systemID.String(), "parent", "code", "http://hl7.org/fhir/concept-properties#parent", nil))

		r := NewCodeSystemRepository(newPropertyRepo(stubFinder{}))
		cs, err := r.GetByURL(ctx, db, url)
		require.NoError(t, err)
		assert.Equal(t, systemID, cs.ID)
		assert.False(t, cs.IsShared())
		require.NotNil(t, cs.ProjectID)
		assert.Equal(t, projectID, *cs.ProjectID)
		_, ok := cs.Property("parent")
		assert.True(t, ok)
	})

	t.Run("shared system", func(t *testing.T) {
		db, mock := newMockDB(t)
		systemID := uuid.New()
		mock.ExpectQuery(selectCodeSystemSQL).WithArgs(url).
			WillReturnRows(sqlmock.NewRows(codeSystemCols).
				AddRow(systemID.String(), url, nil, "demo", "Demo", fixedNow, fixedNow))
		mock.ExpectQuery(listDefinitionsSQL).WithArgs(systemID).
			WillReturnRows(sqlmock.NewRows(definitionCols))

		cs, err := NewCodeSystemRepository(newPropertyRepo(stubFinder{})).GetByURL(ctx, db, url)
		require.NoError(t, err)
		assert.True(t, cs.IsShared())
		assert.Empty(t, cs.Properties)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(selectCodeSystemSQL).WithArgs(url).WillReturnRows(sqlmock.NewRows(codeSystemCols))

		_, err := NewCodeSystemRepository(newPropertyRepo(stubFinder{})).GetByURL(ctx, db, url)
		require.ErrorIs(t, err, codesystem.ErrNotFound)
	})
}
