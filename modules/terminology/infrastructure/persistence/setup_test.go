package persistence

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return sqlx.NewDb(db, "pgx"), mock
}

func fixedClock() time.Time { return fixedNow }

const (
	findCodingSQL = `SELECT "codings"."id", "codings"."system_id", "codings"."code", "codings"."display", ` +
		`"codings"."is_synonym", "codings"."created_at", "codings"."updated_at" FROM "codings" ` +
		`WHERE "codings"."system_id" = $1 AND "codings"."code" = $2`
	insertCodingSQL = `INSERT INTO "codings" ("system_id", "code", "display", "is_synonym", "created_at", "updated_at") ` +
		`VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT ("system_id", "code") DO NOTHING RETURNING "id"`
	updateCodingSQL = `UPDATE "codings" SET "display" = $1, "is_synonym" = $2, "updated_at" = $3 WHERE "id" = $4`

	resolveDefinitionSQL = `SELECT "code_system_properties"."id", "code_system_properties"."system_id", ` +
		`"code_system_properties"."code", "code_system_properties"."type", "code_system_properties"."uri", ` +
		`"code_system_properties"."description" FROM "code_system_properties" ` +
		`WHERE "code_system_properties"."system_id" = $1 AND "code_system_properties"."code" = $2`
	listDefinitionsSQL = `SELECT "code_system_properties"."id", "code_system_properties"."system_id", ` +
		`"code_system_properties"."code", "code_system_properties"."type", "code_system_properties"."uri", ` +
		`"code_system_properties"."description" FROM "code_system_properties" ` +
		`WHERE "code_system_properties"."system_id" = $1 ORDER BY "code_system_properties"."code" ASC`
	insertAssignmentSQL = `INSERT INTO "coding_properties" ("coding_id", "property_id", "target_id", "value", "created_at") ` +
		`VALUES ($1, $2, $3, $4, $5) RETURNING "id"`
)

var (
	codingCols     = []string{"id", "system_id", "code", "display", "is_synonym", "created_at", "updated_at"}
	definitionCols = []string{"id", "system_id", "code", "type", "uri", "description"}
)
