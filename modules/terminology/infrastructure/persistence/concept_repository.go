package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/iota-uz/termstore/modules/terminology/domain/concept"
	"github.com/iota-uz/termstore/modules/terminology/infrastructure/persistence/models"
	"github.com/iota-uz/termstore/pkg/repo"
)

const codingsTable = "codings"

var codingColumns = []string{"id", "system_id", "code", "display", "is_synonym", "created_at", "updated_at"}

var (
	insertCodingQuery = repo.InsertOnConflictDoNothing(
		codingsTable,
		[]string{"system_id", "code", "display", "is_synonym", "created_at", "updated_at"},
		[]string{"system_id", "code"},
		"id",
	)
	updateCodingQuery = repo.Update(codingsTable, []string{"display", "is_synonym", "updated_at"}, `"id" = $4`)
)

type ConceptRepository struct {
	now func() time.Time
}

func NewConceptRepository() *ConceptRepository {
	return &ConceptRepository{now: func() time.Time { return time.Now().UTC() }}
}

func selectCodings() *repo.SelectQuery {
	q := repo.NewSelect(codingsTable)
	for _, c := range codingColumns {
		q.Column(codingsTable, c)
	}
	return q
}

func (r *ConceptRepository) FindByCode(ctx context.Context, tx repo.Tx, systemID uuid.UUID, code string) (*concept.Concept, error) {
	var row models.Coding
	err := selectCodings().
		Where(repo.Cond(repo.Col(codingsTable, "system_id"), repo.Eq(systemID))).
		Where(repo.Cond(repo.Col(codingsTable, "code"), repo.Eq(code))).
		Get(ctx, tx, &row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, concept.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select coding")
	}
	return ToDomainConcept(row), nil
}

// Upsert returns the concept identified by (SystemID, Code), inserting it when
// absent and refreshing its display when it changed. A concurrent insert of
// the same key is absorbed by re-reading the winner's row.
func (r *ConceptRepository) Upsert(ctx context.Context, tx repo.Tx, u concept.Upsert) (*concept.UpsertResult, error) {
	if u.Code == "" {
		return nil, concept.ErrEmptyCode
	}

	existing, err := r.FindByCode(ctx, tx, u.SystemID, u.Code)
	switch {
	case err == nil:
		return r.refresh(ctx, tx, existing, u)
	case !errors.Is(err, concept.ErrNotFound):
		return nil, err
	}

	now := r.now()
	var id uuid.UUID
	err = tx.QueryRowxContext(ctx, insertCodingQuery,
		u.SystemID, u.Code, stringToNull(u.Display), u.IsSynonym, now, now,
	).Scan(&id)
	if err == nil {
		return &concept.UpsertResult{
			Concept: &concept.Concept{
				ID:        id,
				SystemID:  u.SystemID,
				Code:      u.Code,
				Display:   u.Display,
				IsSynonym: u.IsSynonym,
				CreatedAt: now,
				UpdatedAt: now,
			},
			Outcome: concept.OutcomeInserted,
		}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, mapCodingWriteError(err, u.SystemID)
	}

	// ON CONFLICT skipped the insert: another transaction owns the row now.
	existing, err = r.FindByCode(ctx, tx, u.SystemID, u.Code)
	if err != nil {
		return nil, errors.Wrap(err, "fetch coding after conflict")
	}
	res, err := r.refresh(ctx, tx, existing, u)
	if err != nil {
		return nil, err
	}
	res.Raced = true
	return res, nil
}

func (r *ConceptRepository) refresh(ctx context.Context, tx repo.Tx, existing *concept.Concept, u concept.Upsert) (*concept.UpsertResult, error) {
	display, isSynonym, changed := existing.Refresh(u)
	if !changed {
		return &concept.UpsertResult{Concept: existing, Outcome: concept.OutcomeUnchanged}, nil
	}

	now := r.now()
	if _, err := tx.ExecContext(ctx, updateCodingQuery, stringToNull(display), isSynonym, now, existing.ID); err != nil {
		return nil, errors.Wrap(err, "update coding")
	}
	updated := *existing
	updated.Display = display
	updated.IsSynonym = isSynonym
	updated.UpdatedAt = now
	return &concept.UpsertResult{Concept: &updated, Outcome: concept.OutcomeUpdated}, nil
}

func mapCodingWriteError(err error, systemID uuid.UUID) error {
	code, _, ok := pgConstraintError(err)
	switch {
	case !ok:
	case code == pgForeignKeyViolation:
		return errors.Wrapf(concept.ErrInvalidSystem, "system %s", systemID)
	case code == pgCheckViolation:
		return concept.ErrEmptyCode
	}
	return errors.Wrap(err, "insert coding")
}
