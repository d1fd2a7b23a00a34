package persistence

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/iota-uz/termstore/modules/terminology/domain/codesystem"
	"github.com/iota-uz/termstore/modules/terminology/domain/property"
	"github.com/iota-uz/termstore/modules/terminology/infrastructure/persistence/models"
	"github.com/iota-uz/termstore/pkg/repo"
)

const codeSystemsTable = "code_systems"

var codeSystemColumns = []string{"id", "url", "project_id", "name", "title", "created_at", "updated_at"}

// DefinitionLister loads the property definitions of a system.
type DefinitionLister interface {
	ListDefinitions(ctx context.Context, tx repo.Tx, systemID uuid.UUID) ([]property.Definition, error)
}

type CodeSystemRepository struct {
	definitions DefinitionLister
}

func NewCodeSystemRepository(definitions DefinitionLister) *CodeSystemRepository {
	return &CodeSystemRepository{definitions: definitions}
}

// GetByURL loads the system with its declared property definitions.
func (r *CodeSystemRepository) GetByURL(ctx context.Context, tx repo.Tx, url string) (*codesystem.CodeSystem, error) {
	q := repo.NewSelect(codeSystemsTable)
	for _, c := range codeSystemColumns {
		q.Column(codeSystemsTable, c)
	}
	var row models.CodeSystem
	err := q.Where(repo.Cond(repo.Col(codeSystemsTable, "url"), repo.Eq(url))).Get(ctx, tx, &row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(codesystem.ErrNotFound, "%q", url)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select code system")
	}

	defs, err := r.definitions.ListDefinitions(ctx, tx, row.ID)
	if err != nil {
		return nil, err
	}
	return ToDomainCodeSystem(row, defs), nil
}
