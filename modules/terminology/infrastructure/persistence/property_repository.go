package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/iota-uz/termstore/modules/terminology/domain/concept"
	"github.com/iota-uz/termstore/modules/terminology/domain/property"
	"github.com/iota-uz/termstore/modules/terminology/infrastructure/persistence/models"
	"github.com/iota-uz/termstore/pkg/repo"
)

const (
	definitionsTable = "code_system_properties"
	assignmentsTable = "coding_properties"
)

var definitionColumns = []string{"id", "system_id", "code", "type", "uri", "description"}

var insertAssignmentQuery = repo.Insert(
	assignmentsTable,
	[]string{"coding_id", "property_id", "target_id", "value", "created_at"},
	"id",
)

// ConceptFinder resolves concept-reference values.
type ConceptFinder interface {
	FindByCode(ctx context.Context, tx repo.Tx, systemID uuid.UUID, code string) (*concept.Concept, error)
}

type PropertyRepository struct {
	concepts ConceptFinder
	now      func() time.Time
}

func NewPropertyRepository(concepts ConceptFinder) *PropertyRepository {
	return &PropertyRepository{
		concepts: concepts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func selectDefinitions(systemID uuid.UUID) *repo.SelectQuery {
	q := repo.NewSelect(definitionsTable)
	for _, c := range definitionColumns {
		q.Column(definitionsTable, c)
	}
	return q.Where(repo.Cond(repo.Col(definitionsTable, "system_id"), repo.Eq(systemID)))
}

// ListDefinitions returns every property declared by the system, ordered by code.
func (r *PropertyRepository) ListDefinitions(ctx context.Context, tx repo.Tx, systemID uuid.UUID) ([]property.Definition, error) {
	var rows []models.PropertyDefinition
	err := selectDefinitions(systemID).
		OrderBy(definitionsTable, "code", repo.Asc).
		Select(ctx, tx, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "select property definitions")
	}
	defs := make([]property.Definition, len(rows))
	for i, row := range rows {
		if defs[i], err = ToDomainDefinition(row); err != nil {
			return nil, err
		}
	}
	return defs, nil
}

// ResolveDefinition finds the property declared by the system under the exact code.
func (r *PropertyRepository) ResolveDefinition(ctx context.Context, tx repo.Tx, systemID uuid.UUID, code string) (*property.Definition, error) {
	var row models.PropertyDefinition
	err := selectDefinitions(systemID).
		Where(repo.Cond(repo.Col(definitionsTable, "code"), repo.Eq(code))).
		Get(ctx, tx, &row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(property.ErrUnknownProperty, "%q", code)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select property definition")
	}
	def, err := ToDomainDefinition(row)
	if err != nil {
		return nil, err
	}
	return &def, nil
}

// Assign stores one value of def on subject. Concept references are resolved
// within the subject's system and stored by id. Repeated calls append rows.
func (r *PropertyRepository) Assign(
	ctx context.Context,
	tx repo.Tx,
	subject *concept.Concept,
	def *property.Definition,
	rawValue string,
) (*property.Assignment, error) {
	if def.SystemID != subject.SystemID {
		return nil, errors.Wrapf(property.ErrUnknownProperty, "%q is not declared by the subject's system", def.Code)
	}

	a := &property.Assignment{
		SubjectID:  subject.ID,
		PropertyID: def.ID,
		Value:      rawValue,
		CreatedAt:  r.now(),
	}
	switch def.Kind() {
	case property.KindConceptReference:
		target, err := r.concepts.FindByCode(ctx, tx, subject.SystemID, rawValue)
		if errors.Is(err, concept.ErrNotFound) {
			return nil, errors.Wrapf(property.ErrInvalidTarget, "%q", rawValue)
		}
		if err != nil {
			return nil, err
		}
		a.TargetID = &target.ID
	case property.KindLiteral:
	}

	err := tx.QueryRowxContext(ctx, insertAssignmentQuery,
		a.SubjectID, a.PropertyID, uuidPtrToNull(a.TargetID), a.Value, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		return nil, mapAssignmentWriteError(err)
	}
	return a, nil
}

// Exists reports whether an assignment with the same subject, property,
// target and value is already stored.
func (r *PropertyRepository) Exists(ctx context.Context, tx repo.Tx, a *property.Assignment) (bool, error) {
	targetFilter := repo.IsNull()
	if a.TargetID != nil {
		targetFilter = repo.Eq(*a.TargetID)
	}
	rows, err := repo.NewSelect(assignmentsTable).
		Column(assignmentsTable, "id").
		Where(repo.Cond(repo.Col(assignmentsTable, "coding_id"), repo.Eq(a.SubjectID))).
		Where(repo.Cond(repo.Col(assignmentsTable, "property_id"), repo.Eq(a.PropertyID))).
		Where(repo.Cond(repo.Col(assignmentsTable, "target_id"), targetFilter)).
		Where(repo.Cond(repo.Col(assignmentsTable, "value"), repo.Eq(a.Value))).
		Limit(1).
		Execute(ctx, tx)
	if err != nil {
		return false, errors.Wrap(err, "check property assignment")
	}
	return len(rows) > 0, nil
}

// ListForConcept returns the property values of one concept, optionally
// narrowed to a single property code, in insertion order. Concept-reference
// targets are resolved to their codes through a self-join on codings.
func (r *PropertyRepository) ListForConcept(
	ctx context.Context,
	tx repo.Tx,
	systemID uuid.UUID,
	subjectCode string,
	propertyCode string,
) ([]property.Value, error) {
	q := repo.NewSelect(codingsTable)
	target := q.AllocateJoinAlias()
	q.Join(repo.InnerJoin, assignmentsTable, "",
		repo.Cond(repo.Col(assignmentsTable, "coding_id"), repo.EqCol(repo.Col(codingsTable, "id")))).
		Join(repo.InnerJoin, definitionsTable, "",
			repo.Cond(repo.Col(definitionsTable, "id"), repo.EqCol(repo.Col(assignmentsTable, "property_id")))).
		Join(repo.LeftJoin, codingsTable, target,
			repo.Cond(repo.Col(target, "id"), repo.EqCol(repo.Col(assignmentsTable, "target_id")))).
		Column(assignmentsTable, "id").
		ColumnAs(codingsTable, "code", "subject_code").
		ColumnAs(definitionsTable, "code", "property_code").
		Column(assignmentsTable, "value").
		Column(assignmentsTable, "target_id").
		ColumnAs(target, "code", "target_code").
		Where(repo.Cond(repo.Col(codingsTable, "system_id"), repo.Eq(systemID))).
		Where(repo.Cond(repo.Col(codingsTable, "code"), repo.Eq(subjectCode)))
	if propertyCode != "" {
		q.Where(repo.Cond(repo.Col(definitionsTable, "code"), repo.Eq(propertyCode)))
	}
	q.OrderBy(assignmentsTable, "created_at", repo.Asc).
		OrderBy(assignmentsTable, "id", repo.Asc)

	var rows []models.PropertyValue
	if err := q.Select(ctx, tx, &rows); err != nil {
		return nil, errors.Wrap(err, "select property values")
	}
	values := make([]property.Value, len(rows))
	for i, row := range rows {
		values[i] = ToDomainPropertyValue(row)
	}
	return values, nil
}

func mapAssignmentWriteError(err error) error {
	code, constraint, ok := pgConstraintError(err)
	if ok && code == pgForeignKeyViolation {
		switch constraint {
		case "coding_properties_property_id_fkey":
			return errors.Wrap(property.ErrUnknownProperty, "property definition vanished")
		case "coding_properties_target_id_fkey":
			return errors.Wrap(property.ErrInvalidTarget, "target concept vanished")
		case "coding_properties_coding_id_fkey":
			return errors.Wrap(concept.ErrNotFound, "subject concept vanished")
		}
	}
	return errors.Wrap(err, "insert property assignment")
}
