package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/iota-uz/termstore/modules/terminology/domain/codesystem"
	"github.com/iota-uz/termstore/modules/terminology/domain/concept"
	"github.com/iota-uz/termstore/modules/terminology/domain/property"
	"github.com/iota-uz/termstore/pkg/repo"
)

type conceptKey struct {
	system uuid.UUID
	code   string
}

type memState struct {
	concepts    map[conceptKey]concept.Concept
	assignments []property.Assignment
}

func (s memState) clone() memState {
	return memState{
		concepts:    maps.Clone(s.concepts),
		assignments: slices.Clone(s.assignments),
	}
}

// memStore is an in-memory terminology store whose transactions restore the
// previous state on rollback.
type memStore struct {
	systems map[string]*codesystem.CodeSystem
	state   memState

	failUpsert error
	commits    int
	rollbacks  int
}

func newMemStore(systems ...*codesystem.CodeSystem) *memStore {
	m := &memStore{
		systems: make(map[string]*codesystem.CodeSystem),
		state:   memState{concepts: make(map[conceptKey]concept.Concept)},
	}
	for _, cs := range systems {
		m.systems[cs.URL] = cs
	}
	return m
}

func (m *memStore) InTx(ctx context.Context, fn func(context.Context, repo.Tx) error) error {
	snapshot := m.state.clone()
	err := fn(ctx, nil)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		m.state = snapshot
		m.rollbacks++
		return err
	}
	m.commits++
	return nil
}

func (m *memStore) systemByID(id uuid.UUID) *codesystem.CodeSystem {
	for _, cs := range m.systems {
		if cs.ID == id {
			return cs
		}
	}
	return nil
}

func (m *memStore) GetByURL(_ context.Context, _ repo.Tx, url string) (*codesystem.CodeSystem, error) {
	cs, ok := m.systems[url]
	if !ok {
		return nil, fmt.Errorf("%w: %q", codesystem.ErrNotFound, url)
	}
	return cs, nil
}

func (m *memStore) FindByCode(_ context.Context, _ repo.Tx, systemID uuid.UUID, code string) (*concept.Concept, error) {
	c, ok := m.state.concepts[conceptKey{systemID, code}]
	if !ok {
		return nil, concept.ErrNotFound
	}
	return &c, nil
}

func (m *memStore) Upsert(ctx context.Context, tx repo.Tx, u concept.Upsert) (*concept.UpsertResult, error) {
	if m.failUpsert != nil {
		return nil, m.failUpsert
	}
	if u.Code == "" {
		return nil, concept.ErrEmptyCode
	}
	if m.systemByID(u.SystemID) == nil {
		return nil, concept.ErrInvalidSystem
	}
	key := conceptKey{u.SystemID, u.Code}
	if existing, ok := m.state.concepts[key]; ok {
		display, isSynonym, changed := existing.Refresh(u)
		if !changed {
			return &concept.UpsertResult{Concept: &existing, Outcome: concept.OutcomeUnchanged}, nil
		}
		existing.Display, existing.IsSynonym = display, isSynonym
		m.state.concepts[key] = existing
		return &concept.UpsertResult{Concept: &existing, Outcome: concept.OutcomeUpdated}, nil
	}
	c := concept.Concept{ID: uuid.New(), SystemID: u.SystemID, Code: u.Code, Display: u.Display, IsSynonym: u.IsSynonym}
	m.state.concepts[key] = c
	return &concept.UpsertResult{Concept: &c, Outcome: concept.OutcomeInserted}, nil
}

func (m *memStore) ResolveDefinition(_ context.Context, _ repo.Tx, systemID uuid.UUID, code string) (*property.Definition, error) {
	cs := m.systemByID(systemID)
	if cs == nil {
		return nil, property.ErrUnknownProperty
	}
	def, ok := cs.Property(code)
	if !ok {
		return nil, fmt.Errorf("%w: %q", property.ErrUnknownProperty, code)
	}
	return &def, nil
}

func (m *memStore) Assign(ctx context.Context, tx repo.Tx, subject *concept.Concept, def *property.Definition, raw string) (*property.Assignment, error) {
	if def.SystemID != subject.SystemID {
		return nil, property.ErrUnknownProperty
	}
	a := property.Assignment{ID: uuid.New(), SubjectID: subject.ID, PropertyID: def.ID, Value: raw}
	if def.Kind() == property.KindConceptReference {
		target, err := m.FindByCode(ctx, tx, subject.SystemID, raw)
		if errors.Is(err, concept.ErrNotFound) {
			return nil, property.ErrInvalidTarget
		}
		if err != nil {
			return nil, err
		}
		a.TargetID = &target.ID
	}
	m.state.assignments = append(m.state.assignments, a)
	return &a, nil
}

func (m *memStore) Exists(_ context.Context, _ repo.Tx, a *property.Assignment) (bool, error) {
	for _, stored := range m.state.assignments {
		if stored.SubjectID != a.SubjectID || stored.PropertyID != a.PropertyID || stored.Value != a.Value {
			continue
		}
		if (stored.TargetID == nil) != (a.TargetID == nil) {
			continue
		}
		if stored.TargetID == nil || *stored.TargetID == *a.TargetID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListForConcept(_ context.Context, _ repo.Tx, systemID uuid.UUID, subjectCode, propertyCode string) ([]property.Value, error) {
	subject, ok := m.state.concepts[conceptKey{systemID, subjectCode}]
	if !ok {
		return nil, nil
	}
	cs := m.systemByID(systemID)
	var out []property.Value
	for _, a := range m.state.assignments {
		if a.SubjectID != subject.ID {
			continue
		}
		var code string
		for _, def := range cs.Properties {
			if def.ID == a.PropertyID {
				code = def.Code
			}
		}
		if propertyCode != "" && code != propertyCode {
			continue
		}
		v := property.Value{AssignmentID: a.ID, SubjectCode: subjectCode, PropertyCode: code, Value: a.Value, TargetID: a.TargetID}
		if a.TargetID != nil {
			for _, c := range m.state.concepts {
				if c.ID == *a.TargetID {
					v.TargetCode = c.Code
				}
			}
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *memStore) conceptCount() int    { return len(m.state.concepts) }
func (m *memStore) assignmentCount() int { return len(m.state.assignments) }
