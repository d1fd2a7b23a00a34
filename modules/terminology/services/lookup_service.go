package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/termstore/modules/terminology/domain/concept"
	"github.com/iota-uz/termstore/modules/terminology/domain/property"
	"github.com/iota-uz/termstore/pkg/composables"
	"github.com/iota-uz/termstore/pkg/repo"
)

type ConceptFinder interface {
	FindByCode(ctx context.Context, tx repo.Tx, systemID uuid.UUID, code string) (*concept.Concept, error)
}

type PropertyReader interface {
	ListForConcept(ctx context.Context, tx repo.Tx, systemID uuid.UUID, subjectCode, propertyCode string) ([]property.Value, error)
}

// LookupService is the read path over imported concepts.
type LookupService struct {
	tx         repo.Transactor
	systems    CodeSystemLookup
	concepts   ConceptFinder
	properties PropertyReader
}

func NewLookupService(tx repo.Transactor, systems CodeSystemLookup, concepts ConceptFinder, properties PropertyReader) *LookupService {
	return &LookupService{tx: tx, systems: systems, concepts: concepts, properties: properties}
}

type ConceptView struct {
	Concept    *concept.Concept
	Properties []property.Value
}

// Concept returns the concept with its property values, optionally narrowed
// to one property code.
func (s *LookupService) Concept(ctx context.Context, systemURL, code, propertyCode string) (*ConceptView, error) {
	return composables.InTxResult(ctx, s.tx, func(ctx context.Context, tx repo.Tx) (*ConceptView, error) {
		cs, err := s.systems.GetByURL(ctx, tx, systemURL)
		if err != nil {
			return nil, err
		}
		c, err := s.concepts.FindByCode(ctx, tx, cs.ID, code)
		if err != nil {
			return nil, err
		}
		values, err := s.properties.ListForConcept(ctx, tx, cs.ID, code, propertyCode)
		if err != nil {
			return nil, err
		}
		return &ConceptView{Concept: c, Properties: values}, nil
	})
}
