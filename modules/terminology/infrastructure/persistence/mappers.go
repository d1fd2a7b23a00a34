package persistence

import (
	"database/sql"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/iota-uz/termstore/modules/terminology/domain/codesystem"
	"github.com/iota-uz/termstore/modules/terminology/domain/concept"
	"github.com/iota-uz/termstore/modules/terminology/domain/property"
	"github.com/iota-uz/termstore/modules/terminology/infrastructure/persistence/models"
)

func ToDomainConcept(m models.Coding) *concept.Concept {
	return &concept.Concept{
		ID:        m.ID,
		SystemID:  m.SystemID,
		Code:      m.Code,
		Display:   m.Display.String,
		IsSynonym: m.IsSynonym,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func ToDomainDefinition(m models.PropertyDefinition) (property.Definition, error) {
	t := property.Type(m.Type)
	if !t.Valid() {
		return property.Definition{}, errors.Errorf("property %q has unknown type %q", m.Code, m.Type)
	}
	return property.Definition{
		ID:          m.ID,
		SystemID:    m.SystemID,
		Code:        m.Code,
		Type:        t,
		URI:         m.URI.String,
		Description: m.Description.String,
	}, nil
}

func ToDomainPropertyValue(m models.PropertyValue) property.Value {
	return property.Value{
		AssignmentID: m.ID,
		SubjectCode:  m.SubjectCode,
		PropertyCode: m.PropertyCode,
		Value:        m.Value.String,
		TargetID:     nullUUIDPtr(m.TargetID),
		TargetCode:   m.TargetCode.String,
	}
}

func ToDomainCodeSystem(m models.CodeSystem, defs []property.Definition) *codesystem.CodeSystem {
	return &codesystem.CodeSystem{
		ID:         m.ID,
		URL:        m.URL,
		ProjectID:  nullUUIDPtr(m.ProjectID),
		Name:       m.Name,
		Title:      m.Title,
		Properties: defs,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func ToCachedCodeSystem(cs *codesystem.CodeSystem) models.CachedCodeSystem {
	props := make([]models.CachedPropertyDefinition, len(cs.Properties))
	for i, p := range cs.Properties {
		props[i] = models.CachedPropertyDefinition{
			ID:          p.ID,
			Code:        p.Code,
			Type:        string(p.Type),
			URI:         p.URI,
			Description: p.Description,
		}
	}
	return models.CachedCodeSystem{
		ID:         cs.ID,
		URL:        cs.URL,
		ProjectID:  cs.ProjectID,
		Name:       cs.Name,
		Title:      cs.Title,
		Properties: props,
		CreatedAt:  cs.CreatedAt,
		UpdatedAt:  cs.UpdatedAt,
	}
}

func FromCachedCodeSystem(m models.CachedCodeSystem) *codesystem.CodeSystem {
	defs := make([]property.Definition, len(m.Properties))
	for i, p := range m.Properties {
		defs[i] = property.Definition{
			ID:          p.ID,
			SystemID:    m.ID,
			Code:        p.Code,
			Type:        property.Type(p.Type),
			URI:         p.URI,
			Description: p.Description,
		}
	}
	return &codesystem.CodeSystem{
		ID:         m.ID,
		URL:        m.URL,
		ProjectID:  m.ProjectID,
		Name:       m.Name,
		Title:      m.Title,
		Properties: defs,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func nullUUIDPtr(v uuid.NullUUID) *uuid.UUID {
	if !v.Valid {
		return nil
	}
	id := v.UUID
	return &id
}

func uuidPtrToNull(v *uuid.UUID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *v, Valid: true}
}

func stringToNull(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
