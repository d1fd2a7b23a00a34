package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type CodeSystem struct {
	ID        uuid.UUID     `db:"id"`
	URL       string        `db:"url"`
	ProjectID uuid.NullUUID `db:"project_id"`
	Name      string        `db:"name"`
	Title     string        `db:"title"`
	CreatedAt time.Time     `db:"created_at"`
	UpdatedAt time.Time     `db:"updated_at"`
}

type PropertyDefinition struct {
	ID          uuid.UUID      `db:"id"`
	SystemID    uuid.UUID      `db:"system_id"`
	Code        string         `db:"code"`
	Type        string         `db:"type"`
	URI         sql.NullString `db:"uri"`
	Description sql.NullString `db:"description"`
}

type Coding struct {
	ID        uuid.UUID      `db:"id"`
	SystemID  uuid.UUID      `db:"system_id"`
	Code      string         `db:"code"`
	Display   sql.NullString `db:"display"`
	IsSynonym bool           `db:"is_synonym"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// PropertyValue is one row of the subject/property/target read path.
type PropertyValue struct {
	ID           uuid.UUID      `db:"id"`
	SubjectCode  string         `db:"subject_code"`
	PropertyCode string         `db:"property_code"`
	Value        sql.NullString `db:"value"`
	TargetID     uuid.NullUUID  `db:"target_id"`
	TargetCode   sql.NullString `db:"target_code"`
}

// CachedCodeSystem is the JSON document stored in Redis.
type CachedCodeSystem struct {
	ID         uuid.UUID                  `json:"id"`
	URL        string                     `json:"url"`
	ProjectID  *uuid.UUID                 `json:"project_id,omitempty"`
	Name       string                     `json:"name"`
	Title      string                     `json:"title"`
	Properties []CachedPropertyDefinition `json:"properties"`
	CreatedAt  time.Time                  `json:"created_at"`
	UpdatedAt  time.Time                  `json:"updated_at"`
}

type CachedPropertyDefinition struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Type        string    `json:"type"`
	URI         string    `json:"uri,omitempty"`
	Description string    `json:"description,omitempty"`
}
