package property

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknownProperty = errors.New("unknown property")
	ErrInvalidTarget   = errors.New("invalid target code")
)

// Type is the declared semantic type of a property definition.
type Type string

const (
	TypeString   Type = "string"
	TypeCode     Type = "code"
	TypeBoolean  Type = "boolean"
	TypeInteger  Type = "integer"
	TypeDecimal  Type = "decimal"
	TypeDateTime Type = "dateTime"
	TypeCoding   Type = "Coding"
	TypeConcept  Type = "concept"
)

// Hierarchy URIs mark code-typed properties whose values name other concepts.
const (
	ParentURI = "http://hl7.org/fhir/concept-properties#parent"
	ChildURI  = "http://hl7.org/fhir/concept-properties#child"
)

// Kind decides how a raw value is stored.
type Kind int

const (
	KindLiteral Kind = iota
	KindConceptReference
)

func (k Kind) String() string {
	switch k {
	case KindConceptReference:
		return "concept-reference"
	default:
		return "literal"
	}
}

func (t Type) Valid() bool {
	switch t {
	case TypeString, TypeCode, TypeBoolean, TypeInteger, TypeDecimal, TypeDateTime, TypeCoding, TypeConcept:
		return true
	}
	return false
}

// Definition is a property declared by a code system.
type Definition struct {
	ID          uuid.UUID
	SystemID    uuid.UUID
	Code        string
	Type        Type
	URI         string
	Description string
}

// Kind classifies the definition. Concept-typed properties and code-typed
// properties carrying a hierarchy URI reference concepts; everything else
// is stored as a literal.
func (d Definition) Kind() Kind {
	switch {
	case d.Type == TypeConcept:
		return KindConceptReference
	case d.Type == TypeCode && (d.URI == ParentURI || d.URI == ChildURI):
		return KindConceptReference
	default:
		return KindLiteral
	}
}

// Assignment is one stored property value of a concept.
type Assignment struct {
	ID         uuid.UUID
	SubjectID  uuid.UUID
	PropertyID uuid.UUID
	// TargetID is set for concept references only.
	TargetID  *uuid.UUID
	Value     string
	CreatedAt time.Time
}

// Value is the read model of an assignment joined with its subject and target codes.
type Value struct {
	AssignmentID uuid.UUID
	SubjectCode  string
	PropertyCode string
	Value        string
	TargetID     *uuid.UUID
	TargetCode   string
}
