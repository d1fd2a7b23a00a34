package services

import (
	"slices"

	"github.com/google/uuid"

	"github.com/iota-uz/termstore/pkg/authz"
)

// Identity is the requesting principal as seen by the import path.
type Identity interface {
	Subject() string
	IsSuperAdmin() bool
	IsProjectAdmin(projectID uuid.UUID) bool
}

// StaticIdentity is a fixed identity, used by the CLI and tests.
type StaticIdentity struct {
	Name       string
	SuperAdmin bool
	AdminOf    []uuid.UUID
}

func (s StaticIdentity) Subject() string {
	if s.Name == "" {
		return "anonymous"
	}
	return s.Name
}

func (s StaticIdentity) IsSuperAdmin() bool { return s.SuperAdmin }

func (s StaticIdentity) IsProjectAdmin(projectID uuid.UUID) bool {
	return slices.Contains(s.AdminOf, projectID)
}

// roleFor picks the policy subject of identity for a system owned by
// projectID (nil for shared systems).
func roleFor(identity Identity, projectID *uuid.UUID) string {
	switch {
	case identity.IsSuperAdmin():
		return authz.RoleSuperAdmin
	case projectID != nil && identity.IsProjectAdmin(*projectID):
		return authz.RoleProjectAdmin
	default:
		return authz.RoleMember
	}
}
