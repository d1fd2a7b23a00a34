package authz

import (
	"fmt"
	"strings"
)

const (
	rolePrefix            = "role"
	objectSeparator       = "."
	subjectSeparator      = ":"
	defaultActionWildcard = "*"
)

// Domains partition code systems by ownership.
const (
	DomainShared  = "shared"
	DomainProject = "project"
)

var (
	RoleSuperAdmin   = SubjectForRole("superadmin")
	RoleProjectAdmin = SubjectForRole("project_admin")
	RoleMember       = SubjectForRole("member")

	ObjectCodeSystem = ObjectName("terminology", "codesystem")
)

const ActionImport = "import"

// Request encapsulates all parameters required to evaluate a Casbin rule.
type Request struct {
	Subject string
	Domain  string
	Object  string
	Action  string
}

// NewRequest constructs a normalized Request.
func NewRequest(subject, domain, object, action string) Request {
	return Request{
		Subject: strings.TrimSpace(subject),
		Domain:  strings.ToLower(strings.TrimSpace(domain)),
		Object:  object,
		Action:  NormalizeAction(action),
	}
}

// SubjectForRole returns the canonical identifier for a role-based subject.
func SubjectForRole(roleSlug string) string {
	roleSlug = strings.TrimSpace(roleSlug)
	if roleSlug == "" {
		roleSlug = "unnamed"
	}
	if strings.HasPrefix(roleSlug, rolePrefix+subjectSeparator) {
		return roleSlug
	}
	return fmt.Sprintf("%s%s%s", rolePrefix, subjectSeparator, strings.ToLower(roleSlug))
}

// DomainFor maps code-system ownership to a domain.
func DomainFor(shared bool) string {
	if shared {
		return DomainShared
	}
	return DomainProject
}

// ObjectName returns the canonical module.resource string, lowercased.
func ObjectName(module, resource string) string {
	module = strings.ToLower(strings.TrimSpace(module))
	resource = strings.ToLower(strings.TrimSpace(resource))
	if module == "" {
		module = "global"
	}
	if resource == "" {
		resource = "resource"
	}
	return module + objectSeparator + resource
}

// NormalizeAction returns a normalized action string.
func NormalizeAction(action string) string {
	action = strings.ToLower(strings.TrimSpace(action))
	if action == "" {
		return defaultActionWildcard
	}
	return action
}
