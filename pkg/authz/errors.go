package authz

import (
	"errors"
	"fmt"
)

const errorCodeForbidden = "AUTHZ_FORBIDDEN"

// ErrForbidden matches every denial returned by Authorize.
var ErrForbidden = errors.New("permission denied")

// ForbiddenError carries the denied request.
type ForbiddenError struct {
	Code    string
	Request Request
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%s: %s may not %s %s in %s domain",
		ErrForbidden, e.Request.Subject, e.Request.Action, e.Request.Object, e.Request.Domain)
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

func forbiddenError(req Request) *ForbiddenError {
	return &ForbiddenError{Code: errorCodeForbidden, Request: req}
}

// configError standardizes configuration validation errors.
func configError(msg string, args ...any) error {
	return fmt.Errorf("authz: "+msg, args...)
}
