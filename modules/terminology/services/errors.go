package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/iota-uz/termstore/modules/terminology/domain/codesystem"
	"github.com/iota-uz/termstore/modules/terminology/domain/concept"
	"github.com/iota-uz/termstore/modules/terminology/domain/property"
	"github.com/iota-uz/termstore/pkg/authz"
)

type ErrorKind string

const (
	KindInvalidSystem   ErrorKind = "invalid-system"
	KindInvalidCode     ErrorKind = "invalid-code"
	KindInvalidProperty ErrorKind = "invalid-property"
	KindInvalidTarget   ErrorKind = "invalid-target"
	KindForbidden       ErrorKind = "forbidden"
	KindInvalidBatch    ErrorKind = "invalid-batch"
	KindInternal        ErrorKind = "internal"
)

// ImportError is the only error type Import returns. Status and Code are
// stable for transport layers.
type ImportError struct {
	Kind    ErrorKind
	Status  int
	Code    string
	Message string
	// Value is the offending input, if any.
	Value string
	// Stage is the state the batch was in when it was rejected.
	Stage State
	Cause error
}

func (e *ImportError) Error() string {
	msg := e.Message
	if e.Value != "" {
		msg = fmt.Sprintf("%s: %q", msg, e.Value)
	}
	if e.Cause == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Cause)
}

func (e *ImportError) Unwrap() error { return e.Cause }

func newImportError(kind ErrorKind, message, value string, cause error) *ImportError {
	status, code := http.StatusBadRequest, ""
	switch kind {
	case KindInvalidSystem:
		code = "TERM_INVALID_SYSTEM"
	case KindInvalidCode:
		code = "TERM_INVALID_CODE"
	case KindInvalidProperty:
		code = "TERM_INVALID_PROPERTY"
	case KindInvalidTarget:
		code = "TERM_INVALID_TARGET"
	case KindInvalidBatch:
		code = "TERM_INVALID_BATCH"
	case KindForbidden:
		status, code = http.StatusForbidden, "TERM_FORBIDDEN"
	default:
		kind = KindInternal
		status, code = http.StatusInternalServerError, "TERM_INTERNAL"
	}
	return &ImportError{Kind: kind, Status: status, Code: code, Message: message, Value: value, Cause: cause}
}

// AsImportError extracts an *ImportError from err.
func AsImportError(err error) (*ImportError, bool) {
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// classify maps repository sentinels to an ImportError. Errors that are
// already classified pass through.
func classify(err error, value string) *ImportError {
	if ie, ok := AsImportError(err); ok {
		return ie
	}
	switch {
	case errors.Is(err, codesystem.ErrNotFound), errors.Is(err, concept.ErrInvalidSystem):
		return newImportError(KindInvalidSystem, "unknown code system", value, err)
	case errors.Is(err, concept.ErrEmptyCode):
		return newImportError(KindInvalidCode, "concept code is empty", value, err)
	case errors.Is(err, concept.ErrNotFound):
		return newImportError(KindInvalidCode, "unknown concept code", value, err)
	case errors.Is(err, property.ErrUnknownProperty):
		return newImportError(KindInvalidProperty, "property is not declared by the code system", value, err)
	case errors.Is(err, property.ErrInvalidTarget):
		return newImportError(KindInvalidTarget, "target code does not resolve in the code system", value, err)
	case errors.Is(err, authz.ErrForbidden):
		return newImportError(KindForbidden, "not allowed to import into this code system", value, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newImportError(KindInternal, "import aborted", "", err)
	default:
		return newImportError(KindInternal, "storage failure", "", err)
	}
}
