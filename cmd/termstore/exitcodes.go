package main

import (
	"errors"

	"github.com/iota-uz/termstore/modules/terminology/services"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitValidation = 2
	exitUsage      = 3
	exitDB         = 4
	exitDBWrite    = 5
	exitForbidden  = 6
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	if ie, ok := services.AsImportError(err); ok {
		return importExitCode(ie)
	}
	return 1
}

func importExitCode(ie *services.ImportError) int {
	switch ie.Kind {
	case services.KindForbidden:
		return exitForbidden
	case services.KindInternal:
		return exitDBWrite
	default:
		return exitValidation
	}
}
