// Package errors provides error handling for min-streams.
//
// This package re-exports github.com/cockroachdb/errors so that every
// package in the module gets stack traces, wrapping and hints from a single
// import:
//
//	// Wrap with context
//	if err := engine.Validate(graph); err != nil {
//	    return errors.Wrap(err, "build completion")
//	}
//
//	// Add hints for users
//	return errors.WithHint(err, "import an engine package for its side effects")
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
	GetAllHints = crdb.GetAllHints
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Multi-error handling
var (
	WithSecondaryError = crdb.WithSecondaryError
)

// Assertions
var (
	AssertionFailedf   = crdb.AssertionFailedf
	IsAssertionFailure = crdb.IsAssertionFailure
)

// Common sentinel errors shared across packages.
// Wrap these with errors.Wrap() to add context while preserving identity.
var (
	// ErrNilEngine is returned when a nil engine is passed where one is required.
	ErrNilEngine = New("engine must not be nil")

	// ErrNoEngine indicates that no default engine could be discovered.
	ErrNoEngine = New("no reactive streams engine registered")
)
