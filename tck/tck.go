// Package tck is a conformance kit for reactive streams engines. It runs
// a suite of fixtures, each a named group of cases, against one engine and
// prints a summary of the results.
//
//	err := tck.New(tck.WithEngine(engine), tck.WithConsole(true)).Run(ctx)
package tck

import (
	"context"

	"github.com/lguimbarda/min-streams/errors"
	"github.com/lguimbarda/min-streams/streams/spi"
)

// Case is a single conformance check. Run returns nil on success, an error
// made by Skip to be counted as skipped, or any other error to fail.
type Case struct {
	Name string
	Run  func(ctx context.Context) error
}

// Fixture groups cases under a name. Cases of one fixture run in order;
// different fixtures may run concurrently.
type Fixture struct {
	Name  string
	Cases []Case
}

// Factory builds a fixture exercising engine.
type Factory func(engine spi.Engine) Fixture

// SkipError marks a case as skipped.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}

// Skip returns the error a case returns to be counted as skipped.
func Skip(reason string) error {
	return &SkipError{Reason: reason}
}

func isSkip(err error) (*SkipError, bool) {
	var skip *SkipError
	if errors.As(err, &skip) {
		return skip, true
	}
	return nil, false
}
