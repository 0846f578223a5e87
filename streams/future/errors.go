package future

import (
	"fmt"

	"github.com/lguimbarda/min-streams/errors"
)

// ErrNilFailure replaces a nil error passed to Fail.
var ErrNilFailure = errors.New("future failed without an error")

// TypeError reports a settled value that does not have the awaited type.
type TypeError struct {
	Want string
	Got  any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("future value has type %T, want %s", e.Got, e.Want)
}
