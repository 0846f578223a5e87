package chanengine

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/lguimbarda/min-streams/streams/spi"
)

// ErrPanic wraps a value recovered from a panicking stage function.
// The stack excludes engine-internal frames.
type ErrPanic struct {
	Value any
	Stack string
}

func (e ErrPanic) Error() string {
	if e.Stack != "" {
		return fmt.Sprintf("panic: %v\n%s", e.Value, e.Stack)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the recovered value when it is an error, so element type
// mismatches can be matched with errors.As.
func (e ErrPanic) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

func newPanicError(recovered any) ErrPanic {
	return ErrPanic{
		Value: recovered,
		Stack: cleanStack(captureStack(4)), // runtime.Callers, captureStack, newPanicError, recover site
	}
}

func captureStack(skip int) string {
	const maxFrames = 32
	var pcs [maxFrames]uintptr
	n := runtime.Callers(skip, pcs[:])
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&sb, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return sb.String()
}

// cleanStack drops engine and builder frames, keeping user code and the
// standard library.
func cleanStack(stack string) string {
	var kept []string
	skipNext := false
	for _, line := range strings.Split(stack, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !strings.HasPrefix(line, "\t") {
			if isInternalFrame(line) {
				skipNext = true
				continue
			}
			skipNext = false
		} else if skipNext {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func isInternalFrame(fn string) bool {
	return strings.Contains(fn, "github.com/lguimbarda/min-streams/streams.") ||
		strings.Contains(fn, "github.com/lguimbarda/min-streams/streams/chanengine.")
}

// result is one signal travelling between stages: an element, or the error
// that ends the stream. Closing the channel completes the stream.
type result struct {
	value any
	err   error
}

func ok(v any) result          { return result{value: v} }
func fail(err error) result    { return result{err: err} }
func (r result) isError() bool { return r.err != nil }

// element checks that v may travel as an element.
func element(v any) result {
	if v == nil {
		return fail(spi.ErrNilElement)
	}
	return ok(v)
}

// protect turns a panic in the calling function into *err.
func protect(err *error) {
	if r := recover(); r != nil {
		*err = newPanicError(r)
	}
}

func call[R any](fn func(any) (R, error), v any) (out R, err error) {
	defer protect(&err)
	return fn(v)
}

func callPred(pred func(any) bool, v any) (match bool, err error) {
	defer protect(&err)
	return pred(v), nil
}

func callFunc(fn func()) (err error) {
	defer protect(&err)
	fn()
	return nil
}
