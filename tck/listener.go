package tck

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lguimbarda/min-streams/errors"
)

// ErrNoFailureCause is returned by Run when tests failed but none of them
// recorded a cause.
var ErrNoFailureCause = errors.New("tests failed with no error")

// reportWidth is the column the status of a per-case line starts after.
const reportWidth = 100

// listener tallies case outcomes. It is safe for concurrent use; fixtures
// report from their own goroutines.
type listener struct {
	passed  atomic.Int64
	failed  atomic.Int64
	skipped atomic.Int64

	mu       sync.Mutex
	failures []string
	last     error

	console bool
	out     io.Writer
	outMu   sync.Mutex
}

func newListener(out io.Writer, console bool) *listener {
	return &listener{out: out, console: console}
}

func (l *listener) fixtureStarted(name string) {
	l.print(name + ":")
}

func (l *listener) casePassed(fixture, name string) {
	l.passed.Add(1)
	l.printResult(name, "SUCCESS")
}

func (l *listener) caseSkipped(fixture, name, reason string) {
	l.skipped.Add(1)
	l.printResult(name, "SKIPPED")
	if reason != "" {
		l.print("   " + reason)
	}
}

func (l *listener) caseFailed(fixture, name string, err error) {
	l.printResult(name, "FAILED")
	l.mu.Lock()
	l.failures = append(l.failures, fixture+"."+name)
	if err != nil {
		l.last = err
		l.printf("   %+v\n", err)
	}
	l.mu.Unlock()
	l.failed.Add(1)
}

func (l *listener) summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Summary{
		Passed:   int(l.passed.Load()),
		Failed:   int(l.failed.Load()),
		Skipped:  int(l.skipped.Load()),
		Failures: append([]string(nil), l.failures...),
	}
	s.Total = s.Passed + s.Failed + s.Skipped
	return s
}

// result is the error the run reports: the last failure's cause, or a
// generic error if failures carried none.
func (l *listener) result() error {
	if l.failed.Load() == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last != nil {
		return l.last
	}
	return ErrNoFailureCause
}

func (l *listener) printResult(name, status string) {
	if !l.console {
		return
	}
	dotted := name
	if pad := reportWidth - len(name); pad > 0 {
		dotted += strings.Repeat(".", pad)
	}
	l.print(" - " + dotted + "." + status)
}

func (l *listener) print(line string) {
	if l.console {
		l.printf("%s\n", line)
	}
}

func (l *listener) printf(format string, args ...any) {
	if !l.console {
		return
	}
	l.outMu.Lock()
	defer l.outMu.Unlock()
	fmt.Fprintf(l.out, format, args...)
}

// Summary is the tally of one run.
type Summary struct {
	Total    int
	Passed   int
	Failed   int
	Skipped  int
	Failures []string
}

// Write prints the summary in the fixed report format.
func (s Summary) Write(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Ran %d tests, %d passed, %d failed, %d skipped.\n", s.Total, s.Passed, s.Failed, s.Skipped)
	b.WriteString("Failed tests:\n")
	for _, id := range s.Failures {
		b.WriteString(id + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
