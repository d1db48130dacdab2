// results.go tallies the suite's checks.
package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// suite records check outcomes. Failures are kept in a multierror so the
// report lists every one of them.
type suite struct {
	mu       sync.Mutex
	checks   int
	failures *multierror.Error
}

var results = new(suite)

// Check records a pass when ok, otherwise a failure with the formatted reason.
func (s *suite) Check(name string, ok bool, format string, args ...any) {
	s.mu.Lock()
	s.checks++
	if !ok {
		s.failures = multierror.Append(s.failures, fmt.Errorf("%s: %s", name, fmt.Sprintf(format, args...)))
	}
	s.mu.Unlock()

	if ok {
		slog.Info("PASS", "check", name)
		return
	}
	slog.Error("FAIL", "check", name, "reason", fmt.Sprintf(format, args...))
}

// Require records a failed setup step when err is set and reports whether
// the caller may go on.
func (s *suite) Require(name string, err error) bool {
	if err == nil {
		return true
	}
	s.Check(name, false, "%v", err)
	return false
}

// Report prints the tally and returns the number of checks and failures.
func (s *suite) Report() (checks, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.failures.ErrorOrNil()
	if err != nil {
		failed = len(s.failures.Errors)
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("%d checks, %d failed\n", s.checks, failed)
	if err != nil {
		fmt.Println(err)
	}
	fmt.Println(strings.Repeat("=", 60))
	return s.checks, failed
}

func section(name string) {
	slog.Info(fmt.Sprintf("== %s ==", name))
}
