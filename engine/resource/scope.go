package resource

import (
	"errors"
	"fmt"
	"sync"
)

// Scope owns a stack of release functions. Close runs them once in reverse order of registration,
// so an owner can acquire resources one by one and tear everything down with a single call,
// including after a partially failed construction.
type Scope struct {
	mu       sync.Mutex
	releases []namedRelease
	closed   bool
}

type namedRelease struct {
	name    string
	release func() error
}

// Own registers a release function. Registering on a closed scope runs the release immediately.
//
// Parameters:
//   - name: label used in error messages
//   - release: function that frees the resource
func (s *Scope) Own(name string, release func() error) {
	if release == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = release()
		return
	}
	s.releases = append(s.releases, namedRelease{name: name, release: release})
	s.mu.Unlock()
}

// Len returns the number of releases still pending.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.releases)
}

// Closed reports whether Close has run.
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close runs every pending release in LIFO order. Later calls are no-ops.
// Every release runs even when an earlier one fails.
//
// Returns:
//   - error: the joined release errors, or nil
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pending := s.releases
	s.releases = nil
	s.mu.Unlock()

	var errs []error
	for i := len(pending) - 1; i >= 0; i-- {
		if err := pending[i].release(); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", pending[i].name, err))
		}
	}
	return errors.Join(errs...)
}
