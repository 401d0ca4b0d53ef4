package race

import (
	"fmt"
	"strings"
)

// Suppressor holds synchronization routines the detector must ignore.
// A suppressed mutex still runs, but its acquisitions stop generating
// happens-before edges, so the ordering it imposes on the schedule does
// not hide races between its critical sections.
type Suppressor struct {
	mutexes map[string]bool
}

// NewSuppressor parses kind:name declarations. The only kind understood
// today is mutex.
func NewSuppressor(entries []string) (*Suppressor, error) {
	s := &Suppressor{mutexes: make(map[string]bool)}
	for _, e := range entries {
		kind, name, ok := strings.Cut(e, ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("race: malformed suppression %q, want kind:name", e)
		}
		switch kind {
		case "mutex":
			s.mutexes[name] = true
		default:
			return nil, fmt.Errorf("race: unknown suppression kind %q in %q", kind, e)
		}
	}
	return s, nil
}

// Mutex reports whether the lock routine name is suppressed. A nil
// Suppressor suppresses nothing.
func (s *Suppressor) Mutex(name string) bool {
	return s != nil && s.mutexes[name]
}
