package instrument

import "fmt"

// Stats counts what one pass run did. Zero value is ready to use.
type Stats struct {
	Functions     int // function bodies given boundary and access hooks
	SkippedFuncs  int // norace definitions left untouched
	PlainLoads    int // loads given a read hook
	PlainStores   int // stores given a write hook
	AtomicLoads   int // loads given an acquire hook
	AtomicStores  int // stores given a release hook
	SkippedLoads  int // immutable loads left bare
	SkippedStores int // initialization stores left bare
	RangeAccesses int // accesses observed through the generic range hooks
}

// Add folds o into s.
func (s *Stats) Add(o Stats) {
	s.Functions += o.Functions
	s.SkippedFuncs += o.SkippedFuncs
	s.PlainLoads += o.PlainLoads
	s.PlainStores += o.PlainStores
	s.AtomicLoads += o.AtomicLoads
	s.AtomicStores += o.AtomicStores
	s.SkippedLoads += o.SkippedLoads
	s.SkippedStores += o.SkippedStores
	s.RangeAccesses += o.RangeAccesses
}

// Hooks returns how many access hooks were inserted.
func (s Stats) Hooks() int {
	return s.PlainLoads + s.PlainStores + s.AtomicLoads + s.AtomicStores
}

func (s Stats) String() string {
	return fmt.Sprintf("%d functions instrumented (%d skipped), %d loads, %d stores, %d atomic loads, %d atomic stores, %d accesses skipped",
		s.Functions, s.SkippedFuncs, s.PlainLoads, s.PlainStores, s.AtomicLoads, s.AtomicStores, s.SkippedLoads+s.SkippedStores)
}
