// Package race is a reference happens-before runtime for instrumented
// units: one vector clock per logical thread, byte-granular shadow
// state, lock and atomic synchronization, and race reports. It backs
// the run command and the end-to-end tests; a production runtime would
// live with the language's scheduler, not here.
package race

import (
	"fmt"
	"sort"
)

// Runtime symbol names for the lock externs the interpreter routes to
// us. The domain lock pair is the language's internal allocator lock;
// the default suppression table covers it.
const (
	mutexLockSym    = "loom_mutex_lock"
	mutexUnlockSym  = "loom_mutex_unlock"
	domainLockSym   = "loom_domain_lock"
	domainUnlockSym = "loom_domain_unlock"
)

// cell is the shadow state of one byte: the last write and the reads
// since that write, each stamped with the owning thread's time.
type cell struct {
	writeTid  int
	writeTime uint64 // zero means never written
	write     Access
	readTime  map[int]uint64
	reads     map[int]Access
}

type reportKey struct {
	addr                  uint64
	firstTid, secondTid   int
	firstKind, secondKind AccessKind
}

// Runtime receives the instrumentation hook calls from an interpreted
// unit and detects unsynchronized conflicting accesses. It implements
// both interp.Hooks and interp.ThreadEvents.
type Runtime struct {
	sup *Suppressor

	clocks map[int]*Clock
	final  map[int]Clock // clocks of finished threads, for start edges
	locks  map[uint64]*Clock
	atoms  map[uint64]*Clock
	cells  map[uint64]*cell
	stacks map[int][]uint64

	reports []Report
	seen    map[reportKey]bool
}

// NewRuntime returns a detector using sup to decide which lock routines
// count as synchronization. A nil sup suppresses nothing.
func NewRuntime(sup *Suppressor) *Runtime {
	return &Runtime{
		sup:    sup,
		clocks: make(map[int]*Clock),
		final:  make(map[int]Clock),
		locks:  make(map[uint64]*Clock),
		atoms:  make(map[uint64]*Clock),
		cells:  make(map[uint64]*cell),
		stacks: make(map[int][]uint64),
		seen:   make(map[reportKey]bool),
	}
}

// Reports returns the races found so far, in detection order.
func (r *Runtime) Reports() []Report {
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

func (r *Runtime) clock(tid int) *Clock {
	c, ok := r.clocks[tid]
	if !ok {
		c = &Clock{}
		c.Set(tid, 1)
		r.clocks[tid] = c
	}
	return c
}

func (r *Runtime) cell(addr uint64) *cell {
	s, ok := r.cells[addr]
	if !ok {
		s = &cell{}
		r.cells[addr] = s
	}
	return s
}

// ThreadStart orders tid after the final clocks of the threads it
// waited on.
func (r *Runtime) ThreadStart(tid int, after []int) {
	c := r.clock(tid)
	for _, p := range after {
		if fc, ok := r.final[p]; ok {
			c.Join(fc)
		} else if pc, ok := r.clocks[p]; ok {
			c.Join(*pc)
		}
	}
}

// ThreadFinish snapshots tid's clock for later start edges.
func (r *Runtime) ThreadFinish(tid int) {
	r.final[tid] = r.clock(tid).Clone()
}

// FuncEntry pushes the new frame on tid's stack.
func (r *Runtime) FuncEntry(tid int, frame uint64) {
	r.stacks[tid] = append(r.stacks[tid], frame)
}

// FuncExit pops the frame if it is on top. Exit hooks run in the frame
// they exit, so a mismatch means the unit was instrumented by hand.
func (r *Runtime) FuncExit(tid int, frame uint64) {
	st := r.stacks[tid]
	if n := len(st); n > 0 && st[n-1] == frame {
		r.stacks[tid] = st[:n-1]
	}
}

func (r *Runtime) frame(tid int) uint64 {
	if st := r.stacks[tid]; len(st) > 0 {
		return st[len(st)-1]
	}
	return 0
}

func (r *Runtime) Read(tid int, addr uint64, width int) {
	r.access(Access{Tid: tid, Kind: AccessRead, Addr: addr, Width: width, Frame: r.frame(tid)})
}

func (r *Runtime) Write(tid int, addr uint64, width int) {
	r.access(Access{Tid: tid, Kind: AccessWrite, Addr: addr, Width: width, Frame: r.frame(tid)})
}

func (r *Runtime) ReadRange(tid int, addr, size uint64) {
	r.access(Access{Tid: tid, Kind: AccessRead, Addr: addr, Width: int(size), Frame: r.frame(tid)})
}

func (r *Runtime) WriteRange(tid int, addr, size uint64) {
	r.access(Access{Tid: tid, Kind: AccessWrite, Addr: addr, Width: int(size), Frame: r.frame(tid)})
}

// access checks every byte the access touches against the shadow state
// and then records it. At most one report per access: the first
// conflicting byte wins, but the shadow update still covers the whole
// width.
func (r *Runtime) access(a Access) {
	c := r.clock(a.Tid)
	now := c.Get(a.Tid)
	reported := false
	for i := 0; i < a.Width; i++ {
		b := a.Addr + uint64(i)
		s := r.cell(b)
		if !reported && s.writeTime > 0 && s.writeTid != a.Tid && s.writeTime > c.Get(s.writeTid) {
			reported = r.report(b, s.write, a)
		}
		if a.Kind == AccessWrite {
			if !reported {
				for _, tid := range sortedReaders(s.readTime) {
					if tid != a.Tid && s.readTime[tid] > c.Get(tid) {
						reported = r.report(b, s.reads[tid], a)
						break
					}
				}
			}
			s.writeTid = a.Tid
			s.writeTime = now
			s.write = a
			s.readTime = nil
			s.reads = nil
		} else {
			if s.readTime == nil {
				s.readTime = make(map[int]uint64)
				s.reads = make(map[int]Access)
			}
			s.readTime[a.Tid] = now
			s.reads[a.Tid] = a
		}
	}
}

// sortedReaders fixes the map walk order so repeated runs report the
// same conflicting reader.
func sortedReaders(m map[int]uint64) []int {
	tids := make([]int, 0, len(m))
	for tid := range m {
		tids = append(tids, tid)
	}
	sort.Ints(tids)
	return tids
}

func (r *Runtime) report(addr uint64, first, second Access) bool {
	k := reportKey{
		addr:       addr,
		firstTid:   first.Tid,
		secondTid:  second.Tid,
		firstKind:  first.Kind,
		secondKind: second.Kind,
	}
	if r.seen[k] {
		return true
	}
	r.seen[k] = true
	r.reports = append(r.reports, Report{Addr: addr, First: first, Second: second})
	return true
}

// AtomicLoad is an acquire: the loader picks up everything published at
// this location. The access itself never races.
func (r *Runtime) AtomicLoad(tid int, addr uint64, width int, order int64) uint64 {
	if s, ok := r.atoms[addr]; ok {
		r.clock(tid).Join(*s)
	}
	return 0
}

// AtomicStore is a release: the location clock absorbs the storer's,
// and the storer moves past everything it just published.
func (r *Runtime) AtomicStore(tid int, addr uint64, val uint64, width int, order int64) {
	s, ok := r.atoms[addr]
	if !ok {
		s = &Clock{}
		r.atoms[addr] = s
	}
	c := r.clock(tid)
	s.Join(*c)
	c.Tick(tid)
}

// Extern handles the lock routines. Anything else is inert and
// evaluates to zero, so units can call stubs the runtime has no
// interest in.
func (r *Runtime) Extern(tid int, sym string, args []uint64) (uint64, error) {
	switch sym {
	case mutexLockSym, mutexUnlockSym, domainLockSym, domainUnlockSym:
		if len(args) != 1 {
			return 0, fmt.Errorf("race: %s takes 1 argument, got %d", sym, len(args))
		}
	default:
		return 0, nil
	}
	switch sym {
	case mutexLockSym:
		r.acquire(tid, args[0])
	case mutexUnlockSym:
		r.release(tid, args[0])
	case domainLockSym:
		if !r.sup.Mutex(domainLockSym) {
			r.acquire(tid, args[0])
		}
	case domainUnlockSym:
		if !r.sup.Mutex(domainLockSym) {
			r.release(tid, args[0])
		}
	}
	return 0, nil
}

func (r *Runtime) acquire(tid int, lock uint64) {
	if s, ok := r.locks[lock]; ok {
		r.clock(tid).Join(*s)
	}
}

func (r *Runtime) release(tid int, lock uint64) {
	s, ok := r.locks[lock]
	if !ok {
		s = &Clock{}
		r.locks[lock] = s
	}
	c := r.clock(tid)
	s.Join(*c)
	c.Tick(tid)
}
