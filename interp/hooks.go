package interp

// Hooks receives every event an instrumented program reports, plus calls
// to symbols the unit does not define. The evaluator invokes these inline
// on the calling logical thread; implementations decide what to record.
type Hooks interface {
	FuncEntry(tid int, frame uint64)
	FuncExit(tid int, frame uint64)
	Read(tid int, addr uint64, width int)
	Write(tid int, addr uint64, width int)
	ReadRange(tid int, addr, size uint64)
	WriteRange(tid int, addr, size uint64)
	AtomicLoad(tid int, addr uint64, width int, order int64) uint64
	AtomicStore(tid int, addr, val uint64, width int, order int64)

	// Extern handles a call to a symbol outside the unit, such as the
	// lock routines. The returned word is the call's value.
	Extern(tid int, sym string, args []uint64) (uint64, error)
}

// ThreadEvents receives logical thread lifecycle from the schedule
// runner. Hooks implementations that care about cross-thread ordering
// also implement this.
type ThreadEvents interface {
	// ThreadStart announces a new logical thread ordered after the
	// listed finished threads.
	ThreadStart(tid int, after []int)
	ThreadFinish(tid int)
}

// NopHooks ignores every event. Running an instrumented tree under
// NopHooks must behave exactly like running the original tree.
type NopHooks struct{}

func (NopHooks) FuncEntry(int, uint64) {}

func (NopHooks) FuncExit(int, uint64) {}

func (NopHooks) Read(int, uint64, int) {}

func (NopHooks) Write(int, uint64, int) {}

func (NopHooks) ReadRange(int, uint64, uint64) {}

func (NopHooks) WriteRange(int, uint64, uint64) {}

func (NopHooks) AtomicLoad(int, uint64, int, int64) uint64 { return 0 }

func (NopHooks) AtomicStore(int, uint64, uint64, int, int64) {}

func (NopHooks) Extern(int, string, []uint64) (uint64, error) { return 0, nil }
