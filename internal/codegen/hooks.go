package codegen

// Function boundary hook symbols. Both take the frame identity, so the
// runtime can keep per-thread stacks balanced.
const (
	FuncEntry = "__tsan_func_entry"
	FuncExit  = "__tsan_func_exit"
)

// Range hooks cover access widths outside the sized table. Both take the
// address followed by the size in bytes.
const (
	ReadRange  = "__tsan_read_range"
	WriteRange = "__tsan_write_range"
)

// Memory order immediates passed as the trailing argument of atomic hooks.
const (
	OrderAcquire int64 = 2
	OrderRelease int64 = 3
)

var readHooks = map[int]string{
	1:  "__tsan_read1",
	2:  "__tsan_read2",
	4:  "__tsan_read4",
	8:  "__tsan_read8",
	16: "__tsan_read16",
}

var writeHooks = map[int]string{
	1:  "__tsan_write1",
	2:  "__tsan_write2",
	4:  "__tsan_write4",
	8:  "__tsan_write8",
	16: "__tsan_write16",
}

var atomicLoadHooks = map[int]string{
	1:  "__tsan_atomic8_load",
	2:  "__tsan_atomic16_load",
	4:  "__tsan_atomic32_load",
	8:  "__tsan_atomic64_load",
	16: "__tsan_atomic128_load",
}

var atomicStoreHooks = map[int]string{
	1:  "__tsan_atomic8_store",
	2:  "__tsan_atomic16_store",
	4:  "__tsan_atomic32_store",
	8:  "__tsan_atomic64_store",
	16: "__tsan_atomic128_store",
}

// ReadHook returns the hook symbol observing a plain load of width bytes.
// Widths outside the sized table fall back to the range hook, which generic
// reports; the caller then appends the size argument.
func ReadHook(width int) (sym string, generic bool) {
	if sym, ok := readHooks[width]; ok {
		return sym, false
	}
	return ReadRange, true
}

// WriteHook returns the hook symbol observing a plain store of width bytes.
func WriteHook(width int) (sym string, generic bool) {
	if sym, ok := writeHooks[width]; ok {
		return sym, false
	}
	return WriteRange, true
}

// AtomicLoadHook returns the acquire hook for an atomic load of width
// bytes. Atomic hooks have no generic fallback; ok is false when the width
// has no hook.
func AtomicLoadHook(width int) (sym string, ok bool) {
	sym, ok = atomicLoadHooks[width]
	return sym, ok
}

// AtomicStoreHook returns the release hook for an atomic store of width
// bytes.
func AtomicStoreHook(width int) (sym string, ok bool) {
	sym, ok = atomicStoreHooks[width]
	return sym, ok
}

// HookKind identifies the runtime entry point behind a hook symbol.
type HookKind int

const (
	HookNone HookKind = iota
	HookFuncEntry
	HookFuncExit
	HookRead
	HookWrite
	HookReadRange
	HookWriteRange
	HookAtomicLoad
	HookAtomicStore
)

type hookInfo struct {
	kind  HookKind
	width int
}

var hooksBySym = map[string]hookInfo{
	FuncEntry:  {kind: HookFuncEntry},
	FuncExit:   {kind: HookFuncExit},
	ReadRange:  {kind: HookReadRange},
	WriteRange: {kind: HookWriteRange},
}

func init() {
	for w, sym := range readHooks {
		hooksBySym[sym] = hookInfo{kind: HookRead, width: w}
	}
	for w, sym := range writeHooks {
		hooksBySym[sym] = hookInfo{kind: HookWrite, width: w}
	}
	for w, sym := range atomicLoadHooks {
		hooksBySym[sym] = hookInfo{kind: HookAtomicLoad, width: w}
	}
	for w, sym := range atomicStoreHooks {
		hooksBySym[sym] = hookInfo{kind: HookAtomicStore, width: w}
	}
}

// Classify maps a hook symbol back to its kind and, for sized access hooks,
// the width in bytes. Unknown symbols report HookNone.
func Classify(sym string) (HookKind, int) {
	info, ok := hooksBySym[sym]
	if !ok {
		return HookNone, 0
	}
	return info.kind, info.width
}
