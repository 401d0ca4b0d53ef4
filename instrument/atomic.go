package instrument

import "github.com/loom-lang/loom-race-instrumentation/internal/codegen"

// Atomic accesses map to ordering-carrying hooks: loads acquire, stores
// release. An access classified here never also receives a plain hook.
//
// The atomic hook table has no generic variant. An atomic access at a
// width outside the table keeps the plain range hook instead, trading the
// ordering edge for keeping the access observed at all.

func atomicLoadClass(width int) classification {
	if sym, ok := codegen.AtomicLoadHook(width); ok {
		return classification{atomic: true, sym: sym}
	}
	sym, generic := codegen.ReadHook(width)
	return classification{sym: sym, generic: generic}
}

func atomicStoreClass(width int) classification {
	if sym, ok := codegen.AtomicStoreHook(width); ok {
		return classification{atomic: true, sym: sym}
	}
	sym, generic := codegen.WriteHook(width)
	return classification{sym: sym, generic: generic}
}
