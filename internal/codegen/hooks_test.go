package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_readHook(t *testing.T) {
	tests := []struct {
		name        string
		width       int
		wantSym     string
		wantGeneric bool
	}{
		{name: "byte", width: 1, wantSym: "__tsan_read1"},
		{name: "half", width: 2, wantSym: "__tsan_read2"},
		{name: "word", width: 4, wantSym: "__tsan_read4"},
		{name: "double", width: 8, wantSym: "__tsan_read8"},
		{name: "vector", width: 16, wantSym: "__tsan_read16"},
		{name: "odd width falls back", width: 3, wantSym: "__tsan_read_range", wantGeneric: true},
		{name: "large width falls back", width: 64, wantSym: "__tsan_read_range", wantGeneric: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sym, generic := ReadHook(tt.width)
			assert.Equal(t, tt.wantSym, sym)
			assert.Equal(t, tt.wantGeneric, generic)
		})
	}
}

func Test_writeHook(t *testing.T) {
	tests := []struct {
		name        string
		width       int
		wantSym     string
		wantGeneric bool
	}{
		{name: "byte", width: 1, wantSym: "__tsan_write1"},
		{name: "double", width: 8, wantSym: "__tsan_write8"},
		{name: "vector", width: 16, wantSym: "__tsan_write16"},
		{name: "odd width falls back", width: 12, wantSym: "__tsan_write_range", wantGeneric: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sym, generic := WriteHook(tt.width)
			assert.Equal(t, tt.wantSym, sym)
			assert.Equal(t, tt.wantGeneric, generic)
		})
	}
}

func Test_atomicHooks(t *testing.T) {
	tests := []struct {
		name      string
		width     int
		wantLoad  string
		wantStore string
		wantOK    bool
	}{
		{name: "byte", width: 1, wantLoad: "__tsan_atomic8_load", wantStore: "__tsan_atomic8_store", wantOK: true},
		{name: "half", width: 2, wantLoad: "__tsan_atomic16_load", wantStore: "__tsan_atomic16_store", wantOK: true},
		{name: "word", width: 4, wantLoad: "__tsan_atomic32_load", wantStore: "__tsan_atomic32_store", wantOK: true},
		{name: "double", width: 8, wantLoad: "__tsan_atomic64_load", wantStore: "__tsan_atomic64_store", wantOK: true},
		{name: "vector", width: 16, wantLoad: "__tsan_atomic128_load", wantStore: "__tsan_atomic128_store", wantOK: true},
		{name: "no odd atomic hook", width: 3, wantOK: false},
		{name: "no zero atomic hook", width: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			load, ok := AtomicLoadHook(tt.width)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantLoad, load)

			store, ok := AtomicStoreHook(tt.width)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantStore, store)
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		sym       string
		wantKind  HookKind
		wantWidth int
	}{
		{name: "entry", sym: FuncEntry, wantKind: HookFuncEntry},
		{name: "exit", sym: FuncExit, wantKind: HookFuncExit},
		{name: "sized read", sym: "__tsan_read8", wantKind: HookRead, wantWidth: 8},
		{name: "sized write", sym: "__tsan_write1", wantKind: HookWrite, wantWidth: 1},
		{name: "read range", sym: ReadRange, wantKind: HookReadRange},
		{name: "write range", sym: WriteRange, wantKind: HookWriteRange},
		{name: "atomic load", sym: "__tsan_atomic32_load", wantKind: HookAtomicLoad, wantWidth: 4},
		{name: "atomic store", sym: "__tsan_atomic128_store", wantKind: HookAtomicStore, wantWidth: 16},
		{name: "unknown symbol", sym: "__tsan_vptr_update", wantKind: HookNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, width := Classify(tt.sym)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantWidth, width)
		})
	}
}

func TestClassify_coversEveryTableEntry(t *testing.T) {
	for width, sym := range readHooks {
		kind, w := Classify(sym)
		assert.Equal(t, HookRead, kind)
		assert.Equal(t, width, w)
	}
	for width, sym := range writeHooks {
		kind, w := Classify(sym)
		assert.Equal(t, HookWrite, kind)
		assert.Equal(t, width, w)
	}
	for width, sym := range atomicLoadHooks {
		kind, w := Classify(sym)
		assert.Equal(t, HookAtomicLoad, kind)
		assert.Equal(t, width, w)
	}
	for width, sym := range atomicStoreHooks {
		kind, w := Classify(sym)
		assert.Equal(t, HookAtomicStore, kind)
		assert.Equal(t, width, w)
	}
}
