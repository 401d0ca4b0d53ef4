package instrument

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loom-lang/loom-race-instrumentation/internal/codegen"
	"github.com/loom-lang/loom-race-instrumentation/internal/report"
	"github.com/loom-lang/loom-race-instrumentation/internal/util"
	"github.com/loom-lang/loom-race-instrumentation/mir"
)

func parseFuncDef(t *testing.T, src string) *mir.FuncDef {
	t.Helper()
	n, err := mir.ParseNode("test.mir", []byte(src))
	require.NoError(t, err)
	f, ok := n.(*mir.FuncDef)
	require.True(t, ok, "source is not a func definition")
	return f
}

func countHooks(n mir.Node) map[string]int {
	counts := make(map[string]int)
	mir.Visit(n, func(k mir.Node) {
		if h, ok := k.(*mir.HookCall); ok {
			counts[h.Sym]++
		}
	})
	return counts
}

func TestFunc_accessHooks(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantHooks map[string]int
		wantStats Stats
	}{
		{
			name: "mutable loads of every sized width",
			src: `(func (name f) (params p)
				(seq (load 1 mut p) (load 2 mut p) (load 4 mut p) (load 8 mut p) (load 16 mut p)))`,
			wantHooks: map[string]int{
				"__tsan_func_entry": 1,
				"__tsan_func_exit":  1,
				"__tsan_read1":      1,
				"__tsan_read2":      1,
				"__tsan_read4":      1,
				"__tsan_read8":      1,
				"__tsan_read16":     1,
			},
			wantStats: Stats{Functions: 1, PlainLoads: 5},
		},
		{
			name: "assignment stores of every sized width",
			src: `(func (name g) (params p)
				(seq (store 1 assign p 1) (store 2 assign p 2) (store 4 assign p 3) (store 8 assign p 4) (store 16 assign p 5)))`,
			wantHooks: map[string]int{
				"__tsan_func_entry": 1,
				"__tsan_func_exit":  1,
				"__tsan_write1":     1,
				"__tsan_write2":     1,
				"__tsan_write4":     1,
				"__tsan_write8":     1,
				"__tsan_write16":    1,
			},
			wantStats: Stats{Functions: 1, PlainStores: 5},
		},
		{
			name: "unsized widths use the range hooks",
			src: `(func (name h) (params p)
				(seq (load 3 mut p) (store 12 assign p 0)))`,
			wantHooks: map[string]int{
				"__tsan_func_entry":  1,
				"__tsan_func_exit":   1,
				"__tsan_read_range":  1,
				"__tsan_write_range": 1,
			},
			wantStats: Stats{Functions: 1, PlainLoads: 1, PlainStores: 1, RangeAccesses: 2},
		},
		{
			name: "immutable loads and initialization stores stay bare",
			src: `(func (name i) (params p)
				(seq (load 8 imm p) (store 8 init p 1) (load 8 mut p)))`,
			wantHooks: map[string]int{
				"__tsan_func_entry": 1,
				"__tsan_func_exit":  1,
				"__tsan_read8":      1,
			},
			wantStats: Stats{Functions: 1, PlainLoads: 1, SkippedLoads: 1, SkippedStores: 1},
		},
		{
			name: "atomic accesses get ordering hooks",
			src: `(func (name j) (params p)
				(seq (load 4 atomic p) (store 8 atomic p 1)))`,
			wantHooks: map[string]int{
				"__tsan_func_entry":     1,
				"__tsan_func_exit":      1,
				"__tsan_atomic32_load":  1,
				"__tsan_atomic64_store": 1,
			},
			wantStats: Stats{Functions: 1, AtomicLoads: 1, AtomicStores: 1},
		},
		{
			name: "atomic at an unsized width degrades to a range hook",
			src:  `(func (name k) (params p) (store 6 atomic p 1))`,
			wantHooks: map[string]int{
				"__tsan_func_entry":  1,
				"__tsan_func_exit":   1,
				"__tsan_write_range": 1,
			},
			wantStats: Stats{Functions: 1, PlainStores: 1, RangeAccesses: 1},
		},
		{
			name: "accesses inside branch conditions and bindings",
			src: `(func (name l) (params p q)
				(let x (load 8 mut p)
					(if (load 1 mut q) x 0)))`,
			wantHooks: map[string]int{
				"__tsan_func_entry": 1,
				"__tsan_func_exit":  2,
				"__tsan_read8":      1,
				"__tsan_read1":      1,
			},
			wantStats: Stats{Functions: 1, PlainLoads: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := parseFuncDef(t, tt.src)
			got, stats, err := Func(Config{}, f)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHooks, countHooks(got.Body))
			assert.Equal(t, tt.wantStats, stats)
		})
	}
}

func TestFunc_boundary(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantExits int
	}{
		{
			name:      "straight line gets one exit",
			src:       `(func (name f) (params) 0)`,
			wantExits: 1,
		},
		{
			name:      "each branch arm exits",
			src:       `(func (name f) (params c) (if c 1 0))`,
			wantExits: 2,
		},
		{
			name:      "nested branches multiply exits",
			src:       `(func (name f) (params a b) (if a (if b 1 2) (if b 3 4)))`,
			wantExits: 4,
		},
		{
			name:      "let forwards to its body",
			src:       `(func (name f) (params p) (let x (load 8 mut p) (prim add x 1)))`,
			wantExits: 1,
		},
		{
			name:      "sequence forwards to its last expression",
			src:       `(func (name f) (params p) (seq (store 8 assign p 1) (load 8 mut p)))`,
			wantExits: 1,
		},
		{
			name:      "empty body still exits",
			src:       `(func (name f) (params) (seq))`,
			wantExits: 1,
		},
		{
			name:      "tail call exits once",
			src:       `(func (name f) (params n) (call f n))`,
			wantExits: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := parseFuncDef(t, tt.src)
			got, _, err := Func(Config{}, f)
			require.NoError(t, err)

			hooks := countHooks(got.Body)
			assert.Equal(t, 1, hooks["__tsan_func_entry"], "entry hooks")
			assert.Equal(t, tt.wantExits, hooks["__tsan_func_exit"], "exit hooks")
		})
	}
}

func TestFunc_entryHookRunsFirst(t *testing.T) {
	f := parseFuncDef(t, `(func (name f) (params p) (load 8 mut p))`)
	got, _, err := Func(Config{}, f)
	require.NoError(t, err)

	seq, ok := got.Body.(*mir.Seq)
	require.True(t, ok, "instrumented body must be a sequence")
	require.Len(t, seq.List, 2)
	assert.Equal(t, codegen.EntryHook(), seq.List[0])
}

func TestFunc_exitFiresBeforeTailCall(t *testing.T) {
	f := parseFuncDef(t, `(func (name loop) (params n) (call loop (prim sub n 1)))`)
	got, _, err := Func(Config{}, f)
	require.NoError(t, err)

	want := "(func (name loop) (params n)\n" +
		"  (seq\n" +
		"    (hook __tsan_func_entry (frameaddr))\n" +
		"    (let .a0\n" +
		"      (prim sub n 1)\n" +
		"      (seq (hook __tsan_func_exit (frameaddr)) (call loop .a0)))))"
	assert.Equal(t, want, mir.Print(got))
}

func TestFunc_storeRewriteKeepsOperandOrder(t *testing.T) {
	f := parseFuncDef(t, `(func (name set) (params p) (store 8 assign (prim add p 8) (call next)))`)
	got, _, err := Func(Config{}, f)
	require.NoError(t, err)

	want := "(func (name set) (params p)\n" +
		"  (seq\n" +
		"    (hook __tsan_func_entry (frameaddr))\n" +
		"    (let .t0\n" +
		"      (prim add p 8)\n" +
		"      (let .v1\n" +
		"        (call next)\n" +
		"        (seq\n" +
		"          (hook __tsan_write8 .t0)\n" +
		"          (let .r2\n" +
		"            (store 8 assign .t0 .v1)\n" +
		"            (seq (hook __tsan_func_exit (frameaddr)) .r2)))))))"
	assert.Equal(t, want, mir.Print(got))
}

func TestFunc_noRaceLeftUntouched(t *testing.T) {
	f := parseFuncDef(t, `(func (name alloc) (params n) (norace) (seq (store 8 assign n 1) (load 8 mut n)))`)
	got, stats, err := Func(Config{}, f)
	require.NoError(t, err)

	assert.Same(t, f, got)
	assert.Equal(t, Stats{SkippedFuncs: 1}, stats)
	assert.Empty(t, countHooks(got.Body))
}

func TestFunc_inputTreeLeftIntact(t *testing.T) {
	f := parseFuncDef(t, `(func (name f) (params p) (store 8 assign (prim add p 8) 1))`)
	before := mir.Print(f)

	_, _, err := Func(Config{}, f)
	require.NoError(t, err)
	assert.Equal(t, before, mir.Print(f), "instrumentation modified its input")
}

func TestFunc_freshNamesAvoidCollisions(t *testing.T) {
	f := parseFuncDef(t, `(func (name f) (params .t0) (load 8 mut (prim add .t0 1)))`)
	got, _, err := Func(Config{}, f)
	require.NoError(t, err)

	names := make(map[string]int)
	mir.Visit(got.Body, func(n mir.Node) {
		if l, ok := n.(*mir.Let); ok {
			names[l.Name]++
		}
	})
	assert.Zero(t, names[".t0"], "fresh name shadows a parameter")
	assert.Equal(t, 1, names[".t1"])
}

func TestFunc_fatalErrors(t *testing.T) {
	tests := []struct {
		name    string
		fn      *mir.FuncDef
		wantErr error
	}{
		{
			name:    "load without mutability metadata",
			fn:      parseTestFunc(`(func (name f) (params p) (load 8 unknown p))`),
			wantErr: ErrUnknownAccessKind,
		},
		{
			name:    "store without kind metadata",
			fn:      parseTestFunc(`(func (name f) (params p) (store 8 unknown p 1))`),
			wantErr: ErrUnknownAccessKind,
		},
		{
			name:    "zero width",
			fn:      parseTestFunc(`(func (name f) (params p) (load 0 mut p))`),
			wantErr: ErrUnknownAccessKind,
		},
		{
			name:    "negative width",
			fn:      parseTestFunc(`(func (name f) (params p) (store -1 assign p 1))`),
			wantErr: ErrUnknownAccessKind,
		},
		{
			name:    "address that produces no value",
			fn:      parseTestFunc(`(func (name f) (params p) (load 8 mut (seq)))`),
			wantErr: ErrMalformedAddress,
		},
		{
			name:    "branch address missing a value in one arm",
			fn:      parseTestFunc(`(func (name f) (params c) (load 8 mut (if c (seq) 1)))`),
			wantErr: ErrMalformedAddress,
		},
		{
			name:    "load with no address expression",
			fn:      &mir.FuncDef{Name: "f", Body: &mir.Load{Width: 8, Mut: mir.Mutable}},
			wantErr: ErrMalformedAddress,
		},
		{
			name:    "store with no value expression",
			fn:      &mir.FuncDef{Name: "f", Body: &mir.Store{Addr: &mir.Var{Name: "p"}, Width: 8, Kind: mir.Assignment}},
			wantErr: ErrMalformedAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := Func(Config{}, tt.fn)
			require.Error(t, err)
			assert.Nil(t, got, "failed instrumentation must not return a tree")
			assert.ErrorIs(t, err, tt.wantErr)

			var ie *Error
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, "f", ie.Func)
		})
	}
}

// parseTestFunc builds fatal-error inputs for the table above; it panics
// instead of taking testing.T so it can run inside a composite literal.
func parseTestFunc(src string) *mir.FuncDef {
	n, err := mir.ParseNode("test.mir", []byte(src))
	if err != nil {
		panic(err)
	}
	return n.(*mir.FuncDef)
}

func TestFunc_missingBody(t *testing.T) {
	got, _, err := Func(Config{}, &mir.FuncDef{Name: "f"})
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "no body")
}

func TestUnit(t *testing.T) {
	src := `(unit demo
		(func (name get) (params p) (load 8 mut p))
		(func (name set) (params p v) (store 8 assign p v))
		(func (name alloc) (params n) (norace) (store 8 init n 0)))`
	u, err := mir.Parse("test.mir", []byte(src))
	require.NoError(t, err)
	before := mir.Print(u)

	got, stats, err := Unit(Config{}, u)
	require.NoError(t, err)

	assert.Equal(t, "demo", got.Name)
	require.Len(t, got.Funcs, 3)
	assert.Equal(t, Stats{Functions: 2, SkippedFuncs: 1, PlainLoads: 1, PlainStores: 1}, stats)
	assert.Equal(t, 2, stats.Hooks())

	assert.Same(t, u.Funcs[2], got.Funcs[2], "norace function is reused")
	assert.Equal(t, before, mir.Print(u), "input unit modified")
}

// TestUnit_printParseRoundTrip pins that instrumented output survives the
// dump-and-reload cycle the compiler driver uses between stages.
func TestUnit_printParseRoundTrip(t *testing.T) {
	src := `(unit demo
		(func (name bump) (params p) (store 8 assign p (prim add (load 8 mut p) 1)))
		(func (name spin) (params f) (if (load 4 atomic f) 1 (call spin f))))`
	u, err := mir.Parse("test.mir", []byte(src))
	require.NoError(t, err)

	got, _, err := Unit(Config{}, u)
	require.NoError(t, err)

	again, err := mir.Parse("test.mir", []byte(mir.Print(got)))
	require.NoError(t, err)
	assert.True(t, util.AssertNodeEqual(got, again), "reparsed dump differs structurally")
}

func TestUnit_abortsOnFirstFailure(t *testing.T) {
	src := `(unit demo
		(func (name ok) (params p) (load 8 mut p))
		(func (name bad) (params p) (load 8 unknown p))
		(func (name unreached) (params p) (load 8 mut p)))`
	u, err := mir.Parse("test.mir", []byte(src))
	require.NoError(t, err)

	got, stats, err := Unit(Config{}, u)
	require.Error(t, err)
	assert.Nil(t, got, "a failed unit must not escape partially instrumented")
	assert.ErrorIs(t, err, ErrUnknownAccessKind)
	assert.Contains(t, err.Error(), "function bad")
	assert.Equal(t, 1, stats.Functions, "functions before the failure still count")
}

func TestFunc_debugTrace(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	cfg := Config{Debug: true, Reporter: report.NewPrinter()}
	f := parseFuncDef(t, `(func (name traced) (params p) (seq (load 8 mut p) (load 4 imm p)))`)
	_, _, err := Func(cfg, f)
	require.NoError(t, err)
	cfg.Reporter.Flush()

	out := buf.String()
	assert.Contains(t, out, "function traced")
	assert.Contains(t, out, "load width 8 -> __tsan_read8")
	assert.Contains(t, out, "load width 4 skipped: immutable")
}

func TestFunc_debugDisabledStaysSilent(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	cfg := Config{Reporter: report.NewPrinter()}
	f := parseFuncDef(t, `(func (name quiet) (params p) (load 8 mut p))`)
	_, _, err := Func(cfg, f)
	require.NoError(t, err)
	cfg.Reporter.Flush()

	assert.Empty(t, buf.String())
}
