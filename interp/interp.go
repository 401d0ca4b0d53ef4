// Package interp evaluates MIR units deterministically. It exists to
// check instrumented trees against their originals and to drive the
// reference race runtime from replayable schedules; it is not a
// production execution engine.
package interp

import (
	"fmt"

	"github.com/loom-lang/loom-race-instrumentation/internal/codegen"
	"github.com/loom-lang/loom-race-instrumentation/mir"
)

// maxCallDepth bounds user-level recursion so a looping test program
// fails with an error instead of exhausting the stack.
const maxCallDepth = 512

// Frame identities handed to boundary hooks: unique per activation,
// disjoint from the low address space test programs use for data.
const (
	frameBase = uint64(1) << 40
	frameSize = uint64(1) << 16
)

// Machine evaluates functions of one unit against one shared memory.
// All logical threads run interleaved on the caller's goroutine, so a
// Machine needs no locking.
type Machine struct {
	funcs  map[string]*mir.FuncDef
	mem    *Memory
	hooks  Hooks
	frames uint64
}

// thread carries the per-logical-thread evaluation state.
type thread struct {
	id    int
	frame uint64
	depth int
}

// env is the lexical environment, innermost binding first.
type env struct {
	name string
	val  uint64
	up   *env
}

func (e *env) lookup(name string) (uint64, bool) {
	for ; e != nil; e = e.up {
		if e.name == name {
			return e.val, true
		}
	}
	return 0, false
}

// New builds a machine for the unit. A nil hooks runs silent.
func New(u *mir.Unit, hooks Hooks) (*Machine, error) {
	if hooks == nil {
		hooks = NopHooks{}
	}
	m := &Machine{
		funcs: make(map[string]*mir.FuncDef, len(u.Funcs)),
		mem:   NewMemory(),
		hooks: hooks,
	}
	for _, f := range u.Funcs {
		if _, ok := m.funcs[f.Name]; ok {
			return nil, fmt.Errorf("interp: unit %s defines function %s twice", u.Name, f.Name)
		}
		m.funcs[f.Name] = f
	}
	return m, nil
}

// Memory exposes the machine's store so tests can seed and inspect it.
func (m *Machine) Memory() *Memory {
	return m.mem
}

// Call runs a unit function on the given logical thread and returns its
// result.
func (m *Machine) Call(tid int, sym string, args ...uint64) (uint64, error) {
	f, ok := m.funcs[sym]
	if !ok {
		return 0, fmt.Errorf("interp: unit defines no function %q", sym)
	}
	return m.callFunc(&thread{id: tid}, f, args)
}

func (m *Machine) callFunc(t *thread, f *mir.FuncDef, args []uint64) (uint64, error) {
	if len(args) != len(f.Params) {
		return 0, fmt.Errorf("interp: function %s takes %d arguments, got %d", f.Name, len(f.Params), len(args))
	}
	if t.depth >= maxCallDepth {
		return 0, fmt.Errorf("interp: call depth exceeds %d in function %s", maxCallDepth, f.Name)
	}

	var scope *env
	for i, p := range f.Params {
		scope = &env{name: p, val: args[i], up: scope}
	}

	m.frames++
	frame := frameBase + m.frames*frameSize

	t.depth++
	saved := t.frame
	t.frame = frame
	v, err := m.eval(t, scope, f.Body)
	t.frame = saved
	t.depth--

	if err != nil {
		return 0, err
	}
	return v, nil
}

func (m *Machine) eval(t *thread, scope *env, n mir.Node) (uint64, error) {
	switch n := n.(type) {
	case *mir.Const:
		return uint64(n.Value), nil

	case *mir.Var:
		v, ok := scope.lookup(n.Name)
		if !ok {
			return 0, fmt.Errorf("interp: unbound variable %q", n.Name)
		}
		return v, nil

	case *mir.Let:
		bind, err := m.eval(t, scope, n.Bind)
		if err != nil {
			return 0, err
		}
		return m.eval(t, &env{name: n.Name, val: bind, up: scope}, n.Body)

	case *mir.Prim:
		args, err := m.evalList(t, scope, n.Args)
		if err != nil {
			return 0, err
		}
		return evalPrim(n.Op, args)

	case *mir.Call:
		args, err := m.evalList(t, scope, n.Args)
		if err != nil {
			return 0, err
		}
		if f, ok := m.funcs[n.Sym]; ok {
			return m.callFunc(t, f, args)
		}
		return m.hooks.Extern(t.id, n.Sym, args)

	case *mir.Load:
		addr, err := m.eval(t, scope, n.Addr)
		if err != nil {
			return 0, err
		}
		return m.mem.Read(addr, n.Width), nil

	case *mir.Store:
		addr, err := m.eval(t, scope, n.Addr)
		if err != nil {
			return 0, err
		}
		val, err := m.eval(t, scope, n.Val)
		if err != nil {
			return 0, err
		}
		m.mem.Write(addr, n.Width, val)
		return val, nil

	case *mir.Seq:
		var v uint64
		for _, e := range n.List {
			var err error
			if v, err = m.eval(t, scope, e); err != nil {
				return 0, err
			}
		}
		return v, nil

	case *mir.If:
		cond, err := m.eval(t, scope, n.Cond)
		if err != nil {
			return 0, err
		}
		if cond != 0 {
			return m.eval(t, scope, n.Then)
		}
		return m.eval(t, scope, n.Else)

	case *mir.FrameAddr:
		return t.frame, nil

	case *mir.HookCall:
		args, err := m.evalList(t, scope, n.Args)
		if err != nil {
			return 0, err
		}
		return m.hook(t, n.Sym, args)

	case *mir.FuncDef, *mir.Unit:
		return 0, fmt.Errorf("interp: definition in expression position")
	}
	return 0, fmt.Errorf("interp: unknown node type %T", n)
}

func (m *Machine) evalList(t *thread, scope *env, list []mir.Node) ([]uint64, error) {
	vals := make([]uint64, len(list))
	for i, e := range list {
		v, err := m.eval(t, scope, e)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// hook routes an inserted hook call to the Hooks implementation based on
// the symbol's kind in the hook table.
func (m *Machine) hook(t *thread, sym string, args []uint64) (uint64, error) {
	kind, width := codegen.Classify(sym)
	switch kind {
	case codegen.HookFuncEntry:
		if err := wantArgs(sym, args, 1); err != nil {
			return 0, err
		}
		m.hooks.FuncEntry(t.id, args[0])
	case codegen.HookFuncExit:
		if err := wantArgs(sym, args, 1); err != nil {
			return 0, err
		}
		m.hooks.FuncExit(t.id, args[0])
	case codegen.HookRead:
		if err := wantArgs(sym, args, 1); err != nil {
			return 0, err
		}
		m.hooks.Read(t.id, args[0], width)
	case codegen.HookWrite:
		if err := wantArgs(sym, args, 1); err != nil {
			return 0, err
		}
		m.hooks.Write(t.id, args[0], width)
	case codegen.HookReadRange:
		if err := wantArgs(sym, args, 2); err != nil {
			return 0, err
		}
		m.hooks.ReadRange(t.id, args[0], args[1])
	case codegen.HookWriteRange:
		if err := wantArgs(sym, args, 2); err != nil {
			return 0, err
		}
		m.hooks.WriteRange(t.id, args[0], args[1])
	case codegen.HookAtomicLoad:
		if err := wantArgs(sym, args, 2); err != nil {
			return 0, err
		}
		return m.hooks.AtomicLoad(t.id, args[0], width, int64(args[1])), nil
	case codegen.HookAtomicStore:
		if err := wantArgs(sym, args, 3); err != nil {
			return 0, err
		}
		m.hooks.AtomicStore(t.id, args[0], args[1], width, int64(args[2]))
	default:
		return 0, fmt.Errorf("interp: unknown hook symbol %q", sym)
	}
	return 0, nil
}

func wantArgs(sym string, args []uint64, n int) error {
	if len(args) != n {
		return fmt.Errorf("interp: hook %s takes %d arguments, got %d", sym, n, len(args))
	}
	return nil
}

func evalPrim(op string, args []uint64) (uint64, error) {
	switch op {
	case "add", "mul":
		acc := uint64(0)
		if op == "mul" {
			acc = 1
		}
		for _, a := range args {
			if op == "add" {
				acc += a
			} else {
				acc *= a
			}
		}
		return acc, nil
	}

	if len(args) != 2 {
		return 0, fmt.Errorf("interp: prim %s takes 2 arguments, got %d", op, len(args))
	}
	a, b := args[0], args[1]
	switch op {
	case "sub":
		return a - b, nil
	case "div":
		if b == 0 {
			return 0, fmt.Errorf("interp: division by zero")
		}
		return a / b, nil
	case "mod":
		if b == 0 {
			return 0, fmt.Errorf("interp: division by zero")
		}
		return a % b, nil
	case "and":
		return a & b, nil
	case "or":
		return a | b, nil
	case "xor":
		return a ^ b, nil
	case "shl":
		return a << (b & 63), nil
	case "shr":
		return a >> (b & 63), nil
	case "eq":
		return boolWord(a == b), nil
	case "ne":
		return boolWord(a != b), nil
	case "lt":
		return boolWord(a < b), nil
	case "le":
		return boolWord(a <= b), nil
	case "gt":
		return boolWord(a > b), nil
	case "ge":
		return boolWord(a >= b), nil
	}
	return 0, fmt.Errorf("interp: unknown prim op %q", op)
}

func boolWord(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
