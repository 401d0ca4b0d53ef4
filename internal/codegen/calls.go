package codegen

import (
	"fmt"

	"github.com/loom-lang/loom-race-instrumentation/mir"
)

// Simple reports whether an expression can appear twice in a rewritten
// access without re-running side effects. Only bare variables and
// constants qualify; everything else binds to a fresh local first.
func Simple(n mir.Node) bool {
	switch n.(type) {
	case *mir.Var, *mir.Const:
		return true
	}
	return false
}

func cloneSimple(n mir.Node) mir.Node {
	switch n := n.(type) {
	case *mir.Var:
		return &mir.Var{Name: n.Name}
	case *mir.Const:
		return &mir.Const{Value: n.Value}
	}
	panic(fmt.Sprintf("codegen: clone of non-simple node %T", n))
}

// AccessHook builds the hook call observing one sized access. Generic
// range hooks carry the width as a trailing size argument.
func AccessHook(sym string, addr mir.Node, width int, generic bool) *mir.HookCall {
	args := []mir.Node{addr}
	if generic {
		args = append(args, &mir.Const{Value: int64(width)})
	}
	return &mir.HookCall{Sym: sym, Args: args}
}

// InstrumentedLoad rewrites a plain load so the hook fires immediately
// before the access, against the same address value. Non-trivial address
// expressions bind to a fresh local first so they evaluate exactly once.
func InstrumentedLoad(n *mir.Load, sym string, generic bool, nm *Namer) mir.Node {
	if Simple(n.Addr) {
		return &mir.Seq{List: []mir.Node{
			AccessHook(sym, cloneSimple(n.Addr), n.Width, generic),
			n,
		}}
	}
	tmp := nm.Addr()
	return &mir.Let{
		Name: tmp,
		Bind: n.Addr,
		Body: &mir.Seq{List: []mir.Node{
			AccessHook(sym, &mir.Var{Name: tmp}, n.Width, generic),
			&mir.Load{Addr: &mir.Var{Name: tmp}, Width: n.Width, Mut: n.Mut, Atomic: n.Atomic, Pos: n.Pos},
		}},
	}
}

// InstrumentedStore rewrites a plain store so the hook fires immediately
// before the write. Both operands bind to locals when needed, keeping the
// source evaluation order of address before value; nothing then evaluates
// between the hook and the store.
func InstrumentedStore(n *mir.Store, sym string, generic bool, nm *Namer) mir.Node {
	addr, val, binds := bindOperands(n.Addr, n.Val, nm)
	body := &mir.Seq{List: []mir.Node{
		AccessHook(sym, addr, n.Width, generic),
		&mir.Store{Addr: cloneSimple(addr), Val: cloneSimple(val), Width: n.Width, Kind: n.Kind, Atomic: n.Atomic, Pos: n.Pos},
	}}
	return wrapLets(binds, body)
}

// InstrumentedAtomicLoad places the acquire hook before an atomic load.
// The hook result is discarded; the original access stays authoritative.
func InstrumentedAtomicLoad(n *mir.Load, sym string, nm *Namer) mir.Node {
	addr := n.Addr
	var binds []*mir.Let
	if !Simple(addr) {
		tmp := nm.Addr()
		binds = append(binds, &mir.Let{Name: tmp, Bind: addr})
		addr = &mir.Var{Name: tmp}
	} else {
		addr = cloneSimple(addr)
	}
	body := &mir.Seq{List: []mir.Node{
		&mir.HookCall{Sym: sym, Args: []mir.Node{addr, &mir.Const{Value: OrderAcquire}}},
		&mir.Load{Addr: cloneSimple(addr), Width: n.Width, Mut: n.Mut, Atomic: n.Atomic, Pos: n.Pos},
	}}
	return wrapLets(binds, body)
}

// InstrumentedAtomicStore places the release hook before an atomic store.
// Atomic hooks take the value too, so it is always observable pre-bound.
func InstrumentedAtomicStore(n *mir.Store, sym string, nm *Namer) mir.Node {
	addr, val, binds := bindOperands(n.Addr, n.Val, nm)
	body := &mir.Seq{List: []mir.Node{
		&mir.HookCall{Sym: sym, Args: []mir.Node{addr, val, &mir.Const{Value: OrderRelease}}},
		&mir.Store{Addr: cloneSimple(addr), Val: cloneSimple(val), Width: n.Width, Kind: n.Kind, Atomic: n.Atomic, Pos: n.Pos},
	}}
	return wrapLets(binds, body)
}

// bindOperands reifies a store's address and value operands, in that
// order, returning the expressions the rewritten access should reference
// and the bindings still missing their bodies.
func bindOperands(addr, val mir.Node, nm *Namer) (mir.Node, mir.Node, []*mir.Let) {
	var binds []*mir.Let
	if Simple(addr) {
		addr = cloneSimple(addr)
	} else {
		tmp := nm.Addr()
		binds = append(binds, &mir.Let{Name: tmp, Bind: addr})
		addr = &mir.Var{Name: tmp}
	}
	if Simple(val) {
		val = cloneSimple(val)
	} else {
		tmp := nm.Value()
		binds = append(binds, &mir.Let{Name: tmp, Bind: val})
		val = &mir.Var{Name: tmp}
	}
	return addr, val, binds
}

// EntryHook announces the function to the runtime, passing the frame
// identity used for report stacks.
func EntryHook() *mir.HookCall {
	return &mir.HookCall{Sym: FuncEntry, Args: []mir.Node{&mir.FrameAddr{}}}
}

// ExitHook announces that the frame is about to be left.
func ExitHook() *mir.HookCall {
	return &mir.HookCall{Sym: FuncExit, Args: []mir.Node{&mir.FrameAddr{}}}
}

// ExitValue wraps a non-call tail expression so the exit hook fires after
// the result is computed and the result is still the value returned.
func ExitValue(result mir.Node, nm *Namer) mir.Node {
	if Simple(result) {
		return &mir.Seq{List: []mir.Node{ExitHook(), cloneSimple(result)}}
	}
	tmp := nm.Result()
	return &mir.Let{
		Name: tmp,
		Bind: result,
		Body: &mir.Seq{List: []mir.Node{ExitHook(), &mir.Var{Name: tmp}}},
	}
}

// ExitTailCall rewrites a call in tail position: arguments bind to locals
// first, then the exit hook fires, then control transfers to the callee,
// which may never return to this frame.
func ExitTailCall(call *mir.Call, nm *Namer) mir.Node {
	var binds []*mir.Let
	args := make([]mir.Node, len(call.Args))
	for i, a := range call.Args {
		if Simple(a) {
			args[i] = cloneSimple(a)
			continue
		}
		tmp := nm.Arg()
		binds = append(binds, &mir.Let{Name: tmp, Bind: a})
		args[i] = &mir.Var{Name: tmp}
	}
	body := &mir.Seq{List: []mir.Node{
		ExitHook(),
		&mir.Call{Sym: call.Sym, Args: args, Pos: call.Pos},
	}}
	return wrapLets(binds, body)
}

// wrapLets nests body under partially built lets, outermost first.
func wrapLets(binds []*mir.Let, body mir.Node) mir.Node {
	out := body
	for i := len(binds) - 1; i >= 0; i-- {
		binds[i].Body = out
		out = binds[i]
	}
	return out
}
