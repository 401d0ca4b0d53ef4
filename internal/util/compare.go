package util

import (
	"reflect"

	"github.com/loom-lang/loom-race-instrumentation/mir"
)

// AssertNodeEqual reports whether two trees are structurally identical.
// Source positions are ignored, so a reparsed or rebuilt tree compares
// equal to the original.
func AssertNodeEqual(a mir.Node, b mir.Node) bool {
	return compareNode(a, b)
}

func compareNode(a mir.Node, b mir.Node) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}

	switch a := a.(type) {
	case *mir.Const:
		b := b.(*mir.Const)
		return a.Value == b.Value
	case *mir.Var:
		b := b.(*mir.Var)
		return a.Name == b.Name
	case *mir.FrameAddr:
		return true
	case *mir.Let:
		b := b.(*mir.Let)
		return a.Name == b.Name && compareNode(a.Bind, b.Bind) && compareNode(a.Body, b.Body)
	case *mir.Prim:
		b := b.(*mir.Prim)
		return a.Op == b.Op && compareNodes(a.Args, b.Args)
	case *mir.Call:
		b := b.(*mir.Call)
		return a.Sym == b.Sym && compareNodes(a.Args, b.Args)
	case *mir.Load:
		b := b.(*mir.Load)
		return a.Width == b.Width && a.Mut == b.Mut && a.Atomic == b.Atomic &&
			compareNode(a.Addr, b.Addr)
	case *mir.Store:
		b := b.(*mir.Store)
		return a.Width == b.Width && a.Kind == b.Kind && a.Atomic == b.Atomic &&
			compareNode(a.Addr, b.Addr) && compareNode(a.Val, b.Val)
	case *mir.Seq:
		b := b.(*mir.Seq)
		return compareNodes(a.List, b.List)
	case *mir.If:
		b := b.(*mir.If)
		return compareNode(a.Cond, b.Cond) && compareNode(a.Then, b.Then) && compareNode(a.Else, b.Else)
	case *mir.HookCall:
		b := b.(*mir.HookCall)
		return a.Sym == b.Sym && compareNodes(a.Args, b.Args)
	case *mir.FuncDef:
		b := b.(*mir.FuncDef)
		if a.Name != b.Name || a.NoRace != b.NoRace || len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if a.Params[i] != b.Params[i] {
				return false
			}
		}
		return compareNode(a.Body, b.Body)
	case *mir.Unit:
		b := b.(*mir.Unit)
		if a.Name != b.Name || len(a.Funcs) != len(b.Funcs) {
			return false
		}
		for i := range a.Funcs {
			if !compareNode(a.Funcs[i], b.Funcs[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func compareNodes(a []mir.Node, b []mir.Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !compareNode(a[i], b[i]) {
			return false
		}
	}
	return true
}
