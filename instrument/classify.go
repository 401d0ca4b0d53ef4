package instrument

import (
	"fmt"

	"github.com/loom-lang/loom-race-instrumentation/internal/codegen"
	"github.com/loom-lang/loom-race-instrumentation/mir"
)

// classification describes how one access gets observed.
type classification struct {
	skip    bool
	atomic  bool
	sym     string
	generic bool // sym is a range hook and wants a size argument
}

// classifyLoad applies the selection rules in priority order: atomic
// accesses first, then the immutable skip, then plain instrumentation by
// width. Loads that reach the pass without a mutability flag lost their
// metadata upstream, which is fatal.
func classifyLoad(n *mir.Load) (classification, error) {
	if n.Width <= 0 {
		return classification{}, fmt.Errorf("%w: load has width %d", ErrUnknownAccessKind, n.Width)
	}
	if n.Atomic {
		return atomicLoadClass(n.Width), nil
	}
	switch n.Mut {
	case mir.Immutable:
		return classification{skip: true}, nil
	case mir.Mutable:
		sym, generic := codegen.ReadHook(n.Width)
		return classification{sym: sym, generic: generic}, nil
	}
	return classification{}, fmt.Errorf("%w: load carries no mutability flag", ErrUnknownAccessKind)
}

// classifyStore mirrors classifyLoad for writes: atomic first, then the
// initialization skip, then plain instrumentation by width.
func classifyStore(n *mir.Store) (classification, error) {
	if n.Width <= 0 {
		return classification{}, fmt.Errorf("%w: store has width %d", ErrUnknownAccessKind, n.Width)
	}
	if n.Atomic {
		return atomicStoreClass(n.Width), nil
	}
	switch n.Kind {
	case mir.Initialization:
		return classification{skip: true}, nil
	case mir.Assignment:
		sym, generic := codegen.WriteHook(n.Width)
		return classification{sym: sym, generic: generic}, nil
	}
	return classification{}, fmt.Errorf("%w: store carries no initialization flag", ErrUnknownAccessKind)
}

// checkAddr confirms the address expression leaves a word value for the
// hook. The nil case is caught before the walker descends; this covers
// expressions that evaluate to nothing, like an empty sequence.
func checkAddr(addr mir.Node) error {
	if !producesValue(addr) {
		return fmt.Errorf("%w: address expression produces no value", ErrMalformedAddress)
	}
	return nil
}

// producesValue reports whether evaluating n leaves a value behind for
// the surrounding expression.
func producesValue(n mir.Node) bool {
	for {
		switch v := n.(type) {
		case nil:
			return false
		case *mir.Seq:
			if len(v.List) == 0 {
				return false
			}
			n = v.List[len(v.List)-1]
		case *mir.Let:
			n = v.Body
		case *mir.If:
			if !producesValue(v.Then) {
				return false
			}
			n = v.Else
		case *mir.FuncDef, *mir.Unit:
			return false
		default:
			return true
		}
	}
}
