package instrument

import (
	"github.com/loom-lang/loom-race-instrumentation/internal/codegen"
	"github.com/loom-lang/loom-race-instrumentation/mir"
)

// boundary wraps an instrumented body so the entry hook is the first
// evaluated expression and an exit hook sits on every exit path. Tail
// calls count as exits: their hook fires before control transfers, since
// the callee may never return to this frame.
func boundary(body mir.Node, nm *codegen.Namer) mir.Node {
	tails := tailNodes(body)
	wrapped := mir.Apply(body, nil, func(n mir.Node) mir.Node {
		if !tails[n] {
			return n
		}
		switch n := n.(type) {
		case *mir.Call:
			return codegen.ExitTailCall(n, nm)
		case *mir.Seq:
			// Only the empty sequence lands here; keeping it last
			// preserves the absent result.
			return &mir.Seq{List: []mir.Node{codegen.ExitHook(), n}}
		}
		return codegen.ExitValue(n, nm)
	})
	return &mir.Seq{List: []mir.Node{codegen.EntryHook(), wrapped}}
}

// tailNodes collects the expressions whose value becomes the function
// result. Bindings and sequences forward to their final subexpression;
// a branch contributes one tail per arm.
func tailNodes(body mir.Node) map[mir.Node]bool {
	tails := make(map[mir.Node]bool)
	work := []mir.Node{body}
	for len(work) > 0 {
		n := work[len(work)-1]
		work = work[:len(work)-1]
		switch v := n.(type) {
		case *mir.Let:
			work = append(work, v.Body)
		case *mir.Seq:
			if len(v.List) == 0 {
				tails[n] = true
				continue
			}
			work = append(work, v.List[len(v.List)-1])
		case *mir.If:
			work = append(work, v.Then, v.Else)
		default:
			tails[n] = true
		}
	}
	return tails
}
