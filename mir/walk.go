package mir

import "fmt"

// Apply traverses the tree rooted at root in source evaluation order and
// returns a rebuilt tree. It is modeled on dstutil.Apply, adapted to
// immutable value rebuilding: pre runs before a node's children are visited
// and may return false to keep the whole subtree untouched; post runs after
// the children have been rebuilt and may return a replacement for the node.
// Children passed to post are the already-rebuilt ones. Replacement subtrees
// returned by post are not revisited.
//
// Either callback may be nil. Nodes whose children are all unchanged are
// returned as-is rather than copied, so an identity Apply returns root
// itself.
//
// The traversal uses an explicit work stack instead of native recursion, so
// tree depth is bounded by available heap rather than goroutine stack.
func Apply(root Node, pre func(Node) bool, post func(Node) Node) Node {
	type frame struct {
		node  Node
		enter bool
		nkids int
	}

	work := make([]frame, 0, 64)
	vals := make([]Node, 0, 64)
	work = append(work, frame{node: root, enter: true})

	for len(work) > 0 {
		fr := work[len(work)-1]
		work = work[:len(work)-1]

		if fr.enter {
			if pre != nil && !pre(fr.node) {
				vals = append(vals, fr.node)
				continue
			}
			kids := children(fr.node)
			work = append(work, frame{node: fr.node, nkids: len(kids)})
			// Push in reverse so the leftmost child pops first and the
			// value stack fills in evaluation order.
			for i := len(kids) - 1; i >= 0; i-- {
				work = append(work, frame{node: kids[i], enter: true})
			}
			continue
		}

		rebuilt := rebuild(fr.node, vals[len(vals)-fr.nkids:])
		vals = vals[:len(vals)-fr.nkids]
		if post != nil {
			rebuilt = post(rebuilt)
		}
		vals = append(vals, rebuilt)
	}

	return vals[0]
}

// Rewrite rebuilds the tree bottom-up, replacing each node with f's result
// after its children have been rewritten.
func Rewrite(root Node, f func(Node) Node) Node {
	return Apply(root, nil, f)
}

// Visit invokes fn for root and every node below it, parents before
// children, children in evaluation order.
func Visit(root Node, fn func(Node)) {
	Apply(root, func(n Node) bool { fn(n); return true }, nil)
}

// children returns a node's direct children in source evaluation order.
// Nil nodes are tolerated as leaves so traversal still works on trees with
// missing operands; the pass rejects those before rewriting anything.
func children(n Node) []Node {
	switch n := n.(type) {
	case nil:
		return nil
	case *Const, *Var, *FrameAddr:
		return nil
	case *Let:
		return []Node{n.Bind, n.Body}
	case *Prim:
		return n.Args
	case *Call:
		return n.Args
	case *Load:
		return []Node{n.Addr}
	case *Store:
		return []Node{n.Addr, n.Val}
	case *Seq:
		return n.List
	case *If:
		return []Node{n.Cond, n.Then, n.Else}
	case *HookCall:
		return n.Args
	case *FuncDef:
		return []Node{n.Body}
	case *Unit:
		kids := make([]Node, len(n.Funcs))
		for i, f := range n.Funcs {
			kids[i] = f
		}
		return kids
	}
	panic(fmt.Sprintf("mir: unknown node type %T", n))
}

// rebuild reassembles n with the given children, reusing n when nothing
// changed.
func rebuild(n Node, kids []Node) Node {
	switch n := n.(type) {
	case nil:
		return nil
	case *Const, *Var, *FrameAddr:
		return n
	case *Let:
		if kids[0] == n.Bind && kids[1] == n.Body {
			return n
		}
		return &Let{Name: n.Name, Bind: kids[0], Body: kids[1]}
	case *Prim:
		if sameNodes(kids, n.Args) {
			return n
		}
		return &Prim{Op: n.Op, Args: copyNodes(kids)}
	case *Call:
		if sameNodes(kids, n.Args) {
			return n
		}
		return &Call{Sym: n.Sym, Args: copyNodes(kids), Pos: n.Pos}
	case *Load:
		if kids[0] == n.Addr {
			return n
		}
		return &Load{Addr: kids[0], Width: n.Width, Mut: n.Mut, Atomic: n.Atomic, Pos: n.Pos}
	case *Store:
		if kids[0] == n.Addr && kids[1] == n.Val {
			return n
		}
		return &Store{Addr: kids[0], Val: kids[1], Width: n.Width, Kind: n.Kind, Atomic: n.Atomic, Pos: n.Pos}
	case *Seq:
		if sameNodes(kids, n.List) {
			return n
		}
		return &Seq{List: copyNodes(kids)}
	case *If:
		if kids[0] == n.Cond && kids[1] == n.Then && kids[2] == n.Else {
			return n
		}
		return &If{Cond: kids[0], Then: kids[1], Else: kids[2]}
	case *HookCall:
		if sameNodes(kids, n.Args) {
			return n
		}
		return &HookCall{Sym: n.Sym, Args: copyNodes(kids)}
	case *FuncDef:
		if kids[0] == n.Body {
			return n
		}
		return &FuncDef{Name: n.Name, Params: n.Params, Body: kids[0], NoRace: n.NoRace, Pos: n.Pos}
	case *Unit:
		same := true
		funcs := make([]*FuncDef, len(kids))
		for i, k := range kids {
			f, ok := k.(*FuncDef)
			if !ok {
				panic(fmt.Sprintf("mir: unit function replaced with %T", k))
			}
			funcs[i] = f
			if f != n.Funcs[i] {
				same = false
			}
		}
		if same {
			return n
		}
		return &Unit{Name: n.Name, Funcs: funcs}
	}
	panic(fmt.Sprintf("mir: unknown node type %T", n))
}

func sameNodes(a, b []Node) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func copyNodes(kids []Node) []Node {
	out := make([]Node, len(kids))
	copy(out, kids)
	return out
}
