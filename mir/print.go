package mir

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Print renders n as an S-expression. A node stays on one line as long as
// no binding or control form (let, seq, if, func, unit) sits below it;
// otherwise its children are laid out one per line so instrumented trees
// diff cleanly.
func Print(n Node) string {
	var b strings.Builder
	printNode(&b, n, 0)
	return b.String()
}

// Fprint writes Print(n) and a trailing newline to w.
func Fprint(w io.Writer, n Node) error {
	if _, err := io.WriteString(w, Print(n)); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func printNode(b *strings.Builder, n Node, depth int) {
	switch n := n.(type) {
	case *Const:
		b.WriteString(strconv.FormatInt(n.Value, 10))
		return
	case *Var:
		b.WriteString(n.Name)
		return
	case *FrameAddr:
		b.WriteString("(frameaddr)")
		return
	}

	b.WriteString(head(n))
	kids := children(n)
	if len(kids) == 0 {
		b.WriteString(")")
		return
	}
	if flat(n) {
		for _, kid := range kids {
			b.WriteString(" ")
			printNode(b, kid, depth)
		}
		b.WriteString(")")
		return
	}
	ind := strings.Repeat("  ", depth+1)
	for _, kid := range kids {
		b.WriteString("\n")
		b.WriteString(ind)
		printNode(b, kid, depth+1)
	}
	b.WriteString(")")
}

// head renders a node's tag and immediate attributes, without children and
// without the closing paren.
func head(n Node) string {
	switch n := n.(type) {
	case *Let:
		return "(let " + n.Name
	case *Prim:
		return "(prim " + n.Op
	case *Call:
		return "(call " + n.Sym
	case *Load:
		return "(load " + strconv.Itoa(n.Width) + " " + accessMode(n.Atomic, n.Mut.String())
	case *Store:
		return "(store " + strconv.Itoa(n.Width) + " " + accessMode(n.Atomic, n.Kind.String())
	case *Seq:
		return "(seq"
	case *If:
		return "(if"
	case *HookCall:
		return "(hook " + n.Sym
	case *FuncDef:
		h := "(func (name " + n.Name + ") (params"
		if len(n.Params) > 0 {
			h += " " + strings.Join(n.Params, " ")
		}
		h += ")"
		if n.NoRace {
			h += " (norace)"
		}
		return h
	case *Unit:
		return "(unit " + n.Name
	}
	panic(fmt.Sprintf("mir: unknown node type %T", n))
}

func accessMode(atomic bool, mode string) string {
	if atomic {
		return "atomic"
	}
	return mode
}

// flat reports whether n can print on a single line: true unless a binding
// or control form appears anywhere below it.
func flat(n Node) bool {
	ok := true
	Visit(n, func(k Node) {
		if k == n {
			return
		}
		switch k.(type) {
		case *Let, *Seq, *If, *FuncDef, *Unit:
			ok = false
		}
	})
	return ok
}
