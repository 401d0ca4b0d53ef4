// Package instrument rewrites MIR units so every relevant memory access
// and every function boundary reports to the race runtime.
//
// The pass is a pure tree transformation: it runs single-threaded per
// unit, takes no locks, and either returns a fully instrumented unit or
// an error, never a partial tree. Addresses handed to the hooks are raw
// word values, so an object moved by heap compaction between two accesses
// changes its shadow key; races across a relocation can go unreported.
// This is a known soundness gap, not repaired here.
package instrument

import (
	"errors"
	"fmt"

	"github.com/loom-lang/loom-race-instrumentation/internal/codegen"
	"github.com/loom-lang/loom-race-instrumentation/internal/report"
	"github.com/loom-lang/loom-race-instrumentation/mir"
)

// Config adjusts one pass run. The pass never modifies it; the zero value
// instruments silently.
type Config struct {
	// Debug records one line per instrumentation decision.
	Debug bool

	// Reporter receives debug lines. A nil Reporter discards them.
	Reporter *report.Printer
}

// Unit instruments every function of u. The input tree is not modified.
// The first fatal failure aborts the whole unit: the returned unit is nil
// and no partially instrumented tree escapes.
func Unit(cfg Config, u *mir.Unit) (*mir.Unit, Stats, error) {
	var stats Stats
	funcs := make([]*mir.FuncDef, len(u.Funcs))
	for i, f := range u.Funcs {
		nf, s, err := Func(cfg, f)
		stats.Add(s)
		if err != nil {
			return nil, stats, err
		}
		funcs[i] = nf
	}
	return &mir.Unit{Name: u.Name, Funcs: funcs}, stats, nil
}

// Func instruments a single function definition: memory accesses first,
// then the entry and exit boundary hooks. NoRace definitions come back
// untouched.
func Func(cfg Config, f *mir.FuncDef) (*mir.FuncDef, Stats, error) {
	if f.NoRace {
		debugf(cfg, f.Pos, "function %s: norace, left untouched", f.Name)
		return f, Stats{SkippedFuncs: 1}, nil
	}
	if f.Body == nil {
		return nil, Stats{}, &Error{Func: f.Name, Pos: f.Pos, Err: errors.New("function has no body")}
	}

	p := &pass{cfg: cfg, fn: f.Name, nm: codegen.NewNamer(usedNames(f))}
	body := mir.Apply(f.Body, p.pre, p.post)
	if p.err != nil {
		return nil, p.stats, p.err
	}
	body = boundary(body, p.nm)
	p.stats.Functions++

	return &mir.FuncDef{
		Name:   f.Name,
		Params: f.Params,
		Body:   body,
		Pos:    f.Pos,
	}, p.stats, nil
}

// pass carries the per-function rewrite state threaded through the
// walker callbacks.
type pass struct {
	cfg   Config
	fn    string
	nm    *codegen.Namer
	stats Stats
	err   error
}

// pre rejects access nodes with missing operands before the walker
// descends into them, and stops descending entirely once the pass failed.
func (p *pass) pre(n mir.Node) bool {
	if p.err != nil {
		return false
	}
	switch n := n.(type) {
	case *mir.Load:
		if n.Addr == nil {
			p.fail(n.Pos, fmt.Errorf("%w: load has no address expression", ErrMalformedAddress))
			return false
		}
	case *mir.Store:
		if n.Addr == nil || n.Val == nil {
			p.fail(n.Pos, fmt.Errorf("%w: store is missing an operand", ErrMalformedAddress))
			return false
		}
	}
	return true
}

// post rewrites access nodes bottom-up; replacement subtrees are not
// revisited, so inserted hooks never instrument themselves.
func (p *pass) post(n mir.Node) mir.Node {
	if p.err != nil {
		return n
	}
	switch n := n.(type) {
	case *mir.Load:
		return p.load(n)
	case *mir.Store:
		return p.store(n)
	}
	return n
}

func (p *pass) load(n *mir.Load) mir.Node {
	cls, err := classifyLoad(n)
	if err != nil {
		p.fail(n.Pos, err)
		return n
	}
	if cls.skip {
		p.stats.SkippedLoads++
		p.debugf(n.Pos, "load width %d skipped: immutable", n.Width)
		return n
	}
	if err := checkAddr(n.Addr); err != nil {
		p.fail(n.Pos, err)
		return n
	}
	if cls.atomic {
		p.stats.AtomicLoads++
		p.debugf(n.Pos, "atomic load width %d -> %s", n.Width, cls.sym)
		return codegen.InstrumentedAtomicLoad(n, cls.sym, p.nm)
	}
	if cls.generic {
		p.stats.RangeAccesses++
	}
	p.stats.PlainLoads++
	p.debugf(n.Pos, "load width %d -> %s", n.Width, cls.sym)
	return codegen.InstrumentedLoad(n, cls.sym, cls.generic, p.nm)
}

func (p *pass) store(n *mir.Store) mir.Node {
	cls, err := classifyStore(n)
	if err != nil {
		p.fail(n.Pos, err)
		return n
	}
	if cls.skip {
		p.stats.SkippedStores++
		p.debugf(n.Pos, "store width %d skipped: initialization", n.Width)
		return n
	}
	if err := checkAddr(n.Addr); err != nil {
		p.fail(n.Pos, err)
		return n
	}
	if cls.atomic {
		p.stats.AtomicStores++
		p.debugf(n.Pos, "atomic store width %d -> %s", n.Width, cls.sym)
		return codegen.InstrumentedAtomicStore(n, cls.sym, p.nm)
	}
	if cls.generic {
		p.stats.RangeAccesses++
	}
	p.stats.PlainStores++
	p.debugf(n.Pos, "store width %d -> %s", n.Width, cls.sym)
	return codegen.InstrumentedStore(n, cls.sym, cls.generic, p.nm)
}

func (p *pass) fail(pos mir.Pos, err error) {
	if p.err == nil {
		p.err = &Error{Func: p.fn, Pos: pos, Err: err}
	}
}

func (p *pass) debugf(pos mir.Pos, format string, a ...any) {
	debugf(p.cfg, pos, "function "+p.fn+": "+format, a...)
}

func debugf(cfg Config, pos mir.Pos, format string, a ...any) {
	if !cfg.Debug {
		return
	}
	posStr := ""
	if pos.IsValid() {
		posStr = pos.String()
	}
	cfg.Reporter.Add("instrument", posStr, fmt.Sprintf(format, a...))
}

// usedNames collects every name the function mentions so fresh locals
// cannot collide with it.
func usedNames(f *mir.FuncDef) map[string]bool {
	used := make(map[string]bool)
	for _, param := range f.Params {
		used[param] = true
	}
	mir.Visit(f.Body, func(n mir.Node) {
		switch n := n.(type) {
		case *mir.Var:
			used[n.Name] = true
		case *mir.Let:
			used[n.Name] = true
		}
	})
	return used
}
