// Package mir models the Loom compiler's mid-level intermediate
// representation as an expression tree. The node set is closed: every kind is
// declared in this file and every consumer is expected to switch over all of
// them, so adding a kind forces a compile-time sweep of the walkers and
// printers rather than a silent omission at runtime.
//
// Trees are immutable by convention. Passes never modify a node in place;
// they build replacements with Apply and leave the input tree intact.
package mir

// Node is implemented by every MIR node kind.
type Node interface {
	isNode()
}

// Mutability records whether a loaded location can legally be written after
// construction. The front end stamps it on every non-atomic load.
type Mutability int

const (
	// MutUnknown marks a load the front end failed to classify. The
	// instrumentation pass treats it as a malformed input, not as a guess.
	MutUnknown Mutability = iota
	// Immutable loads can never race: no write to the location is legal
	// after construction.
	Immutable
	// Mutable loads read locations that assignment stores may target.
	Mutable
)

func (m Mutability) String() string {
	switch m {
	case Immutable:
		return "imm"
	case Mutable:
		return "mut"
	}
	return "unknown"
}

// StoreKind distinguishes the first store into a freshly allocated, still
// unpublished object from a store that mutates memory other threads may
// already see.
type StoreKind int

const (
	// StoreUnknown marks a store the front end failed to classify.
	StoreUnknown StoreKind = iota
	// Initialization stores establish the first value of an object that is
	// not yet reachable by any other thread; the allocation protocol
	// publishes the object only after they complete.
	Initialization
	// Assignment stores mutate memory that may already be shared.
	Assignment
)

func (k StoreKind) String() string {
	switch k {
	case Initialization:
		return "init"
	case Assignment:
		return "assign"
	}
	return "unknown"
}

// Const is a word constant.
type Const struct {
	Value int64
}

// Var references a parameter, a let-bound name, or a front-end temporary.
type Var struct {
	Name string
}

// Let binds Name to the value of Bind for the evaluation of Body.
// Bind evaluates before Body.
type Let struct {
	Name string
	Bind Node
	Body Node
}

// Prim applies a primitive operator to its arguments. Arguments evaluate
// left to right. Primitives never transfer control, so a Prim in tail
// position is an ordinary trailing value, not a tail call.
type Prim struct {
	Op   string
	Args []Node
}

// Call invokes the function named Sym. Arguments evaluate left to right.
// A Call in tail position may never return to the calling frame.
type Call struct {
	Sym  string
	Args []Node
	Pos  Pos
}

// Load reads Width bytes from the address Addr evaluates to.
type Load struct {
	Addr   Node
	Width  int
	Mut    Mutability
	Atomic bool
	Pos    Pos
}

// Store writes the value of Val into Width bytes at Addr. Addr evaluates
// before Val, and the store yields the stored value. Stores carry no
// mutability flag; mutability is a load-side concept.
type Store struct {
	Addr   Node
	Val    Node
	Width  int
	Kind   StoreKind
	Atomic bool
	Pos    Pos
}

// Seq evaluates its expressions in order and yields the last value.
type Seq struct {
	List []Node
}

// If evaluates Then when Cond yields a nonzero word, Else otherwise.
// Both branches are always present; the front end synthesizes a unit Else
// when the source omits one.
type If struct {
	Cond Node
	Then Node
	Else Node
}

// FrameAddr is the placeholder for the frame identity argument of the
// entry and exit hooks. The pass only marks the position; the codegen stage
// resolves it to the real frame value.
type FrameAddr struct{}

// HookCall is an inserted race-detector hook invocation. Only the
// instrumentation pass creates these; evaluators that model hooks as no-ops
// yield the unit word for them.
type HookCall struct {
	Sym  string
	Args []Node
}

// FuncDef is a function definition. NoRace reflects the front-end pragma
// that exempts a function from instrumentation entirely.
type FuncDef struct {
	Name   string
	Params []string
	Body   Node
	NoRace bool
	Pos    Pos
}

// Unit is one compilation unit: the granularity at which the
// instrumentation pass runs and fails.
type Unit struct {
	Name  string
	Funcs []*FuncDef
}

func (*Const) isNode()     {}
func (*Var) isNode()       {}
func (*Let) isNode()       {}
func (*Prim) isNode()      {}
func (*Call) isNode()      {}
func (*Load) isNode()      {}
func (*Store) isNode()     {}
func (*Seq) isNode()       {}
func (*If) isNode()        {}
func (*FrameAddr) isNode() {}
func (*HookCall) isNode()  {}
func (*FuncDef) isNode()   {}
func (*Unit) isNode()      {}
