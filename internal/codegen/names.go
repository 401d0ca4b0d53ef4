package codegen

import "strconv"

// Namer hands out fresh local names for one function. The role prefix
// keeps a binding's purpose readable in dumps; the shared counter keeps
// every name unique. Names already present in the function are skipped.
type Namer struct {
	next int
	used map[string]bool
}

func NewNamer(used map[string]bool) *Namer {
	return &Namer{used: used}
}

// Addr names a reified address.
func (nm *Namer) Addr() string { return nm.fresh("t") }

// Value names a pre-bound store value.
func (nm *Namer) Value() string { return nm.fresh("v") }

// Result names a function result held across the exit hook.
func (nm *Namer) Result() string { return nm.fresh("r") }

// Arg names a tail-call argument held across the exit hook.
func (nm *Namer) Arg() string { return nm.fresh("a") }

func (nm *Namer) fresh(role string) string {
	for {
		name := "." + role + strconv.Itoa(nm.next)
		nm.next++
		if !nm.used[name] {
			return name
		}
	}
}
