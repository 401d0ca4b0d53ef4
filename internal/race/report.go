package race

import "fmt"

// AccessKind says which side of a conflict an access was on.
type AccessKind int

const (
	AccessRead AccessKind = iota
	AccessWrite
)

func (k AccessKind) String() string {
	switch k {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	}
	return "unknown"
}

// Access describes one side of a reported race.
type Access struct {
	Tid   int
	Kind  AccessKind
	Addr  uint64
	Width int
	Frame uint64 // active frame when the access ran, zero outside any call
}

// Report pairs two conflicting accesses that no synchronization orders.
// Addr is the first byte both sides touch; the accesses themselves may
// start earlier and overlap only partially.
type Report struct {
	Addr   uint64
	First  Access
	Second Access
}

func (r Report) String() string {
	return fmt.Sprintf("race at 0x%x: %s of %d bytes at 0x%x by thread %d conflicts with earlier %s of %d bytes at 0x%x by thread %d",
		r.Addr,
		r.Second.Kind, r.Second.Width, r.Second.Addr, r.Second.Tid,
		r.First.Kind, r.First.Width, r.First.Addr, r.First.Tid)
}
