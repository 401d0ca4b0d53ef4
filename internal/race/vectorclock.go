package race

import (
	"strconv"
	"strings"
)

// Clock tracks one logical time per thread. The index is the thread id;
// entries past the end read zero.
type Clock []uint64

// Get returns tid's time.
func (c Clock) Get(tid int) uint64 {
	if tid >= 0 && tid < len(c) {
		return c[tid]
	}
	return 0
}

// Set records tid's time.
func (c *Clock) Set(tid int, v uint64) {
	c.ensure(tid)
	(*c)[tid] = v
}

// Tick advances tid's local time.
func (c *Clock) Tick(tid int) {
	c.ensure(tid)
	(*c)[tid]++
}

// Join folds other in as a point-wise maximum. This is the
// synchronization step: after joining, everything other knew about is
// ordered before the owner's next event.
func (c *Clock) Join(other Clock) {
	c.ensure(len(other) - 1)
	for i, v := range other {
		if v > (*c)[i] {
			(*c)[i] = v
		}
	}
}

// LessOrEqual reports whether every entry of c is at or below other's,
// the happens-before check between two clocks.
func (c Clock) LessOrEqual(other Clock) bool {
	for i, v := range c {
		if v > other.Get(i) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (c Clock) Clone() Clock {
	out := make(Clock, len(c))
	copy(out, c)
	return out
}

func (c *Clock) ensure(tid int) {
	for len(*c) <= tid {
		*c = append(*c, 0)
	}
}

// String lists the non-zero entries as {tid:time, ...}.
func (c Clock) String() string {
	var parts []string
	for i, v := range c {
		if v != 0 {
			parts = append(parts, strconv.Itoa(i)+":"+strconv.FormatUint(v, 10))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
