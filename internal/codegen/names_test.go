package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamer_rolesShareOneCounter(t *testing.T) {
	nm := NewNamer(nil)
	assert.Equal(t, ".t0", nm.Addr())
	assert.Equal(t, ".v1", nm.Value())
	assert.Equal(t, ".r2", nm.Result())
	assert.Equal(t, ".a3", nm.Arg())
	assert.Equal(t, ".t4", nm.Addr())
}

func TestNamer_skipsUsedNames(t *testing.T) {
	nm := NewNamer(map[string]bool{
		".t0": true,
		".t1": true,
		".v2": true,
	})
	assert.Equal(t, ".t2", nm.Addr(), "first two candidates are taken")
	assert.Equal(t, ".v3", nm.Value())
	assert.Equal(t, ".t4", nm.Addr())
}

func TestNamer_roleCollisionOnlyCountsOwnPrefix(t *testing.T) {
	// .t0 is taken but .v0 is not; the value role may not reuse the
	// counter position the address role skipped.
	nm := NewNamer(map[string]bool{".v0": true})
	assert.Equal(t, ".t0", nm.Addr())
	assert.Equal(t, ".v1", nm.Value())
}
