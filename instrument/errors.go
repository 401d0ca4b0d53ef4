package instrument

import (
	"errors"
	"fmt"

	"github.com/loom-lang/loom-race-instrumentation/mir"
)

// Fatal classification failures. Both mark invariant violations in the
// tree handed to the pass; the pass aborts the whole unit rather than
// guess a repair.
var (
	// ErrMalformedAddress reports an access operand that cannot be
	// reified to the word value a hook expects.
	ErrMalformedAddress = errors.New("malformed address operand")

	// ErrUnknownAccessKind reports an access node missing the metadata
	// the classifier needs.
	ErrUnknownAccessKind = errors.New("unknown access kind")
)

// Error ties a fatal instrumentation failure to the function and source
// position it was found at.
type Error struct {
	Func string
	Pos  mir.Pos
	Err  error
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("instrument %s: function %s: %v", e.Pos, e.Func, e.Err)
	}
	return fmt.Sprintf("instrument: function %s: %v", e.Func, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
