package mir

import "fmt"

// Pos is a source position carried over from the front end. The zero value
// means the position is unknown, which is common for synthesized nodes.
type Pos struct {
	File string
	Line int
	Col  int
}

// IsValid reports whether the position identifies a source location.
func (p Pos) IsValid() bool {
	return p.File != "" && p.Line > 0
}

func (p Pos) String() string {
	if !p.IsValid() {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}
