package report

import (
	"log"
	"strings"
	"sync"
)

// Printer buffers per-decision output so a unit's lines print as one block
// after the pass finishes rather than interleaving with other units. A nil
// Printer discards everything handed to it.
type Printer struct {
	mu    sync.Mutex
	lines []string
}

func NewPrinter() *Printer {
	return &Printer{}
}

// Add records one line. The position may be empty, in which case it is
// omitted.
func (p *Printer) Add(header, pos, message string) {
	if p == nil {
		return
	}

	b := strings.Builder{}
	b.WriteString(header)
	b.WriteByte(':')
	b.WriteByte(' ')

	if pos != "" {
		b.WriteString(pos)
		b.WriteByte(' ')
	}
	b.WriteString(message)

	p.mu.Lock()
	p.lines = append(p.lines, b.String())
	p.mu.Unlock()
}

// Flush logs all buffered lines and clears the buffer.
func (p *Printer) Flush() {
	if p == nil {
		return
	}

	p.mu.Lock()
	lines := p.lines
	p.lines = nil
	p.mu.Unlock()

	for _, l := range lines {
		log.Println(l)
	}
}
