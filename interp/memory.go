package interp

// Memory is a flat byte-addressed store. Untouched bytes read as zero.
// Values wider than a word store their low eight bytes little-endian and
// zero-fill the rest.
type Memory struct {
	bytes map[uint64]byte
}

func NewMemory() *Memory {
	return &Memory{bytes: make(map[uint64]byte)}
}

// Read assembles width bytes starting at addr into a word.
func (m *Memory) Read(addr uint64, width int) uint64 {
	var v uint64
	for i := 0; i < width && i < 8; i++ {
		v |= uint64(m.bytes[addr+uint64(i)]) << (8 * i)
	}
	return v
}

// Write spreads val over width bytes starting at addr.
func (m *Memory) Write(addr uint64, width int, val uint64) {
	for i := 0; i < width; i++ {
		var b byte
		if i < 8 {
			b = byte(val >> (8 * i))
		}
		if b == 0 {
			delete(m.bytes, addr+uint64(i))
			continue
		}
		m.bytes[addr+uint64(i)] = b
	}
}
