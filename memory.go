package autolink

// Addr is an address in the target's native memory. Host backends carry
// process addresses; wasm backends carry 32-bit linear-memory offsets.
type Addr uint64

// Segment is a bounded region of native memory passed by address.
type Segment struct {
	Addr Addr
	Len  uint64
}

// Memory is the native memory a backend stages arguments into.
// Read may return a view of the underlying memory; copy it before retaining.
type Memory interface {
	Read(addr Addr, length uint64) ([]byte, error)
	Write(addr Addr, data []byte) error
}

// Allocator allocates native memory for per-call buffers
type Allocator interface {
	Alloc(size, align uint64) (Addr, error)
	Free(addr Addr, size, align uint64)
}

// ReadCString reads a NUL-terminated sequence of unit-byte code units
// starting at addr. The terminator is not included. Reading stops with an
// error after max code units.
func ReadCString(mem Memory, addr Addr, unit int, max int) ([]byte, error) {
	if unit <= 0 {
		unit = 1
	}
	var out []byte
	for i := 0; i < max; i++ {
		b, err := mem.Read(addr+Addr(i*unit), uint64(unit))
		if err != nil {
			return nil, err
		}
		if isZero(b) {
			return out, nil
		}
		out = append(out, b...)
	}
	return nil, errUnterminated
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
