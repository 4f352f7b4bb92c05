package engine

import (
	"math"
	"sync"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/autolink"
	"github.com/wippyai/autolink/errors"
)

// Memory adapts a library's linear memory to autolink.Memory. Accesses hold
// the library lock, so they never overlap a guest call that grows memory.
type Memory struct {
	mem api.Memory
	mu  *sync.Mutex
}

// Read returns a copy of guest memory.
func (m *Memory) Read(addr autolink.Addr, length uint64) ([]byte, error) {
	if m.mem == nil || uint64(addr)+length > math.MaxUint32 {
		return nil, errors.OutOfBounds(uint64(addr), length)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.mem.Read(uint32(addr), uint32(length))
	if !ok {
		return nil, errors.OutOfBounds(uint64(addr), length)
	}
	return append([]byte(nil), data...), nil
}

// Write copies data into guest memory.
func (m *Memory) Write(addr autolink.Addr, data []byte) error {
	if m.mem == nil || uint64(addr)+uint64(len(data)) > math.MaxUint32 {
		return errors.OutOfBounds(uint64(addr), uint64(len(data)))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mem.Write(uint32(addr), data) {
		return errors.OutOfBounds(uint64(addr), uint64(len(data)))
	}
	return nil
}

// Size returns the current memory size in bytes.
func (m *Memory) Size() uint64 {
	if m.mem == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint64(m.mem.Size())
}
