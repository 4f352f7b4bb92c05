package arena

import (
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/autolink"
	"github.com/wippyai/autolink/errors"
)

type allocation struct {
	addr  autolink.Addr
	size  uint64
	align uint64
}

// Arena owns the native buffers of one call. It is confined to the calling
// goroutine and released exactly once.
type Arena struct {
	alloc       autolink.Allocator
	mem         autolink.Memory
	allocations []allocation
	backing     *[]allocation
	closed      bool
}

// pool recycles allocation lists only. Every New returns a fresh Arena, so
// a stale handle never reaches another call's buffers.
var pool = sync.Pool{
	New: func() any {
		s := make([]allocation, 0, 8)
		return &s
	},
}

const maxPooledAllocations = 128

// New opens an arena over a backend's allocator and memory.
func New(alloc autolink.Allocator, mem autolink.Memory) *Arena {
	backing := pool.Get().(*[]allocation)
	return &Arena{
		alloc:       alloc,
		mem:         mem,
		allocations: (*backing)[:0],
		backing:     backing,
	}
}

// Allocate reserves size bytes aligned to align. The memory is not
// initialized.
func (a *Arena) Allocate(size, align uint64) (autolink.Addr, error) {
	if a.closed {
		return 0, errors.New(errors.PhaseCall, errors.KindInvalidInput).Detail("arena is closed").Build()
	}
	if size == 0 {
		size = 1
	}
	addr, err := a.alloc.Alloc(size, align)
	if err != nil {
		return 0, errors.AllocationFailed(size, align, err)
	}
	if addr == 0 {
		return 0, errors.AllocationFailed(size, align, nil)
	}
	a.allocations = append(a.allocations, allocation{addr: addr, size: size, align: align})
	return addr, nil
}

// AllocateFrom reserves a buffer holding a copy of data.
func (a *Arena) AllocateFrom(data []byte, align uint64) (autolink.Addr, error) {
	addr, err := a.Allocate(uint64(len(data)), align)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return addr, nil
	}
	if err := a.mem.Write(addr, data); err != nil {
		return 0, err
	}
	return addr, nil
}

// Count returns the number of live allocations.
func (a *Arena) Count() int {
	return len(a.allocations)
}

// Close frees every allocation in reverse order and returns the arena to
// the pool. Calls after the first are no-ops, and Allocate fails once the
// arena is closed.
func (a *Arena) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	var err error
	for i := len(a.allocations) - 1; i >= 0; i-- {
		al := a.allocations[i]
		err = multierr.Append(err, free(a.alloc, al))
	}
	if n := len(a.allocations); n > 0 {
		Logger().Debug("arena released", zap.Int("allocations", n))
	}
	if cap(a.allocations) <= maxPooledAllocations {
		clear(a.allocations)
		*a.backing = a.allocations[:0]
		pool.Put(a.backing)
	}
	a.allocations = nil
	a.backing = nil
	a.alloc = nil
	a.mem = nil
	return err
}

func free(alloc autolink.Allocator, al allocation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.PhaseCall, errors.KindAllocation).
				Detail("free %#x panicked: %v", al.addr, r).
				Build()
		}
	}()
	alloc.Free(al.addr, al.size, al.align)
	return nil
}
