package linker

import (
	"context"
	"reflect"
	"sync"

	"github.com/wippyai/autolink"
	"github.com/wippyai/autolink/abi"
	"github.com/wippyai/autolink/errors"
	"github.com/wippyai/autolink/platform"
	"github.com/wippyai/autolink/symbol"
)

// fakeFn is a native function of the fake backend. Pointer arguments are
// offsets into the backend's memory.
type fakeFn func(b *fakeBackend, args []uint64, state *autolink.CallState) (uint64, error)

type bindRecord struct {
	name string
	sig  abi.Signature
	opts []abi.Option
}

// fakeBackend is an in-memory backend with a bump allocator.
type fakeBackend struct {
	live     map[autolink.Addr]uint64
	syms     *symbol.Map
	mem      []byte
	binds    []bindRecord
	next     autolink.Addr
	allocs   int
	unpinned int
	pinning  bool
	mu       sync.Mutex
}

func newFake(fns map[string]fakeFn) *fakeBackend {
	b := &fakeBackend{
		live: make(map[autolink.Addr]uint64),
		syms: symbol.NewMap(),
		mem:  make([]byte, 1<<16),
		next: 64,
	}
	for name, fn := range fns {
		b.syms.Define(symbol.Symbol{Name: name, Handle: fn})
	}
	return b
}

func (b *fakeBackend) Platform() platform.Config {
	return platform.Config{OS: "linux", PointerBits: 64}
}

func (b *fakeBackend) Memory() autolink.Memory       { return b }
func (b *fakeBackend) Allocator() autolink.Allocator { return b }
func (b *fakeBackend) Symbols() symbol.Table         { return b.syms }

func (b *fakeBackend) Bind(sym symbol.Symbol, sig abi.Signature, opts []abi.Option) (abi.Entry, error) {
	fn, ok := sym.Handle.(fakeFn)
	if !ok {
		return nil, errors.New(errors.PhaseLink, errors.KindSignature).Symbol(sym.Name).Build()
	}
	b.mu.Lock()
	b.binds = append(b.binds, bindRecord{name: sym.Name, sig: sig, opts: opts})
	b.mu.Unlock()
	return abi.EntryFunc(func(_ context.Context, args []uint64, state *autolink.CallState) (uint64, error) {
		return fn(b, args, state)
	}), nil
}

func (b *fakeBackend) Pin(v reflect.Value) (autolink.Addr, func(), bool) {
	if !b.pinning {
		return 0, nil, false
	}
	return autolink.Addr(uintptr(v.UnsafePointer())), func() { b.unpinned++ }, true
}

func (b *fakeBackend) Alloc(size, align uint64) (autolink.Addr, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if align == 0 {
		align = 1
	}
	addr := (b.next + autolink.Addr(align) - 1) &^ (autolink.Addr(align) - 1)
	if uint64(addr)+size > uint64(len(b.mem)) {
		return 0, errors.AllocationFailed(size, align, nil)
	}
	b.next = addr + autolink.Addr(size)
	b.live[addr] = size
	b.allocs++
	return addr, nil
}

func (b *fakeBackend) Free(addr autolink.Addr, _, _ uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.live, addr)
}

func (b *fakeBackend) Read(addr autolink.Addr, n uint64) ([]byte, error) {
	if uint64(addr)+n > uint64(len(b.mem)) {
		return nil, errors.OutOfBounds(uint64(addr), n)
	}
	return b.mem[addr : uint64(addr)+n], nil
}

func (b *fakeBackend) Write(addr autolink.Addr, data []byte) error {
	if uint64(addr)+uint64(len(data)) > uint64(len(b.mem)) {
		return errors.OutOfBounds(uint64(addr), uint64(len(data)))
	}
	copy(b.mem[addr:], data)
	return nil
}

func (b *fakeBackend) outstanding() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.live)
}

func (b *fakeBackend) bindsOf(name string) []bindRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []bindRecord
	for _, r := range b.binds {
		if r.name == name {
			out = append(out, r)
		}
	}
	return out
}
