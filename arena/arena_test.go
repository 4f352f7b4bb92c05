package arena

import (
	"bytes"
	"errors"
	"testing"

	"github.com/wippyai/autolink"
)

// heap is a bump allocator over a byte slice that records frees.
type heap struct {
	data  []byte
	next  autolink.Addr
	freed []autolink.Addr
	fail  bool
}

func newHeap() *heap {
	return &heap{data: make([]byte, 4096), next: 16}
}

func (h *heap) Alloc(size, align uint64) (autolink.Addr, error) {
	if h.fail {
		return 0, errors.New("out of memory")
	}
	if align == 0 {
		align = 1
	}
	addr := (h.next + autolink.Addr(align) - 1) &^ (autolink.Addr(align) - 1)
	h.next = addr + autolink.Addr(size)
	return addr, nil
}

func (h *heap) Free(addr autolink.Addr, _, _ uint64) {
	h.freed = append(h.freed, addr)
}

func (h *heap) Read(addr autolink.Addr, n uint64) ([]byte, error) {
	return h.data[addr : uint64(addr)+n], nil
}

func (h *heap) Write(addr autolink.Addr, b []byte) error {
	copy(h.data[addr:], b)
	return nil
}

func TestAllocateAndClose(t *testing.T) {
	h := newHeap()
	a := New(h, h)

	p1, err := a.Allocate(3, 1)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := a.AllocateFrom([]byte{1, 2, 3, 4}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if p2%4 != 0 {
		t.Errorf("p2 = %#x not aligned", p2)
	}
	got, _ := h.Read(p2, 4)
	if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("staged bytes = %v", got)
	}
	if a.Count() != 2 {
		t.Errorf("Count = %d", a.Count())
	}

	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if len(h.freed) != 2 || h.freed[0] != p2 || h.freed[1] != p1 {
		t.Errorf("freed = %v, want [%#x %#x]", h.freed, p2, p1)
	}

	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if len(h.freed) != 2 {
		t.Error("second Close freed again")
	}
}

func TestAllocateFailure(t *testing.T) {
	h := newHeap()
	h.fail = true
	a := New(h, h)
	defer a.Close()

	if _, err := a.Allocate(8, 8); err == nil {
		t.Fatal("expected allocation error")
	}
	if a.Count() != 0 {
		t.Errorf("Count = %d after failure", a.Count())
	}
}

func TestAllocateAfterClose(t *testing.T) {
	h := newHeap()
	a := New(h, h)
	_ = a.Close()
	if _, err := a.Allocate(1, 1); err == nil {
		t.Error("allocating from a closed arena should fail")
	}
}

func TestStaleCloseAfterReuse(t *testing.T) {
	first := newHeap()
	a := New(first, first)
	if _, err := a.Allocate(8, 8); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	for range 4 {
		second := newHeap()
		b := New(second, second)
		if b == a {
			t.Fatal("New returned a closed arena")
		}
		if _, err := b.Allocate(16, 8); err != nil {
			t.Fatal(err)
		}

		if err := a.Close(); err != nil {
			t.Fatal(err)
		}
		if len(second.freed) != 0 || b.Count() != 1 {
			t.Fatalf("stale Close released another arena: freed %v, count %d", second.freed, b.Count())
		}
		if _, err := a.Allocate(4, 1); err == nil {
			t.Fatal("stale arena accepted an allocation")
		}
		if _, err := b.Allocate(4, 1); err != nil {
			t.Fatalf("live arena unusable after stale Close: %v", err)
		}
		if err := b.Close(); err != nil {
			t.Fatal(err)
		}
		if len(second.freed) != 2 {
			t.Fatalf("freed = %v", second.freed)
		}
	}
	if len(first.freed) != 1 {
		t.Errorf("first arena freed %d times", len(first.freed))
	}
}
