package linker

import (
	"context"
	"reflect"
	"strconv"
	"unsafe"

	"github.com/wippyai/autolink"
	"github.com/wippyai/autolink/arena"
	"github.com/wippyai/autolink/descriptor"
	"github.com/wippyai/autolink/errors"
	"github.com/wippyai/autolink/transform"
)

// plan is the marshalling program of one site: one stager per parameter
// and a result conversion.
type plan struct {
	stagers []stager
	result  func(f *frame, bits uint64) (reflect.Value, error)
	path    []string
	nargs   int
	arena   bool
}

// frame is the state of one call. It never outlives the call.
type frame struct {
	backend   Backend
	mem       autolink.Memory
	arena     *arena.Arena
	state     *autolink.CallState
	args      []uint64
	copyBacks []func() error
	unpins    []func()
}

type stager func(f *frame, v reflect.Value) error

func compile(d *descriptor.MethodDescriptor, maxString int) *plan {
	p := &plan{
		path:  []string{d.Surface, d.Name},
		arena: d.NeedsArena(d.Heap),
	}
	for _, pd := range d.Params {
		if pd.Rule.HasLayout() {
			p.nargs++
		}
		p.stagers = append(p.stagers, stage(pd, d.Heap, append(p.path[:2:2], strconv.Itoa(pd.Index))))
	}
	p.result = result(d.Return, maxString, append(p.path[:2:2], "result"))
	return p
}

func (a *Adapter) invoke(ctx context.Context, in []reflect.Value) (out reflect.Value, err error) {
	p := a.plan
	if len(in) != len(p.stagers) {
		return reflect.Value{}, errors.InvalidInput(p.path, "%d arguments for %d parameters", len(in), len(p.stagers))
	}

	f := &frame{
		backend: a.backend,
		mem:     a.backend.Memory(),
		args:    make([]uint64, 0, p.nargs),
	}
	if p.arena {
		f.buffer()
	}
	defer func() {
		if cerr := f.release(); cerr != nil && err == nil {
			out, err = reflect.Value{}, cerr
		}
	}()

	for i, st := range p.stagers {
		if err := st(f, in[i]); err != nil {
			return reflect.Value{}, err
		}
	}

	bits, err := a.entry.Call(ctx, f.args, f.state)
	if err != nil {
		return reflect.Value{}, err
	}

	for i := len(f.copyBacks) - 1; i >= 0; i-- {
		if err := f.copyBacks[i](); err != nil {
			return reflect.Value{}, err
		}
	}
	return p.result(f, bits)
}

// buffer returns the call's arena, opening it on first use.
func (f *frame) buffer() *arena.Arena {
	if f.arena == nil {
		f.arena = arena.New(f.backend.Allocator(), f.mem)
	}
	return f.arena
}

func (f *frame) release() error {
	for _, unpin := range f.unpins {
		unpin()
	}
	if f.arena == nil {
		return nil
	}
	return f.arena.Close()
}

func (f *frame) push(bits uint64) {
	f.args = append(f.args, bits)
}

// pin passes the backing array of a slice directly when the backend allows.
func (f *frame) pin(v reflect.Value) bool {
	addr, unpin, ok := f.backend.Pin(v)
	if !ok {
		return false
	}
	if unpin != nil {
		f.unpins = append(f.unpins, unpin)
	}
	f.push(uint64(addr))
	return true
}

// buffered stages raw into the arena according to dir and passes its
// address. Directions that include out copy the buffer back into raw.
func (f *frame) buffered(raw []byte, align uint64, dir descriptor.Direction) error {
	addr, err := f.buffer().Allocate(uint64(len(raw)), align)
	if err != nil {
		return err
	}
	if dir.In() && len(raw) > 0 {
		if err := f.mem.Write(addr, raw); err != nil {
			return err
		}
	}
	if dir.Out() && len(raw) > 0 {
		f.copyBacks = append(f.copyBacks, func() error {
			b, err := f.mem.Read(addr, uint64(len(raw)))
			if err != nil {
				return err
			}
			copy(raw, b)
			return nil
		})
	}
	f.push(uint64(addr))
	return nil
}

func stage(pd descriptor.ParamDescriptor, heap bool, path []string) stager {
	switch pd.Rule {
	case transform.RuleCapture:
		return func(f *frame, v reflect.Value) error {
			st, _ := v.Interface().(*autolink.CallState)
			if st == nil {
				return errors.InvalidInput(path, "nil call state")
			}
			st.Reset()
			f.state = st
			return nil
		}
	case transform.RuleVoid:
		return func(*frame, reflect.Value) error { return nil }
	case transform.RulePtr:
		return pointer(pd, heap, path)
	}
	lower := pd.Lower
	switch pd.Type.Kind() {
	case reflect.Interface, reflect.Pointer:
		// only enumerations reach a scalar rule through a nilable type
		return func(f *frame, v reflect.Value) error {
			if v.IsNil() {
				return errors.InvalidInput(path, "nil enumeration")
			}
			f.push(lower(v))
			return nil
		}
	}
	return func(f *frame, v reflect.Value) error {
		f.push(lower(v))
		return nil
	}
}

func pointer(pd descriptor.ParamDescriptor, heap bool, path []string) stager {
	t := pd.Type
	switch pd.Source {
	case transform.PtrAddr:
		return func(f *frame, v reflect.Value) error {
			f.push(v.Uint())
			return nil
		}

	case transform.PtrUnsafe:
		return func(f *frame, v reflect.Value) error {
			f.push(uint64(uintptr(v.UnsafePointer())))
			return nil
		}

	case transform.PtrSegment:
		return func(f *frame, v reflect.Value) error {
			f.push(uint64(v.Interface().(autolink.Segment).Addr))
			return nil
		}

	case transform.PtrString:
		cs := pd.Charset
		return func(f *frame, v reflect.Value) error {
			data, err := cs.Encode(v.String())
			if err != nil {
				return withPath(err, path)
			}
			if heap && f.pin(reflect.ValueOf(data)) {
				return nil
			}
			addr, err := f.buffer().AllocateFrom(data, uint64(cs.Unit))
			if err != nil {
				return err
			}
			f.push(uint64(addr))
			return nil
		}

	case transform.PtrSlice:
		size, align := transform.ElementSize(t.Elem()), transform.ElementAlign(t.Elem())
		return func(f *frame, v reflect.Value) error {
			if v.IsNil() {
				f.push(0)
				return nil
			}
			if heap && v.Len() > 0 && f.pin(v) {
				return nil
			}
			return f.buffered(view(v.UnsafePointer(), v.Len()*int(size)), align, pd.Dir)
		}

	case transform.PtrScalar:
		size, align := transform.ElementSize(t), transform.ElementAlign(t)
		return func(f *frame, v reflect.Value) error {
			box := reflect.New(t)
			box.Elem().Set(v)
			return f.buffered(view(box.UnsafePointer(), int(size)), align, descriptor.DirIn)
		}

	case transform.PtrRef:
		size, align := transform.ElementSize(t.Elem()), transform.ElementAlign(t.Elem())
		return func(f *frame, v reflect.Value) error {
			if v.IsNil() {
				f.push(0)
				return nil
			}
			return f.buffered(view(v.UnsafePointer(), int(size)), align, pd.Dir)
		}
	}
	return func(*frame, reflect.Value) error {
		return errors.TypeMismatch(path, t.String(), transform.RulePtr.String())
	}
}

// view exposes n bytes at p in host byte order.
func view(p unsafe.Pointer, n int) []byte {
	if p == nil || n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(p), n)
}

func result(r descriptor.ReturnDescriptor, maxString int, path []string) func(*frame, uint64) (reflect.Value, error) {
	t := r.Type
	if t == nil {
		return func(*frame, uint64) (reflect.Value, error) { return reflect.Value{}, nil }
	}
	if r.Rule != transform.RulePtr {
		lift := r.Lift
		return func(_ *frame, bits uint64) (reflect.Value, error) {
			v, err := lift(bits)
			if err != nil {
				return reflect.Value{}, withPath(err, path)
			}
			return v, nil
		}
	}

	switch r.Source {
	case transform.PtrAddr:
		return func(_ *frame, bits uint64) (reflect.Value, error) {
			v := reflect.New(t).Elem()
			v.SetUint(bits)
			return v, nil
		}
	case transform.PtrUnsafe:
		return func(_ *frame, bits uint64) (reflect.Value, error) {
			v := reflect.New(t).Elem()
			v.SetPointer(unsafe.Pointer(uintptr(bits)))
			return v, nil
		}
	case transform.PtrSegment:
		return func(_ *frame, bits uint64) (reflect.Value, error) {
			return reflect.ValueOf(autolink.Segment{Addr: autolink.Addr(bits)}), nil
		}
	}

	cs := r.Charset
	return func(f *frame, bits uint64) (reflect.Value, error) {
		v := reflect.New(t).Elem()
		if bits == 0 {
			return v, nil
		}
		raw, err := autolink.ReadCString(f.mem, autolink.Addr(bits), cs.Unit, maxString)
		if err != nil {
			return reflect.Value{}, withPath(err, path)
		}
		s, err := cs.Decode(raw)
		if err != nil {
			return reflect.Value{}, withPath(err, path)
		}
		v.SetString(s)
		return v, nil
	}
}

func withPath(err error, path []string) error {
	if e, ok := err.(*errors.Error); ok && e.Path == nil {
		c := *e
		c.Path = path
		return &c
	}
	return err
}
