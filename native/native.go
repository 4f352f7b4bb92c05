//go:build darwin || linux

package native

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
	"go.uber.org/zap"

	"github.com/wippyai/autolink"
	"github.com/wippyai/autolink/abi"
	"github.com/wippyai/autolink/errors"
	"github.com/wippyai/autolink/platform"
	"github.com/wippyai/autolink/symbol"
	"github.com/wippyai/autolink/transform"
)

// Library is a shared library opened with dlopen.
type Library struct {
	path   string
	handle uintptr
}

// Open loads the shared library at path with RTLD_NOW|RTLD_GLOBAL.
func Open(path string) (*Library, error) {
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, errors.Load("dlopen "+path, err)
	}
	Logger().Debug("library loaded", zap.String("library", path))
	return &Library{path: path, handle: h}, nil
}

// Path returns the path the library was opened with.
func (l *Library) Path() string {
	return l.path
}

// Lookup implements symbol.Table with dlsym.
func (l *Library) Lookup(name string) (symbol.Symbol, bool) {
	addr, err := purego.Dlsym(l.handle, name)
	if err != nil || addr == 0 {
		return symbol.Symbol{}, false
	}
	return symbol.Symbol{Name: name, Addr: addr}, true
}

// Close releases the library handle.
func (l *Library) Close() error {
	return purego.Dlclose(l.handle)
}

// Process opens the C runtime libraries of the host.
func Process() (symbol.Chain, error) {
	var chain symbol.Chain
	for _, path := range runtimeLibraries {
		lib, err := Open(path)
		if err != nil {
			for _, t := range chain {
				t.(*Library).Close()
			}
			return nil, err
		}
		chain = append(chain, lib)
	}
	return chain, nil
}

// Backend calls into the current process. It implements linker.Backend.
type Backend struct {
	libs          []*Library
	symbols       symbol.Chain
	malloc        func(size uintptr) uintptr
	free          func(ptr uintptr)
	errnoLocation func() uintptr
}

// New opens opts.Libraries, in order, as the default symbol table. The
// first library must provide malloc and free.
func New(opts Options) (*Backend, error) {
	if len(opts.Libraries) == 0 {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Detail("no libraries configured").
			Build()
	}
	b := &Backend{}
	for _, path := range opts.Libraries {
		lib, err := Open(path)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.libs = append(b.libs, lib)
		b.symbols = append(b.symbols, lib)
	}

	if err := b.bindRuntime(); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *Backend) bindRuntime() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Load(fmt.Sprintf("bind C runtime: %v", r), nil)
		}
	}()
	for _, s := range []struct {
		fptr any
		name string
	}{
		{&b.malloc, "malloc"},
		{&b.free, "free"},
		{&b.errnoLocation, errnoSymbol},
	} {
		sym, ok := b.symbols.Lookup(s.name)
		if !ok {
			return errors.Load("C runtime symbol "+s.name+" not found", nil)
		}
		purego.RegisterFunc(s.fptr, sym.Addr)
	}
	return nil
}

// Close releases every library handle.
func (b *Backend) Close() error {
	var first error
	for _, l := range b.libs {
		if err := l.Close(); err != nil && first == nil {
			first = err
		}
	}
	b.libs = nil
	b.symbols = nil
	return first
}

// Platform implements linker.Backend.
func (b *Backend) Platform() platform.Config {
	return platform.Host()
}

// Memory implements linker.Backend.
func (b *Backend) Memory() autolink.Memory {
	return processMemory{}
}

// Allocator implements linker.Backend.
func (b *Backend) Allocator() autolink.Allocator {
	return b
}

// Symbols implements linker.Backend.
func (b *Backend) Symbols() symbol.Table {
	return b.symbols
}

// Alloc implements autolink.Allocator with the C runtime's malloc.
// malloc alignment is sufficient for every native layout.
func (b *Backend) Alloc(size, align uint64) (autolink.Addr, error) {
	p := b.malloc(uintptr(size))
	if p == 0 {
		return 0, errors.AllocationFailed(size, align, nil)
	}
	return autolink.Addr(p), nil
}

// Free implements autolink.Allocator.
func (b *Backend) Free(addr autolink.Addr, _, _ uint64) {
	b.free(uintptr(addr))
}

// Pin implements linker.Backend. The slice stays pinned until unpin.
func (b *Backend) Pin(v reflect.Value) (autolink.Addr, func(), bool) {
	if v.Kind() != reflect.Slice || v.Len() == 0 {
		return 0, nil, false
	}
	ptr := v.UnsafePointer()
	p := new(runtime.Pinner)
	p.Pin(ptr)
	return autolink.Addr(uintptr(ptr)), p.Unpin, true
}

// Bind implements linker.Backend by registering a Go function of the
// signature's carrier types for the symbol address.
func (b *Backend) Bind(sym symbol.Symbol, sig abi.Signature, opts []abi.Option) (abi.Entry, error) {
	if sym.Addr == 0 {
		return nil, errors.New(errors.PhaseLink, errors.KindSignature).
			Symbol(sym.Name).
			Detail("symbol has no address").
			Build()
	}

	var capture []string
	for _, o := range opts {
		switch o.Kind {
		case abi.OptionFirstVariadic:
			if err := checkVariadic(sig, o.Index); err != nil {
				return nil, err
			}
		case abi.OptionCaptureState:
			for _, n := range o.Names {
				if n != "errno" {
					return nil, errors.Unsupported(errors.PhaseLink, "capture of "+n)
				}
			}
			capture = o.Names
		}
	}

	in := make([]reflect.Type, len(sig.Params))
	for i, p := range sig.Params {
		in[i] = carrierType(p.Carrier)
	}
	var out []reflect.Type
	if sig.Result != nil {
		out = []reflect.Type{carrierType(sig.Result.Carrier)}
	}
	fptr := reflect.New(reflect.FuncOf(in, out, false))
	if err := register(fptr.Interface(), sym.Addr); err != nil {
		return nil, errors.New(errors.PhaseLink, errors.KindSignature).
			Symbol(sym.Name).
			NativeType(sig.String()).
			Cause(err).
			Build()
	}
	fn := fptr.Elem()
	params := sig.Params
	result := sig.Result
	errno := b.errnoLocation

	return abi.EntryFunc(func(_ context.Context, args []uint64, state *autolink.CallState) (uint64, error) {
		vals := make([]reflect.Value, len(args))
		for i, a := range args {
			vals[i] = toCarrier(params[i].Carrier, a)
		}

		var res []reflect.Value
		if state != nil && len(capture) > 0 {
			runtime.LockOSThread()
			loc := (*int32)(unsafe.Pointer(errno()))
			*loc = 0
			res = fn.Call(vals)
			code := *loc
			runtime.UnlockOSThread()
			state.Set("errno", code)
		} else {
			res = fn.Call(vals)
		}

		if result == nil {
			return 0, nil
		}
		return fromCarrier(result.Carrier, res[0]), nil
	}), nil
}

func register(fptr any, addr uintptr) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	purego.RegisterFunc(fptr, addr)
	return nil
}

// checkVariadic rejects variadic arguments purego cannot place: any on
// darwin/arm64, floating point elsewhere.
func checkVariadic(sig abi.Signature, index int) error {
	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		return errors.Unsupported(errors.PhaseLink, "variadic calls on darwin/arm64")
	}
	for i := index; i < len(sig.Params); i++ {
		switch sig.Params[i].Carrier {
		case transform.CarrierF32, transform.CarrierF64:
			return errors.Unsupported(errors.PhaseLink, "floating point variadic arguments")
		}
	}
	return nil
}

var carrierTypes = [...]reflect.Type{
	transform.CarrierI16:  reflect.TypeFor[int16](),
	transform.CarrierI32:  reflect.TypeFor[int32](),
	transform.CarrierI64:  reflect.TypeFor[int64](),
	transform.CarrierF32:  reflect.TypeFor[float32](),
	transform.CarrierF64:  reflect.TypeFor[float64](),
	transform.CarrierBool: reflect.TypeFor[bool](),
	transform.CarrierAddr: reflect.TypeFor[uintptr](),
}

func carrierType(c transform.Carrier) reflect.Type {
	return carrierTypes[c]
}

func toCarrier(c transform.Carrier, bits uint64) reflect.Value {
	switch c {
	case transform.CarrierI16:
		return reflect.ValueOf(int16(bits))
	case transform.CarrierI32:
		return reflect.ValueOf(int32(bits))
	case transform.CarrierI64:
		return reflect.ValueOf(int64(bits))
	case transform.CarrierF32:
		return reflect.ValueOf(math.Float32frombits(uint32(bits)))
	case transform.CarrierF64:
		return reflect.ValueOf(math.Float64frombits(bits))
	case transform.CarrierBool:
		return reflect.ValueOf(bits != 0)
	}
	return reflect.ValueOf(uintptr(bits))
}

func fromCarrier(c transform.Carrier, v reflect.Value) uint64 {
	switch c {
	case transform.CarrierI16, transform.CarrierI32, transform.CarrierI64:
		return uint64(v.Int())
	case transform.CarrierF32:
		return uint64(math.Float32bits(float32(v.Float())))
	case transform.CarrierF64:
		return math.Float64bits(v.Float())
	case transform.CarrierBool:
		if v.Bool() {
			return 1
		}
		return 0
	}
	return v.Uint()
}

// processMemory is the address space of the current process.
type processMemory struct{}

func (processMemory) Read(addr autolink.Addr, length uint64) ([]byte, error) {
	if addr == 0 {
		return nil, errors.OutOfBounds(uint64(addr), length)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), length), nil
}

func (processMemory) Write(addr autolink.Addr, data []byte) error {
	if addr == 0 {
		return errors.OutOfBounds(uint64(addr), uint64(len(data)))
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), len(data)), data)
	return nil
}
