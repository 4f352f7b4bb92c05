package engine

import (
	"context"
	"math"
	"reflect"
	"sync"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/autolink"
	"github.com/wippyai/autolink/abi"
	"github.com/wippyai/autolink/errors"
	"github.com/wippyai/autolink/platform"
	"github.com/wippyai/autolink/symbol"
	"github.com/wippyai/autolink/transform"
)

// Library is an instantiated wasm module used as a native library. Its
// exported functions are its symbols, its memory is where arguments are
// staged, and its malloc/free exports back the per-call arena.
//
// Guest calls, allocations and memory accesses of one library are
// serialized by one lock.
type Library struct {
	ctx    context.Context
	module api.Module
	malloc api.Function
	free   api.Function
	name   string
	mu     sync.Mutex
}

// export is the symbol handle of a library function.
type export struct {
	lib *Library
	def api.FunctionDefinition
}

func newLibrary(ctx context.Context, name string, mod api.Module) *Library {
	return &Library{
		ctx:    context.WithoutCancel(ctx),
		module: mod,
		malloc: mod.ExportedFunction("malloc"),
		free:   mod.ExportedFunction("free"),
		name:   name,
	}
}

// Name returns the module name.
func (l *Library) Name() string {
	return l.name
}

// Module returns the underlying wazero module.
func (l *Library) Module() api.Module {
	return l.module
}

// Close closes the module.
func (l *Library) Close(ctx context.Context) error {
	return l.module.Close(ctx)
}

// Platform implements linker.Backend. Guests are wasm32.
func (l *Library) Platform() platform.Config {
	return platform.Wasm32()
}

// Memory implements linker.Backend.
func (l *Library) Memory() autolink.Memory {
	return &Memory{mem: l.module.Memory(), mu: &l.mu}
}

// Allocator implements linker.Backend.
func (l *Library) Allocator() autolink.Allocator {
	return l
}

// Symbols implements linker.Backend.
func (l *Library) Symbols() symbol.Table {
	return l
}

// Lookup implements symbol.Table over the exported functions.
func (l *Library) Lookup(name string) (symbol.Symbol, bool) {
	def, ok := l.module.ExportedFunctionDefinitions()[name]
	if !ok {
		return symbol.Symbol{}, false
	}
	return symbol.Symbol{Name: name, Handle: export{lib: l, def: def}}, true
}

// Pin implements linker.Backend. Guest code cannot address Go memory.
func (l *Library) Pin(reflect.Value) (autolink.Addr, func(), bool) {
	return 0, nil, false
}

// Alloc implements autolink.Allocator through the guest's malloc.
func (l *Library) Alloc(size, align uint64) (autolink.Addr, error) {
	if l.malloc == nil {
		return 0, errors.Unsupported(errors.PhaseCall, "library "+l.name+" exports no malloc")
	}
	if size > math.MaxUint32 {
		return 0, errors.AllocationFailed(size, align, nil)
	}
	l.mu.Lock()
	out, err := l.malloc.Call(l.ctx, size)
	l.mu.Unlock()
	if err != nil {
		return 0, err
	}
	addr := autolink.Addr(uint32(out[0]))
	if addr == 0 {
		return 0, errors.AllocationFailed(size, align, nil)
	}
	if align > 1 && uint64(addr)%align != 0 {
		l.Free(addr, size, align)
		return 0, errors.New(errors.PhaseCall, errors.KindAllocation).
			Value(uint64(addr)).
			Detail("malloc returned %#x, not aligned to %d", addr, align).
			Build()
	}
	return addr, nil
}

// Free implements autolink.Allocator through the guest's free.
func (l *Library) Free(addr autolink.Addr, _, _ uint64) {
	if l.free == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.free.Call(l.ctx, uint64(uint32(addr)))
}

// Bind implements linker.Backend. The guest function type must match the
// native signature carrier for carrier. Variadic calls are unsupported,
// and captured state names must be exported i32 globals.
func (l *Library) Bind(sym symbol.Symbol, sig abi.Signature, opts []abi.Option) (abi.Entry, error) {
	exp, ok := sym.Handle.(export)
	if !ok || exp.lib != l {
		return nil, errors.New(errors.PhaseLink, errors.KindSignature).
			Symbol(sym.Name).
			Detail("symbol does not belong to library %s", l.name).
			Build()
	}
	captures := make(map[string]api.Global)
	for _, o := range opts {
		switch o.Kind {
		case abi.OptionFirstVariadic:
			return nil, errors.Unsupported(errors.PhaseLink, "variadic calls into wasm")
		case abi.OptionCaptureState:
			for _, n := range o.Names {
				g := l.module.ExportedGlobal(n)
				if g == nil || g.Type() != api.ValueTypeI32 {
					return nil, errors.New(errors.PhaseLink, errors.KindUnsupported).
						Symbol(sym.Name).
						Detail("cannot capture %q: no exported i32 global", n).
						Build()
				}
				captures[n] = g
			}
		}
	}
	if err := checkSignature(sym.Name, exp.def, sig); err != nil {
		return nil, err
	}

	fn := l.module.ExportedFunction(sym.Name)
	params := sig.Params
	result := sig.Result
	return abi.EntryFunc(func(ctx context.Context, args []uint64, state *autolink.CallState) (uint64, error) {
		in := make([]uint64, len(args))
		for i, a := range args {
			in[i] = narrow(params[i], a)
		}

		l.mu.Lock()
		defer l.mu.Unlock()
		out, err := fn.Call(ctx, in...)
		if err != nil {
			return 0, err
		}
		if state != nil {
			for name, g := range captures {
				state.Set(name, int32(uint32(g.Get())))
			}
		}
		if result == nil || len(out) == 0 {
			return 0, nil
		}
		return widen(*result, out[0]), nil
	}), nil
}

// valueType returns the wasm type carrying a layout on wasm32.
func valueType(lay transform.Layout) api.ValueType {
	switch lay.Carrier {
	case transform.CarrierI64:
		return api.ValueTypeI64
	case transform.CarrierF32:
		return api.ValueTypeF32
	case transform.CarrierF64:
		return api.ValueTypeF64
	case transform.CarrierAddr:
		if lay.Size == 8 {
			return api.ValueTypeI64
		}
	}
	return api.ValueTypeI32
}

func checkSignature(name string, def api.FunctionDefinition, sig abi.Signature) error {
	want := make([]api.ValueType, len(sig.Params))
	for i, p := range sig.Params {
		want[i] = valueType(p)
	}
	var wantResults []api.ValueType
	if sig.Result != nil {
		wantResults = []api.ValueType{valueType(*sig.Result)}
	}
	if !equalTypes(def.ParamTypes(), want) || !equalTypes(def.ResultTypes(), wantResults) {
		return errors.New(errors.PhaseLink, errors.KindSignature).
			Symbol(name).
			NativeType(sig.String()).
			Detail("guest function is %s", typeString(def.ParamTypes(), def.ResultTypes())).
			Build()
	}
	return nil
}

func equalTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func typeString(params, results []api.ValueType) string {
	s := "("
	for i, p := range params {
		if i > 0 {
			s += ", "
		}
		s += api.ValueTypeName(p)
	}
	s += ") -> "
	if len(results) == 0 {
		return s + "void"
	}
	return s + api.ValueTypeName(results[0])
}

// narrow converts a carrier to the wasm value of its layout.
func narrow(lay transform.Layout, bits uint64) uint64 {
	if valueType(lay) == api.ValueTypeI64 {
		return bits
	}
	return api.EncodeI32(int32(bits))
}

// widen converts a wasm result back to a carrier.
func widen(lay transform.Layout, v uint64) uint64 {
	switch lay.Carrier {
	case transform.CarrierI16:
		return uint64(int64(int16(v)))
	case transform.CarrierI32:
		return uint64(int64(api.DecodeI32(v)))
	case transform.CarrierBool:
		return v & 0xff
	case transform.CarrierF32:
		return uint64(uint32(v))
	case transform.CarrierAddr:
		if lay.Size == 4 {
			return uint64(uint32(v))
		}
	}
	return v
}
