package linker

import (
	"context"
	"encoding/binary"
	stderrors "errors"
	"reflect"
	"sync"
	"testing"
	"unsafe"

	"github.com/wippyai/autolink"
	"github.com/wippyai/autolink/abi"
	"github.com/wippyai/autolink/descriptor"
	"github.com/wippyai/autolink/errors"
	"github.com/wippyai/autolink/nativeenum"
	"github.com/wippyai/autolink/symbol"
	"github.com/wippyai/autolink/transform"
)

var errNative = stderrors.New("native failure")

func fakeLibc() map[string]fakeFn {
	return map[string]fakeFn{
		"abs": func(_ *fakeBackend, args []uint64, _ *autolink.CallState) (uint64, error) {
			x := int32(args[0])
			if x < 0 {
				x = -x
			}
			return uint64(int64(x)), nil
		},
		"memset": func(b *fakeBackend, args []uint64, _ *autolink.CallState) (uint64, error) {
			p, c, n := args[0], byte(args[1]), args[2]
			for i := uint64(0); i < n; i++ {
				b.mem[p+i] = c
			}
			return p, nil
		},
		"touch": func(*fakeBackend, []uint64, *autolink.CallState) (uint64, error) {
			return 0, nil
		},
		"iota": func(b *fakeBackend, args []uint64, _ *autolink.CallState) (uint64, error) {
			p, n := args[0], args[1]
			seen := b.mem[p]
			for i := uint64(0); i < n; i++ {
				b.mem[p+i] = byte(i)
			}
			return uint64(seen), nil
		},
		"mark": func(b *fakeBackend, args []uint64, _ *autolink.CallState) (uint64, error) {
			b.mem[args[0]] = 1
			b.mem[args[1]] = 2
			return 0, nil
		},
		"inc": func(b *fakeBackend, args []uint64, _ *autolink.CallState) (uint64, error) {
			p := b.mem[args[0]:]
			binary.LittleEndian.PutUint32(p, binary.LittleEndian.Uint32(p)+1)
			return 0, nil
		},
		"deref": func(b *fakeBackend, args []uint64, _ *autolink.CallState) (uint64, error) {
			return uint64(int64(int32(binary.LittleEndian.Uint32(b.mem[args[0]:])))), nil
		},
		"fail": func(*fakeBackend, []uint64, *autolink.CallState) (uint64, error) {
			return 0, errNative
		},
		"echo": func(_ *fakeBackend, args []uint64, _ *autolink.CallState) (uint64, error) {
			return args[0], nil
		},
		"identity": func(_ *fakeBackend, args []uint64, _ *autolink.CallState) (uint64, error) {
			return args[0], nil
		},
		"count": func(_ *fakeBackend, args []uint64, _ *autolink.CallState) (uint64, error) {
			return uint64(len(args)), nil
		},
		"set_errno": func(_ *fakeBackend, args []uint64, state *autolink.CallState) (uint64, error) {
			if state != nil {
				state.Set("errno", int32(args[0]))
			}
			return ^uint64(0), nil
		},
		"srand": func(*fakeBackend, []uint64, *autolink.CallState) (uint64, error) {
			return 0, nil
		},
	}
}

func method(name string, proto any, params ...descriptor.Param) descriptor.Method {
	return descriptor.Linked(name, proto, params...)
}

func bindFake(t *testing.T, methods ...descriptor.Method) (*fakeBackend, *Binding) {
	t.Helper()
	b := newFake(fakeLibc())
	binding, err := NewWithDefaults(b).Bind(&descriptor.Surface{Name: "libc", Methods: methods})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	return b, binding
}

func TestBindIsMemoized(t *testing.T) {
	b := newFake(fakeLibc())
	l := NewWithDefaults(b)
	surface := &descriptor.Surface{
		Name:    "libc",
		Methods: []descriptor.Method{method("abs", (func(int32) int32)(nil))},
	}

	const n = 16
	var wg sync.WaitGroup
	bindings := make([]*Binding, n)
	adapters := make([]*Adapter, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bd, err := l.Bind(surface)
			if err != nil {
				t.Error(err)
				return
			}
			bindings[i] = bd
			s, _ := bd.Site("abs")
			adapters[i], _ = s.Adapter()
		}()
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if bindings[i] != bindings[0] {
			t.Fatal("concurrent Bind published more than one binding")
		}
		if adapters[i] != adapters[0] {
			t.Fatal("concurrent first calls published more than one adapter")
		}
	}
	if got := len(b.bindsOf("abs")); got != 1 {
		t.Errorf("backend bound abs %d times, want 1", got)
	}
}

func TestBindErrorIsCached(t *testing.T) {
	l := NewWithDefaults(newFake(nil))
	surface := &descriptor.Surface{Name: "impl", Concrete: true}

	_, err1 := l.Bind(surface)
	_, err2 := l.Bind(surface)
	if err1 == nil || !errors.IsConfiguration(err1) {
		t.Fatalf("want configuration error, got %v", err1)
	}
	if err1 != err2 {
		t.Error("retry should return the cached error")
	}
}

func TestMissingSymbolFailsEveryCall(t *testing.T) {
	b, binding := bindFake(t,
		method("doesNotExist", (func(int32) int32)(nil)),
		method("abs", (func(int32) int32)(nil)),
	)
	ctx := context.Background()

	_, err1 := binding.Call(ctx, "doesNotExist", int32(1))
	_, err2 := binding.Call(ctx, "doesNotExist", int32(1))
	for _, err := range []error{err1, err2} {
		if !stderrors.Is(err, errors.ErrSymbolNotFound) || !errors.IsLink(err) {
			t.Fatalf("want link error, got %v", err)
		}
	}
	var e *errors.Error
	if !stderrors.As(err1, &e) || e.Symbol != "doesNotExist" {
		t.Errorf("link error should carry the symbol, got %v", err1)
	}
	if err1 != err2 {
		t.Error("link failure should be permanent, not retried")
	}

	got, err := binding.Call(ctx, "abs", int32(-5))
	if err != nil || got != int32(5) {
		t.Errorf("abs(-5) = %v, %v", got, err)
	}
	if len(b.bindsOf("doesNotExist")) != 0 {
		t.Error("missing symbol reached the backend")
	}
}

func TestLocalTableFirst(t *testing.T) {
	b := newFake(fakeLibc())
	local := symbol.NewMap()
	local.Define(symbol.Symbol{Name: "abs", Handle: fakeFn(func(*fakeBackend, []uint64, *autolink.CallState) (uint64, error) {
		return 42, nil
	})})
	l := New(b, Options{Local: local})
	binding, err := l.Bind(&descriptor.Surface{
		Name:    "libc",
		Methods: []descriptor.Method{method("abs", (func(int32) int32)(nil))},
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := binding.Call(context.Background(), "abs", int32(-1))
	if err != nil || got != int32(42) {
		t.Errorf("abs = %v, %v, want local definition", got, err)
	}
}

func TestNilLocalTable(t *testing.T) {
	b := newFake(fakeLibc())
	l := New(b, Options{Local: (*symbol.Map)(nil)})
	binding, err := l.Bind(&descriptor.Surface{
		Name:    "libc",
		Methods: []descriptor.Method{method("abs", (func(int32) int32)(nil))},
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := binding.Call(context.Background(), "abs", int32(-4))
	if err != nil || got != int32(4) {
		t.Errorf("abs(-4) = %v, %v", got, err)
	}
}

func TestLinkNameOverride(t *testing.T) {
	m := method("magnitude", (func(int32) int32)(nil))
	m.Link.Name = "abs"
	_, binding := bindFake(t, m)
	got, err := binding.Call(context.Background(), "magnitude", int32(-9))
	if err != nil || got != int32(9) {
		t.Errorf("magnitude(-9) = %v, %v", got, err)
	}
}

func TestVariadicOption(t *testing.T) {
	b, binding := bindFake(t, method("count", (func(string, int32, int32) int32)(nil),
		descriptor.Param{},
		descriptor.Param{},
		descriptor.Param{VariadicStart: true},
	))

	got, err := binding.Call(context.Background(), "count", "%d %d", int32(1), int32(2))
	if err != nil || got != int32(3) {
		t.Fatalf("count = %v, %v", got, err)
	}

	rec := b.bindsOf("count")[0]
	if len(rec.sig.Params) != 3 {
		t.Errorf("signature %s, want 3 parameters", rec.sig)
	}
	opt, ok := abi.Find(rec.opts, abi.OptionFirstVariadic)
	if !ok || opt.Index != 2 {
		t.Errorf("options %v, want firstVariadicArg(2)", rec.opts)
	}
}

func TestCaptureState(t *testing.T) {
	m := method("set_errno", (func(*autolink.CallState, int32) int32)(nil))
	m.Capture = []string{"errno"}
	b, binding := bindFake(t, m)

	var st autolink.CallState
	got, err := binding.Call(context.Background(), "set_errno", &st, int32(34))
	if err != nil || got != int32(-1) {
		t.Fatalf("set_errno = %v, %v", got, err)
	}
	if st.Errno() != 34 {
		t.Errorf("captured errno = %d, want 34", st.Errno())
	}
	if e, _ := nativeenum.FromCode[nativeenum.Errno](st.Errno()); e != nativeenum.ERANGE {
		t.Errorf("errno decodes to %v", e)
	}

	rec := b.bindsOf("set_errno")[0]
	if len(rec.sig.Params) != 1 {
		t.Errorf("signature %s, capture must not take a native slot", rec.sig)
	}
	if opt, ok := abi.Find(rec.opts, abi.OptionCaptureState); !ok || opt.Names[0] != "errno" {
		t.Errorf("options %v, want captureCallState(errno)", rec.opts)
	}

	if _, err := binding.Call(context.Background(), "set_errno", nil, int32(1)); err == nil {
		t.Error("nil call state should be rejected")
	}
}

func TestArrayDirections(t *testing.T) {
	tests := []struct {
		name string
		dir  descriptor.Direction
		want byte
	}{
		{"default", descriptor.DirDefault, 0xaa},
		{"in_out", descriptor.DirInOut, 0xaa},
		{"in", descriptor.DirIn, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := descriptor.Linked("memset", (func([]byte, int32, int64) autolink.Addr)(nil),
				descriptor.Param{Dir: tt.dir}, descriptor.Param{}, descriptor.Param{})
			b, binding := bindFake(t, m)

			buf := []byte{1, 1, 1, 1}
			if _, err := binding.Call(context.Background(), "memset", buf, int32(0xaa), int64(len(buf))); err != nil {
				t.Fatal(err)
			}
			for i, c := range buf {
				if c != tt.want {
					t.Fatalf("buf[%d] = %#x, want %#x", i, c, tt.want)
				}
			}
			if b.outstanding() != 0 {
				t.Errorf("%d allocations leaked", b.outstanding())
			}
		})
	}
}

func TestArrayUnchanged(t *testing.T) {
	_, binding := bindFake(t, method("touch", (func([]byte))(nil)))
	buf := []byte("unchanged")
	if _, err := binding.Call(context.Background(), "touch", buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "unchanged" {
		t.Errorf("buf = %q", buf)
	}
}

func TestOutSkipsCopyIn(t *testing.T) {
	_, binding := bindFake(t, method("iota", (func([]byte, int64) int32)(nil),
		descriptor.Param{Dir: descriptor.DirOut}, descriptor.Param{}))

	buf := []byte{9, 9, 9, 9}
	seen, err := binding.Call(context.Background(), "iota", buf, int64(len(buf)))
	if err != nil {
		t.Fatal(err)
	}
	if seen == int32(9) {
		t.Error("out parameter was copied in")
	}
	for i, c := range buf {
		if c != byte(i) {
			t.Fatalf("buf = %v, want 0 1 2 3", buf)
		}
	}
}

func TestCopyBackReverseOrder(t *testing.T) {
	_, binding := bindFake(t, method("mark", (func([]byte, []byte))(nil)))

	buf := []byte{0}
	if _, err := binding.Call(context.Background(), "mark", buf, buf); err != nil {
		t.Fatal(err)
	}
	// The first argument's buffer is copied back last.
	if buf[0] != 1 {
		t.Errorf("buf[0] = %d, want 1", buf[0])
	}
}

func TestScalarByReference(t *testing.T) {
	_, binding := bindFake(t,
		method("inc", (func(*int32))(nil)),
		method("deref", (func(int32) int32)(nil), descriptor.Param{As: transform.AsPtr}),
	)
	ctx := context.Background()

	v := int32(41)
	if _, err := binding.Call(ctx, "inc", &v); err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Errorf("v = %d, want 42", v)
	}

	got, err := binding.Call(ctx, "deref", int32(-7))
	if err != nil || got != int32(-7) {
		t.Errorf("deref = %v, %v", got, err)
	}
}

func TestArenaReleasedOnError(t *testing.T) {
	b, binding := bindFake(t, method("fail", (func([]byte, string) (int32, error))(nil)))

	_, err := binding.Call(context.Background(), "fail", []byte{1, 2}, "x")
	if err != errNative {
		t.Fatalf("native error should pass through unchanged, got %v", err)
	}
	if b.allocs == 0 {
		t.Fatal("expected staged arguments")
	}
	if b.outstanding() != 0 {
		t.Errorf("%d allocations leaked on the error path", b.outstanding())
	}
}

func TestResults(t *testing.T) {
	truth := method("truth", (func(int32) bool)(nil))
	truth.Link.Name = "identity"
	b, binding := bindFake(t,
		method("echo", (func(string) string)(nil)),
		method("identity", (func(int32) nativeenum.Errno)(nil)),
		method("srand", (func(uint32))(nil)),
		truth,
	)
	ctx := context.Background()

	got, err := binding.Call(ctx, "echo", "hello")
	if err != nil || got != "hello" {
		t.Errorf("echo = %v, %v", got, err)
	}

	got, err = binding.Call(ctx, "identity", int32(34))
	if err != nil || got != nativeenum.ERANGE {
		t.Errorf("identity(34) = %v, %v, want ERANGE", got, err)
	}
	_, err = binding.Call(ctx, "identity", int32(99))
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindInvalidEnum {
		t.Errorf("unknown code should fail with invalid_enum, got %v", err)
	}

	got, err = binding.Call(ctx, "srand", uint32(1))
	if err != nil || got != nil {
		t.Errorf("srand = %v, %v, want nil", got, err)
	}

	for _, tt := range []struct {
		in   int32
		want bool
	}{{0, false}, {1, true}, {256, false}, {-1, true}} {
		got, err := binding.Call(ctx, "truth", tt.in)
		if err != nil || got != tt.want {
			t.Errorf("truth(%d) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
	if b.outstanding() != 0 {
		t.Errorf("%d allocations leaked", b.outstanding())
	}
}

func TestVoidArgumentDropped(t *testing.T) {
	b, binding := bindFake(t, method("abs", (func(bool, int32) int32)(nil),
		descriptor.Param{As: transform.AsVoid}, descriptor.Param{}))

	got, err := binding.Call(context.Background(), "abs", true, int32(-3))
	if err != nil || got != int32(3) {
		t.Errorf("abs = %v, %v", got, err)
	}
	if n := len(b.bindsOf("abs")[0].sig.Params); n != 1 {
		t.Errorf("void argument took a native slot, %d params", n)
	}
}

func TestCriticalHeap(t *testing.T) {
	m := method("identity", (func([]byte) autolink.Addr)(nil))
	m.Link.Critical = &descriptor.Critical{Heap: true}
	b := newFake(fakeLibc())
	b.pinning = true
	binding, err := NewWithDefaults(b).Bind(&descriptor.Surface{Name: "libc", Methods: []descriptor.Method{m}})
	if err != nil {
		t.Fatal(err)
	}

	buf := []byte{1, 2, 3}
	got, err := binding.Call(context.Background(), "identity", buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != autolink.Addr(uintptr(unsafe.Pointer(&buf[0]))) {
		t.Error("heap access should pass the Go array directly")
	}
	if b.allocs != 0 || b.unpinned != 1 {
		t.Errorf("allocs = %d, unpinned = %d", b.allocs, b.unpinned)
	}
	if opt, ok := abi.Find(b.bindsOf("identity")[0].opts, abi.OptionCritical); !ok || !opt.Heap {
		t.Error("missing critical(heap=true) option")
	}
}

func TestCriticalWithoutPinningStages(t *testing.T) {
	m := method("memset", (func([]byte, int32, int64) autolink.Addr)(nil))
	m.Link.Critical = &descriptor.Critical{Heap: true}
	_, binding := bindFake(t, m)

	buf := make([]byte, 3)
	if _, err := binding.Call(context.Background(), "memset", buf, int32(5), int64(3)); err != nil {
		t.Fatal(err)
	}
	if buf[0] != 5 || buf[2] != 5 {
		t.Errorf("buf = %v", buf)
	}
}

func TestCallArguments(t *testing.T) {
	_, binding := bindFake(t, method("abs", (func(int32) int32)(nil)))
	ctx := context.Background()

	tests := []struct {
		name string
		args []any
	}{
		{"too few", nil},
		{"wrong type", []any{"x"}},
		{"nil scalar", []any{nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := binding.Call(ctx, "abs", tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
	if _, err := binding.Call(ctx, "nope"); err == nil {
		t.Error("unknown method should fail")
	}
}

func TestAmbiguousName(t *testing.T) {
	_, binding := bindFake(t,
		method("abs", (func(int32) int32)(nil)),
		method("abs", (func(int64) int64)(nil)),
	)
	if _, err := binding.Call(context.Background(), "abs", int32(1)); err == nil {
		t.Fatal("overloaded name should be ambiguous")
	}
	s, ok := binding.Site("absfunc(int64) int64")
	if !ok {
		t.Fatal("site by key not found")
	}
	out, err := s.Invoke(context.Background(), []reflect.Value{reflect.ValueOf(int64(-2))})
	if err != nil || out.Int() != 2 {
		t.Errorf("abs(int64) = %v, %v", out, err)
	}
}

func TestPopulate(t *testing.T) {
	_, binding := bindFake(t,
		method("abs", (func(int32) int32)(nil)),
		method("echo", (func(string) (string, error))(nil)),
		method("doesNotExist", (func(int32) (int32, error))(nil)),
	)

	var libc struct {
		Abs     func(int32) int32
		Echo    func(string) (string, error)
		Missing func(int32) (int32, error) `autolink:"doesNotExist"`
		Skipped func()                     `autolink:"-"`
	}
	if err := binding.Populate(&libc); err != nil {
		t.Fatal(err)
	}
	if got := libc.Abs(-4); got != 4 {
		t.Errorf("Abs(-4) = %d", got)
	}
	if s, err := libc.Echo("hi"); err != nil || s != "hi" {
		t.Errorf("Echo = %q, %v", s, err)
	}
	if _, err := libc.Missing(1); !stderrors.Is(err, errors.ErrSymbolNotFound) {
		t.Errorf("Missing error = %v", err)
	}
	if libc.Skipped != nil {
		t.Error("tagged-out field was populated")
	}

	var bad struct {
		Abs func(int64) int64
	}
	if err := binding.Populate(&bad); err == nil {
		t.Error("mismatched field type should be rejected")
	}
}

func TestPopulatePanicsWithoutErrorResult(t *testing.T) {
	_, binding := bindFake(t, method("doesNotExist", (func(int32) int32)(nil)))
	var libc struct {
		DoesNotExist func(int32) int32
	}
	if err := binding.Populate(&libc); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic")
		}
	}()
	libc.DoesNotExist(1)
}

type flagSet struct{ code int32 }

func (f *flagSet) NativeCode() int32 { return f.code }

func TestNilEnumeration(t *testing.T) {
	ptr := method("abs_flags", (func(*flagSet) int32)(nil))
	ptr.Link.Name = "abs"
	_, binding := bindFake(t,
		method("abs", (func(nativeenum.Enum) int32)(nil)),
		ptr,
	)
	ctx := context.Background()

	tests := []struct {
		name string
		arg  any
	}{
		{"abs", nil},
		{"abs_flags", nil},
		{"abs_flags", (*flagSet)(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := binding.Call(ctx, tt.name, tt.arg)
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != errors.KindInvalidInput {
				t.Fatalf("want invalid_input, got %v", err)
			}
		})
	}

	got, err := binding.Call(ctx, "abs", nativeenum.Code(-7))
	if err != nil || got != int32(7) {
		t.Errorf("abs(Code(-7)) = %v, %v", got, err)
	}
	got, err = binding.Call(ctx, "abs_flags", &flagSet{code: -3})
	if err != nil || got != int32(3) {
		t.Errorf("abs_flags = %v, %v", got, err)
	}
}
