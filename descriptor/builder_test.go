package descriptor

import (
	"reflect"
	"testing"

	"github.com/wippyai/autolink"
	"github.com/wippyai/autolink/errors"
	"github.com/wippyai/autolink/nativeenum"
	"github.com/wippyai/autolink/platform"
	"github.com/wippyai/autolink/transform"
)

var linux64 = transform.NewRegistry(platform.Config{OS: "linux", PointerBits: 64})

func names(ss []*Surface) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.Name
	}
	return out
}

func TestOrderDiamond(t *testing.T) {
	//      root
	//     /    \
	//    a      b
	//   / \    /
	//  c   base
	base := &Surface{Name: "base"}
	c := &Surface{Name: "c"}
	a := &Surface{Name: "a", Extends: []*Surface{c, base}}
	b := &Surface{Name: "b", Extends: []*Surface{base}}
	root := &Surface{Name: "root", Extends: []*Surface{a, b}}

	got := names(Order(root))
	want := []string{"root", "a", "b", "c", "base"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Order = %v, want %v", got, want)
	}
}

func TestOrderDepthExpansion(t *testing.T) {
	// Newly queued ancestors are expanded in turn before later siblings'
	// ancestors are reached: a's grandparent precedes b's parent.
	aa := &Surface{Name: "aa"}
	aaa := &Surface{Name: "aaa"}
	aa.Extends = []*Surface{aaa}
	ba := &Surface{Name: "ba"}
	a := &Surface{Name: "a", Extends: []*Surface{aa}}
	b := &Surface{Name: "b", Extends: []*Surface{ba}}
	root := &Surface{Name: "root", Extends: []*Surface{a, b}}

	got := names(Order(root))
	want := []string{"root", "a", "b", "aa", "aaa", "ba"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Order = %v, want %v", got, want)
	}
}

func TestBuildFirstWins(t *testing.T) {
	base := &Surface{Name: "base", Methods: []Method{
		{Name: "abs", Signature: reflect.TypeFor[func(int32) int32](), Link: &Link{Name: "labs"}},
		{Name: "rand", Signature: reflect.TypeFor[func() int32](), Link: &Link{}},
	}}
	left := &Surface{Name: "left", Extends: []*Surface{base}, Methods: []Method{
		{Name: "abs", Signature: reflect.TypeFor[func(int32) int32](), Link: &Link{Name: "abs"}},
	}}
	right := &Surface{Name: "right", Extends: []*Surface{base}}
	root := &Surface{Name: "root", Extends: []*Surface{right, left}}

	ds, err := NewBuilder(linux64).Build(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(ds) != 2 {
		t.Fatalf("got %d descriptors, want 2", len(ds))
	}
	// right, left, base is the visiting order: left's abs shadows base's
	if ds[0].Name != "abs" || ds[0].LinkName != "abs" || ds[0].Surface != "left" {
		t.Errorf("abs resolved to %+v", ds[0])
	}
	if ds[1].Name != "rand" || ds[1].Surface != "base" {
		t.Errorf("rand resolved to %+v", ds[1])
	}
}

func TestBuildEarlierWinsOverMoreSpecific(t *testing.T) {
	// The surface found first keeps the method even if a deeper surface
	// re-declares it with a different link name.
	deep := &Surface{Name: "deep", Methods: []Method{
		{Name: "f", Signature: reflect.TypeFor[func()](), Link: &Link{Name: "deep_f"}},
	}}
	mid := &Surface{Name: "mid", Extends: []*Surface{deep}, Methods: []Method{
		{Name: "f", Signature: reflect.TypeFor[func()](), Link: &Link{Name: "mid_f"}},
	}}
	shallow := &Surface{Name: "shallow", Methods: []Method{
		{Name: "f", Signature: reflect.TypeFor[func()](), Link: &Link{Name: "shallow_f"}},
	}}
	root := &Surface{Name: "root", Extends: []*Surface{mid, shallow}}

	ds, err := NewBuilder(linux64).Build(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(ds) != 1 || ds[0].LinkName != "mid_f" {
		t.Errorf("descriptors = %+v", ds)
	}
}

func TestBuildSkips(t *testing.T) {
	root := &Surface{Name: "root", Methods: []Method{
		{Name: "static", Signature: reflect.TypeFor[func()](), Link: &Link{}, Static: true},
		{Name: "default", Signature: reflect.TypeFor[func()](), Link: &Link{}, Default: true},
		{Name: "unlinked", Signature: reflect.TypeFor[func()]()},
		{Name: "kept", Signature: reflect.TypeFor[func()](), Link: &Link{}},
		// same name, different signature: a distinct method
		{Name: "kept", Signature: reflect.TypeFor[func(int32)](), Link: &Link{}},
	}}
	ds, err := NewBuilder(linux64).Build(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(ds) != 2 || ds[0].Name != "kept" || ds[1].Name != "kept" {
		t.Errorf("descriptors = %+v", ds)
	}
	if ds[0].Key == ds[1].Key {
		t.Error("overloads should have distinct keys")
	}
}

func TestBuildParams(t *testing.T) {
	root := &Surface{Name: "libc", Methods: []Method{
		{
			Name:      "atoi_as_unsigned",
			Signature: reflect.TypeFor[func([]byte, bool) int64](),
			Link:      &Link{Name: "atoi", Critical: &Critical{Heap: true}},
			Params:    []Param{{}, {As: transform.AsVoid}},
			Result:    Result{As: transform.AsUnsignedInt},
		},
		{
			Name:      "memset",
			Signature: reflect.TypeFor[func(autolink.Addr, int32, int32)](),
			Link:      &Link{},
			Params:    []Param{{}, {}, {As: transform.AsSize}},
			Result:    Result{As: transform.AsPtr},
		},
	}}
	ds, err := NewBuilder(linux64).Build(root)
	if err != nil {
		t.Fatal(err)
	}

	atoi := ds[0]
	if atoi.LinkName != "atoi" || !atoi.Critical || !atoi.Heap {
		t.Errorf("atoi link = %q critical=%v heap=%v", atoi.LinkName, atoi.Critical, atoi.Heap)
	}
	if got := atoi.Params[0]; got.Rule != transform.RulePtr || got.Source != transform.PtrSlice || got.Dir != DirInOut {
		t.Errorf("atoi param 0 = %+v", got)
	}
	if got := atoi.Params[1].Rule; got != transform.RuleVoid {
		t.Errorf("atoi param 1 rule = %v", got)
	}
	if atoi.Return.Rule != transform.RuleU32 {
		t.Errorf("atoi return = %v", atoi.Return.Rule)
	}
	if atoi.NeedsArena(true) {
		t.Error("heap access should avoid the arena")
	}
	if !atoi.NeedsArena(false) {
		t.Error("without heap access the byte slice needs the arena")
	}

	memset := ds[1]
	if memset.Params[2].Rule != transform.RuleU64 {
		t.Errorf("size_t on linux/64 = %v", memset.Params[2].Rule)
	}
	if memset.Return.Rule != transform.RulePtr || memset.Return.Type != nil {
		t.Errorf("memset return = %+v", memset.Return)
	}
	if memset.NeedsArena(false) {
		t.Error("an address needs no arena")
	}
}

func TestBuildVariadicIndex(t *testing.T) {
	root := &Surface{Name: "stdio", Methods: []Method{
		{
			Name:      "snprintf",
			Signature: reflect.TypeFor[func(autolink.Addr, uint64, string, int32) int32](),
			Link:      &Link{},
			Params:    []Param{{}, {}, {VariadicStart: true}, {}},
		},
		{
			Name:      "printf",
			Signature: reflect.TypeFor[func(string, int32, int32) int32](),
			Link:      &Link{},
			Params:    []Param{{}, {}, {VariadicStart: true}},
		},
	}}
	ds, err := NewBuilder(linux64).Build(root)
	if err != nil {
		t.Fatal(err)
	}
	if idx, ok := ds[0].FirstVariadic(); !ok || idx != 2 {
		t.Errorf("snprintf first variadic = %d, %v", idx, ok)
	}
	if idx, ok := ds[1].FirstVariadic(); !ok || idx != 2 {
		t.Errorf("printf first variadic = %d, %v", idx, ok)
	}
	steps := ds[1].Steps
	if len(steps) != 4 || steps[2].Rule != transform.RuleStartVariadic || steps[3].Rule != transform.RuleS32 {
		t.Errorf("steps = %+v", steps)
	}
}

func TestBuildCapture(t *testing.T) {
	state := reflect.TypeFor[*autolink.CallState]()

	ok := &Surface{Name: "libm", Methods: []Method{{
		Name:      "sin",
		Signature: reflect.FuncOf([]reflect.Type{state, reflect.TypeFor[float64]()}, []reflect.Type{reflect.TypeFor[float64]()}, false),
		Link:      &Link{},
		Capture:   []string{"errno"},
	}}}
	ds, err := NewBuilder(linux64).Build(ok)
	if err != nil {
		t.Fatal(err)
	}
	if ds[0].Params[0].Rule != transform.RuleCapture || !reflect.DeepEqual(ds[0].Capture, []string{"errno"}) {
		t.Errorf("capture = %+v / %v", ds[0].Params[0], ds[0].Capture)
	}
	if len(ds[0].Steps) != 2 {
		t.Errorf("steps = %+v", ds[0].Steps)
	}

	tests := []struct {
		name   string
		method Method
		check  func(error) bool
	}{
		{
			name: "capture not first",
			method: Method{
				Name:      "sin",
				Signature: reflect.FuncOf([]reflect.Type{reflect.TypeFor[float64](), state}, nil, false),
				Link:      &Link{},
				Params:    []Param{{}, {Capture: []string{"errno"}}},
			},
			check: errors.IsConfiguration,
		},
		{
			name: "critical with capture",
			method: Method{
				Name:      "sin",
				Signature: reflect.FuncOf([]reflect.Type{state, reflect.TypeFor[float64]()}, nil, false),
				Link:      &Link{Critical: &Critical{}},
				Capture:   []string{"errno"},
			},
			check: errors.IsConfiguration,
		},
		{
			name: "capture into wrong type",
			method: Method{
				Name:      "sin",
				Signature: reflect.TypeFor[func(float64)](),
				Link:      &Link{},
				Capture:   []string{"errno"},
			},
			check: errors.IsMarshal,
		},
		{
			name: "state without names",
			method: Method{
				Name:      "sin",
				Signature: reflect.FuncOf([]reflect.Type{state}, nil, false),
				Link:      &Link{},
			},
			check: errors.IsConfiguration,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder(linux64).Build(&Surface{Name: "libm", Methods: []Method{tt.method}})
			if !tt.check(err) {
				t.Errorf("error = %v", err)
			}
		})
	}
}

func TestBuildErrors(t *testing.T) {
	type opaque struct{ x int }

	tests := []struct {
		name    string
		surface *Surface
		check   func(error) bool
	}{
		{
			name:    "concrete root",
			surface: &Surface{Name: "impl", Concrete: true},
			check:   errors.IsConfiguration,
		},
		{
			name: "not a func",
			surface: &Surface{Name: "s", Methods: []Method{
				{Name: "f", Signature: reflect.TypeFor[int](), Link: &Link{}},
			}},
			check: errors.IsConfiguration,
		},
		{
			name: "param count",
			surface: &Surface{Name: "s", Methods: []Method{
				{Name: "f", Signature: reflect.TypeFor[func(int32)](), Link: &Link{}, Params: []Param{{}, {}}},
			}},
			check: errors.IsConfiguration,
		},
		{
			name: "struct parameter",
			surface: &Surface{Name: "s", Methods: []Method{
				{Name: "f", Signature: reflect.TypeFor[func(opaque)](), Link: &Link{}},
			}},
			check: errors.IsMarshal,
		},
		{
			name: "string as int",
			surface: &Surface{Name: "s", Methods: []Method{
				{Name: "f", Signature: reflect.TypeFor[func(string)](), Link: &Link{}, Params: []Param{{As: transform.AsInt}}},
			}},
			check: errors.IsMarshal,
		},
		{
			name: "float result from int rule",
			surface: &Surface{Name: "s", Methods: []Method{
				{Name: "f", Signature: reflect.TypeFor[func() float64](), Link: &Link{}, Result: Result{As: transform.AsInt}},
			}},
			check: errors.IsMarshal,
		},
		{
			name: "out direction on a scalar",
			surface: &Surface{Name: "s", Methods: []Method{
				{Name: "f", Signature: reflect.TypeFor[func(int32)](), Link: &Link{}, Params: []Param{{Dir: DirOut}}},
			}},
			check: errors.IsConfiguration,
		},
		{
			name: "out direction on a string",
			surface: &Surface{Name: "s", Methods: []Method{
				{Name: "f", Signature: reflect.TypeFor[func(string)](), Link: &Link{}, Params: []Param{{Dir: DirInOut}}},
			}},
			check: errors.IsConfiguration,
		},
		{
			name: "unknown charset",
			surface: &Surface{Name: "s", Methods: []Method{
				{Name: "f", Signature: reflect.TypeFor[func(string)](), Link: &Link{}, Params: []Param{{Charset: "ebcdic"}}},
			}},
			check: errors.IsConfiguration,
		},
		{
			name: "two value results",
			surface: &Surface{Name: "s", Methods: []Method{
				{Name: "f", Signature: reflect.TypeFor[func() (int32, int32)](), Link: &Link{}},
			}},
			check: errors.IsConfiguration,
		},
		{
			name: "undecodable enum result",
			surface: &Surface{Name: "s", Methods: []Method{
				{Name: "f", Signature: reflect.TypeFor[func() undecodable](), Link: &Link{}},
			}},
			check: errors.IsMarshal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder(linux64).Build(tt.surface)
			if err == nil || !tt.check(err) {
				t.Errorf("error = %v", err)
			}
		})
	}
}

type undecodable int32

func (u undecodable) NativeCode() int32 { return int32(u) }

func TestBuildEnumAndErrorResult(t *testing.T) {
	root := &Surface{Name: "libc", Methods: []Method{
		Linked("abs", (func(nativeenum.Errno) (nativeenum.Errno, error))(nil)),
	}}
	ds, err := NewBuilder(linux64).Build(root)
	if err != nil {
		t.Fatal(err)
	}
	d := ds[0]
	if !d.ReturnsError || d.Return.Type != reflect.TypeFor[nativeenum.Errno]() || d.Return.Rule != transform.RuleS32 {
		t.Errorf("return = %+v, returnsError = %v", d.Return, d.ReturnsError)
	}
	v, err := d.Return.Lift(34)
	if err != nil || v.Interface() != nativeenum.ERANGE {
		t.Errorf("lift(34) = %v, %v", v, err)
	}
}
