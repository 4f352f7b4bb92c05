package abi

import (
	"context"
	"strconv"
	"strings"

	"github.com/wippyai/autolink"
	"github.com/wippyai/autolink/transform"
)

// Signature is the native function type of a call site: argument layouts
// in call order, and the result layout unless the function returns void.
type Signature struct {
	Result *transform.Layout
	Params []transform.Layout
}

func (s Signature) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
	}
	b.WriteString(") -> ")
	if s.Result == nil {
		b.WriteString("void")
	} else {
		b.WriteString(s.Result.Name)
	}
	return b.String()
}

// OptionKind identifies a call option
type OptionKind uint8

const (
	OptionFirstVariadic OptionKind = iota
	OptionCaptureState
	OptionCritical
)

// Option modifies how a backend invokes the native function.
type Option struct {
	Names []string // OptionCaptureState
	Index int      // OptionFirstVariadic: argument position of the first variadic argument
	Kind  OptionKind
	Heap  bool // OptionCritical: arguments may point into Go memory
}

// FirstVariadic marks argument position i as the first variadic argument.
func FirstVariadic(i int) Option {
	return Option{Kind: OptionFirstVariadic, Index: i}
}

// CaptureState requests the named state to be captured after the call.
func CaptureState(names ...string) Option {
	return Option{Kind: OptionCaptureState, Names: names}
}

// Critical requests a minimal-overhead call that does not re-enter Go.
func Critical(heap bool) Option {
	return Option{Kind: OptionCritical, Heap: heap}
}

func (o Option) String() string {
	switch o.Kind {
	case OptionFirstVariadic:
		return "firstVariadicArg(" + strconv.Itoa(o.Index) + ")"
	case OptionCaptureState:
		return "captureCallState(" + strings.Join(o.Names, ", ") + ")"
	case OptionCritical:
		return "critical(heap=" + strconv.FormatBool(o.Heap) + ")"
	}
	return "unknown"
}

// Find returns the first option of the given kind.
func Find(opts []Option, kind OptionKind) (Option, bool) {
	for _, o := range opts {
		if o.Kind == kind {
			return o, true
		}
	}
	return Option{}, false
}

// Entry is a bound native entry point. args holds one carrier per
// signature parameter. state is non-nil only when the site captures state.
// Failures of the native function itself are returned unchanged.
type Entry interface {
	Call(ctx context.Context, args []uint64, state *autolink.CallState) (uint64, error)
}

// EntryFunc adapts a function to Entry.
type EntryFunc func(ctx context.Context, args []uint64, state *autolink.CallState) (uint64, error)

// Call implements Entry.
func (f EntryFunc) Call(ctx context.Context, args []uint64, state *autolink.CallState) (uint64, error) {
	return f(ctx, args, state)
}
