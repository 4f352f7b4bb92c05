package descriptor

import (
	"reflect"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/autolink"
	"github.com/wippyai/autolink/errors"
	"github.com/wippyai/autolink/nativeenum"
	"github.com/wippyai/autolink/transform"
)

// ParseType resolves a managed type name used in descriptor tables.
//
// WIT primitives (bool, s8..s64, u8..u64, f32, f64, char, string) and
// list<T> go through the WIT type model. List elements must have a fixed
// native layout, so list<string> and list<list<T>> are rejected. The names pointer, segment, state
// and code name autolink.Addr, autolink.Segment, *autolink.CallState and
// nativeenum.Code; ref<T> is a pointer to T.
func ParseType(name string) (reflect.Type, error) {
	name = strings.TrimSpace(name)
	switch name {
	case "pointer":
		return reflect.TypeFor[autolink.Addr](), nil
	case "segment":
		return reflect.TypeFor[autolink.Segment](), nil
	case "state":
		return reflect.TypeFor[*autolink.CallState](), nil
	case "code":
		return reflect.TypeFor[nativeenum.Code](), nil
	}
	if inner, ok := generic(name, "ref"); ok {
		elem, err := ParseType(inner)
		if err != nil {
			return nil, err
		}
		return reflect.PointerTo(elem), nil
	}
	wt, err := witType(name)
	if err != nil {
		return nil, err
	}
	return GoType(wt)
}

func witType(name string) (wit.Type, error) {
	if inner, ok := generic(name, "list"); ok {
		elem, err := witType(inner)
		if err != nil {
			return nil, err
		}
		if err := fixedElement(inner, elem); err != nil {
			return nil, err
		}
		return &wit.TypeDef{Kind: &wit.List{Type: elem}}, nil
	}
	t, err := wit.ParseType(name)
	if err != nil {
		return nil, errors.InvalidDescriptor(nil, "unknown type %q", name)
	}
	return t, nil
}

// fixedElement rejects list elements that cannot be staged as one
// contiguous native buffer: pointer-bearing types, and types whose WIT
// layout differs from the Go element the binding receives.
func fixedElement(name string, elem wit.Type) error {
	if wit.HasPointer(elem) {
		return errors.InvalidDescriptor(nil, "list element %q is not fixed-size", name)
	}
	gt, err := GoType(elem)
	if err != nil {
		return err
	}
	native := transform.ElementType(gt)
	if native == nil || native.Size() != elem.Size() || native.Align() != elem.Align() {
		return errors.InvalidDescriptor(nil, "list element %q has no native layout", name)
	}
	return nil
}

// GoType maps a WIT type onto the Go type bindings use for it.
func GoType(t wit.Type) (reflect.Type, error) {
	switch t := t.(type) {
	case wit.Bool:
		return reflect.TypeFor[bool](), nil
	case wit.S8:
		return reflect.TypeFor[int8](), nil
	case wit.U8:
		return reflect.TypeFor[uint8](), nil
	case wit.S16:
		return reflect.TypeFor[int16](), nil
	case wit.U16:
		return reflect.TypeFor[uint16](), nil
	case wit.S32:
		return reflect.TypeFor[int32](), nil
	case wit.U32:
		return reflect.TypeFor[uint32](), nil
	case wit.S64:
		return reflect.TypeFor[int64](), nil
	case wit.U64:
		return reflect.TypeFor[uint64](), nil
	case wit.F32:
		return reflect.TypeFor[float32](), nil
	case wit.F64:
		return reflect.TypeFor[float64](), nil
	case wit.Char:
		return reflect.TypeFor[rune](), nil
	case wit.String:
		return reflect.TypeFor[string](), nil
	case *wit.TypeDef:
		if l, ok := t.Kind.(*wit.List); ok {
			elem, err := GoType(l.Type)
			if err != nil {
				return nil, err
			}
			return reflect.SliceOf(elem), nil
		}
	}
	return nil, errors.InvalidDescriptor(nil, "WIT type %T has no native representation", t)
}

func generic(name, ctor string) (string, bool) {
	if !strings.HasPrefix(name, ctor+"<") || !strings.HasSuffix(name, ">") {
		return "", false
	}
	return strings.TrimSpace(name[len(ctor)+1 : len(name)-1]), true
}
