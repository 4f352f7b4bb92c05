package nativeenum

import (
	"reflect"
	"sync"

	"github.com/wippyai/autolink/errors"
)

// Enum is a value that travels across the native boundary as a 32-bit
// signed code.
type Enum interface {
	NativeCode() int32
}

// Code is a raw native code. It is the result of bitmask operations whose
// value does not correspond to either operand.
type Code int32

// NativeCode implements Enum.
func (c Code) NativeCode() int32 { return int32(c) }

var (
	decoders sync.Map // reflect.Type -> func(int32) (reflect.Value, error)

	enumType = reflect.TypeFor[Enum]()
	codeType = reflect.TypeFor[Code]()
)

// Register installs the decoder for enumeration type T. The decoder must
// accept every code T's NativeCode produces and should reject anything else.
// Registering the same type again replaces the decoder.
func Register[T Enum](decode func(code int32) (T, error)) {
	decoders.Store(reflect.TypeFor[T](), func(code int32) (reflect.Value, error) {
		v, err := decode(code)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(v), nil
	})
}

// Decodable reports whether values of type t can be rebuilt from a code:
// Code, the Enum interface itself, or a type with a registered decoder.
func Decodable(t reflect.Type) bool {
	if t == codeType || t == enumType {
		return true
	}
	_, ok := decoders.Load(t)
	return ok
}

// Decode rebuilds a value of type t from a native code.
func Decode(t reflect.Type, code int32) (reflect.Value, error) {
	switch t {
	case codeType:
		return reflect.ValueOf(Code(code)), nil
	case enumType:
		v := reflect.New(enumType).Elem()
		v.Set(reflect.ValueOf(Code(code)))
		return v, nil
	}
	fn, ok := decoders.Load(t)
	if !ok {
		return reflect.Value{}, errors.New(errors.PhaseCall, errors.KindInvalidEnum).
			GoType(t.String()).
			Detail("no decoder registered").
			Build()
	}
	return fn.(func(int32) (reflect.Value, error))(code)
}

// FromCode decodes code as a T.
func FromCode[T Enum](code int32) (T, error) {
	var zero T
	v, err := Decode(reflect.TypeFor[T](), code)
	if err != nil {
		return zero, err
	}
	return v.Interface().(T), nil
}

// As returns e as a T, decoding its code when e is not already a T.
func As[T Enum](e Enum) (T, error) {
	if t, ok := e.(T); ok {
		return t, nil
	}
	return FromCode[T](e.NativeCode())
}

// IsEnum reports whether t carries a native code.
func IsEnum(t reflect.Type) bool {
	return t != nil && t.Implements(enumType)
}
