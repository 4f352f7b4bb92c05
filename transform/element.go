package transform

import (
	"reflect"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/autolink/nativeenum"
)

// ElementType returns the WIT type whose canonical layout matches a
// fixed-size numeric element, or nil when t has none. Enumerations have no
// element layout.
func ElementType(t reflect.Type) wit.Type {
	if nativeenum.IsEnum(t) {
		return nil
	}
	switch t.Kind() {
	case reflect.Int8:
		return wit.S8{}
	case reflect.Uint8:
		return wit.U8{}
	case reflect.Int16:
		return wit.S16{}
	case reflect.Uint16:
		return wit.U16{}
	case reflect.Int32:
		return wit.S32{}
	case reflect.Uint32:
		return wit.U32{}
	case reflect.Int64:
		return wit.S64{}
	case reflect.Uint64:
		return wit.U64{}
	case reflect.Float32:
		return wit.F32{}
	case reflect.Float64:
		return wit.F64{}
	}
	return nil
}

// ElementSize returns the staged size of one element of t, or 0.
func ElementSize(t reflect.Type) uint64 {
	if e := ElementType(t); e != nil {
		return uint64(e.Size())
	}
	return 0
}

// ElementAlign returns the staging alignment of t, or 0.
func ElementAlign(t reflect.Type) uint64 {
	if e := ElementType(t); e != nil {
		return uint64(e.Align())
	}
	return 0
}
