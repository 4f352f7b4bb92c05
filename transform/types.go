package transform

import (
	"reflect"
	"unsafe"

	"github.com/wippyai/autolink"
	"github.com/wippyai/autolink/nativeenum"
)

var (
	addrType      = reflect.TypeFor[autolink.Addr]()
	segmentType   = reflect.TypeFor[autolink.Segment]()
	stateType     = reflect.TypeFor[*autolink.CallState]()
	unsafePtrType = reflect.TypeFor[unsafe.Pointer]()
	stringType    = reflect.TypeFor[string]()
)

// IsCallState reports whether t is the capture sink type.
func IsCallState(t reflect.Type) bool {
	return t == stateType
}

// source classifies a Go type by how an integer or float rule reads it.
type source uint8

const (
	srcNone source = iota
	srcS8
	srcU8
	srcS16
	srcU16
	srcS32
	srcU32
	srcS64
	srcU64
	srcF32
	srcF64
	srcBool
	srcEnum
)

func classify(t reflect.Type) source {
	if t == nil {
		return srcNone
	}
	if nativeenum.IsEnum(t) {
		return srcEnum
	}
	if t == addrType {
		return srcNone
	}
	switch t.Kind() {
	case reflect.Int8:
		return srcS8
	case reflect.Uint8:
		return srcU8
	case reflect.Int16:
		return srcS16
	case reflect.Uint16:
		return srcU16
	case reflect.Int32:
		return srcS32
	case reflect.Uint32:
		return srcU32
	case reflect.Int64:
		return srcS64
	case reflect.Int:
		if t.Size() == 4 {
			return srcS32
		}
		return srcS64
	case reflect.Uint:
		if t.Size() == 4 {
			return srcU32
		}
		return srcU64
	case reflect.Uint64, reflect.Uintptr:
		return srcU64
	case reflect.Float32:
		return srcF32
	case reflect.Float64:
		return srcF64
	case reflect.Bool:
		return srcBool
	}
	return srcNone
}

func (s source) integer() bool {
	return s >= srcS8 && s <= srcU64 || s == srcBool || s == srcEnum
}

func (s source) float() bool {
	return s == srcF32 || s == srcF64
}

func (s source) signed() bool {
	switch s {
	case srcS8, srcS16, srcS32, srcS64, srcEnum:
		return true
	}
	return false
}

func (s source) bits() int {
	switch s {
	case srcBool:
		return 1
	case srcS8, srcU8:
		return 8
	case srcS16, srcU16:
		return 16
	case srcS32, srcU32, srcF32, srcEnum:
		return 32
	}
	return 64
}

// PtrSource classifies the Go values a pointer rule accepts.
type PtrSource uint8

const (
	PtrNone    PtrSource = iota
	PtrAddr              // autolink.Addr, uintptr
	PtrUnsafe            // unsafe.Pointer
	PtrSegment           // autolink.Segment
	PtrString            // encoded text
	PtrSlice             // slice of fixed-size numbers
	PtrScalar            // number passed by reference, copy-in only
	PtrRef               // *number, passed by reference with copy-back
)

// ClassifyPointer reports how a pointer rule treats t.
func ClassifyPointer(t reflect.Type) PtrSource {
	switch {
	case t == nil:
		return PtrNone
	case t == addrType:
		return PtrAddr
	case t == unsafePtrType:
		return PtrUnsafe
	case t == segmentType:
		return PtrSegment
	case t.Kind() == reflect.String:
		return PtrString
	case t.Kind() == reflect.Uintptr:
		return PtrAddr
	case t.Kind() == reflect.Slice && ElementSize(t.Elem()) > 0:
		return PtrSlice
	case t.Kind() == reflect.Pointer && ElementSize(t.Elem()) > 0:
		return PtrRef
	case ElementSize(t) > 0:
		return PtrScalar
	}
	return PtrNone
}
