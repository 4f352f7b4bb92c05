package transform

import (
	"reflect"
	"sync"

	"github.com/wippyai/autolink/errors"
	"github.com/wippyai/autolink/platform"
)

// Registry resolves rules for one native target. The platform-dependent
// choices are fixed when the registry is created.
type Registry struct {
	platform platform.Config
	ptr      Layout
	long     Rule
	ulong    Rule
	intptr   Rule
	uintptr  Rule
}

// NewRegistry computes the rule table for p.
func NewRegistry(p platform.Config) *Registry {
	r := &Registry{
		platform: p,
		ptr:      AddressLayout(p.PointerSize()),
		long:     RuleS64,
		ulong:    RuleS64,
		intptr:   RuleS64,
		uintptr:  RuleU64,
	}
	if p.LongBits() == 32 {
		r.long = RuleS32
		r.ulong = RuleU32
	}
	if p.PointerBits == 32 {
		r.intptr = RuleS32
		r.uintptr = RuleU32
	}
	return r
}

var hostRegistry = sync.OnceValue(func() *Registry {
	return NewRegistry(platform.Host())
})

// Host returns the registry of the running process.
func Host() *Registry {
	return hostRegistry()
}

// Platform returns the configuration the registry was built for.
func (r *Registry) Platform() platform.Config {
	return r.platform
}

// For returns the rule an explicit AsType override selects.
func (r *Registry) For(as AsType) Rule {
	switch as {
	case AsSignedChar, AsChar, AsInt8:
		return RuleS8
	case AsUnsignedChar, AsChar8, AsUint8:
		return RuleU8
	case AsChar7:
		return RuleU7
	case AsShort, AsInt16:
		return RuleS16
	case AsUnsignedShort, AsUint16, AsChar16:
		return RuleU16
	case AsInt, AsInt32:
		return RuleS32
	case AsUnsignedInt, AsUint32, AsChar32:
		return RuleU32
	case AsLong:
		return r.long
	case AsUnsignedLong:
		return r.ulong
	case AsLongLong, AsInt64:
		return RuleS64
	case AsUnsignedLongLong, AsUint64:
		return RuleU64
	case AsFloat:
		return RuleF32
	case AsDouble:
		return RuleF64
	case AsBool:
		return RuleBool
	case AsPtrdiff, AsSsize, AsIntptr:
		return r.intptr
	case AsSize, AsUintptr:
		return r.uintptr
	case AsPtr:
		return RulePtr
	}
	return RuleVoid
}

// ForType returns the default rule for a Go type. A nil type is an absent
// result and maps to the void rule.
func (r *Registry) ForType(t reflect.Type) (Rule, error) {
	if t == nil {
		return RuleVoid, nil
	}
	if IsCallState(t) {
		return RuleCapture, nil
	}
	switch classify(t) {
	case srcEnum, srcS32:
		return RuleS32, nil
	case srcS8:
		return RuleS8, nil
	case srcU8:
		return RuleU8, nil
	case srcS16:
		return RuleS16, nil
	case srcU16:
		return RuleU16, nil
	case srcU32:
		return RuleU32, nil
	case srcS64:
		return RuleS64, nil
	case srcU64:
		if t.Kind() == reflect.Uintptr {
			return r.uintptr, nil
		}
		return RuleU64, nil
	case srcF32:
		return RuleF32, nil
	case srcF64:
		return RuleF64, nil
	case srcBool:
		return RuleBool, nil
	}
	switch ClassifyPointer(t) {
	case PtrNone, PtrScalar:
		return RuleVoid, errors.TypeMismatch(nil, t.String(), "no default rule")
	}
	return RulePtr, nil
}

// Layout returns the native layout of rule, or false for markers.
func (r *Registry) Layout(rule Rule) (Layout, bool) {
	switch rule {
	case RuleU7, RuleS8, RuleU8, RuleU16, RuleS32, RuleU32:
		return layoutInt, true
	case RuleS16:
		return layoutShort, true
	case RuleS64, RuleU64:
		return layoutLongLong, true
	case RuleF32:
		return layoutFloat, true
	case RuleF64:
		return layoutDouble, true
	case RuleBool:
		return layoutBool, true
	case RulePtr:
		return r.ptr, true
	}
	return Layout{}, false
}
