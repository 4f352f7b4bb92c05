package transform

import (
	"math"
	"reflect"

	"github.com/wippyai/autolink/errors"
	"github.com/wippyai/autolink/nativeenum"
)

// Lower converts one Go argument into its carrier bits.
type Lower func(v reflect.Value) uint64

// Lift converts carrier bits into a value of the declared Go result type.
// A void result lifts to the zero reflect.Value.
type Lift func(bits uint64) (reflect.Value, error)

// Lowerer returns the argument conversion of a scalar rule for Go type t.
// Pointer and marker rules are staged by the caller and have no lowerer.
func (r *Registry) Lowerer(rule Rule, t reflect.Type) (Lower, error) {
	src := classify(t)
	mismatch := errors.TypeMismatch(nil, typeName(t), rule.String())

	switch {
	case rule.Integer():
		if !src.integer() {
			return nil, mismatch
		}
		read := reader(src)
		n := rule.Bits()
		if rule.Signed() {
			return func(v reflect.Value) uint64 {
				return signExtend(read(v), n)
			}, nil
		}
		mask := maskOf(min(n, src.bits()))
		return func(v reflect.Value) uint64 {
			return read(v) & mask
		}, nil

	case rule == RuleF32 || rule == RuleF64:
		var f func(reflect.Value) float64
		switch {
		case src.float():
			f = reflect.Value.Float
		case src == srcU8 || src == srcU16 || src == srcU32 || src == srcU64:
			f = func(v reflect.Value) float64 { return float64(v.Uint()) }
		case src.integer():
			read := reader(src)
			f = func(v reflect.Value) float64 { return float64(int64(read(v))) }
		default:
			return nil, mismatch
		}
		if rule == RuleF32 {
			return func(v reflect.Value) uint64 {
				return uint64(math.Float32bits(float32(f(v))))
			}, nil
		}
		return func(v reflect.Value) uint64 {
			return math.Float64bits(f(v))
		}, nil

	case rule == RuleBool:
		if src != srcBool {
			return nil, mismatch
		}
		return boolBits, nil
	}
	return nil, errors.New(errors.PhaseMarshal, errors.KindUnsupported).
		GoType(typeName(t)).
		NativeType(rule.String()).
		Detail("rule has no scalar conversion").
		Build()
}

// Lifter returns the result conversion of a scalar or void rule into t.
func (r *Registry) Lifter(rule Rule, t reflect.Type) (Lift, error) {
	if t == nil {
		return func(uint64) (reflect.Value, error) { return reflect.Value{}, nil }, nil
	}
	if rule == RuleVoid {
		zero := reflect.Zero(t)
		return func(uint64) (reflect.Value, error) { return zero, nil }, nil
	}
	mismatch := errors.TypeMismatch(nil, t.String(), rule.String())

	if nativeenum.IsEnum(t) {
		if !rule.Integer() || !nativeenum.Decodable(t) {
			return nil, mismatch
		}
		n, signed := rule.Bits(), rule.Signed()
		return func(bits uint64) (reflect.Value, error) {
			return nativeenum.Decode(t, int32(extend(bits, n, signed)))
		}, nil
	}

	switch {
	case rule.Integer():
		n, signed := rule.Bits(), rule.Signed()
		set, ok := integerSetter(t)
		if !ok {
			return nil, mismatch
		}
		return func(bits uint64) (reflect.Value, error) {
			return set(extend(bits, n, signed), signed), nil
		}, nil

	case rule == RuleF32 || rule == RuleF64:
		read := func(bits uint64) float64 { return math.Float64frombits(bits) }
		if rule == RuleF32 {
			read = func(bits uint64) float64 { return float64(math.Float32frombits(uint32(bits))) }
		}
		switch t.Kind() {
		case reflect.Float32, reflect.Float64:
			return func(bits uint64) (reflect.Value, error) {
				v := reflect.New(t).Elem()
				v.SetFloat(read(bits))
				return v, nil
			}, nil
		case reflect.Bool:
			return func(bits uint64) (reflect.Value, error) {
				return reflect.ValueOf(read(bits) != 0).Convert(t), nil
			}, nil
		}
		set, ok := integerSetter(t)
		if !ok {
			return nil, mismatch
		}
		return func(bits uint64) (reflect.Value, error) {
			f := read(bits)
			if f < 0 {
				return set(uint64(int64(f)), true), nil
			}
			return set(uint64(f), false), nil
		}, nil

	case rule == RuleBool:
		set, ok := integerSetter(t)
		if !ok {
			return nil, mismatch
		}
		return func(bits uint64) (reflect.Value, error) {
			if bits&0xff != 0 {
				return set(1, false), nil
			}
			return set(0, false), nil
		}, nil
	}
	return nil, errors.New(errors.PhaseMarshal, errors.KindUnsupported).
		GoType(t.String()).
		NativeType(rule.String()).
		Detail("rule has no scalar conversion").
		Build()
}

// integerSetter builds values of an integer or bool kind from a natural
// 64-bit pattern. Narrower kinds truncate.
func integerSetter(t reflect.Type) (func(x uint64, signed bool) reflect.Value, bool) {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(x uint64, _ bool) reflect.Value {
			v := reflect.New(t).Elem()
			v.SetInt(int64(x))
			return v
		}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return func(x uint64, _ bool) reflect.Value {
			v := reflect.New(t).Elem()
			v.SetUint(x)
			return v
		}, true
	case reflect.Bool:
		return func(x uint64, _ bool) reflect.Value {
			v := reflect.New(t).Elem()
			v.SetBool(x != 0)
			return v
		}, true
	}
	return nil, false
}

func reader(src source) func(reflect.Value) uint64 {
	switch src {
	case srcBool:
		return boolBits
	case srcEnum:
		return func(v reflect.Value) uint64 {
			return uint64(int64(v.Interface().(nativeenum.Enum).NativeCode()))
		}
	case srcU8, srcU16, srcU32, srcU64:
		return reflect.Value.Uint
	}
	return func(v reflect.Value) uint64 { return uint64(v.Int()) }
}

func boolBits(v reflect.Value) uint64 {
	if v.Bool() {
		return 1
	}
	return 0
}

func maskOf(n int) uint64 {
	if n >= 64 {
		return math.MaxUint64
	}
	return 1<<n - 1
}

func signExtend(x uint64, n int) uint64 {
	if n >= 64 {
		return x
	}
	shift := 64 - n
	return uint64(int64(x<<shift) >> shift)
}

// extend re-widens the low n bits of a carrier.
func extend(bits uint64, n int, signed bool) uint64 {
	if signed {
		return signExtend(bits, n)
	}
	return bits & maskOf(n)
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "void"
	}
	return t.String()
}
