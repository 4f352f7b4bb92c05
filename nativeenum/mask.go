package nativeenum

// IsSet reports whether every bit of flag is set in e.
func IsSet(e, flag Enum) bool {
	nc := flag.NativeCode()
	return e.NativeCode()&nc == nc
}

// AllSet reports whether every bit of every flag is set in e.
func AllSet(e Enum, flags ...Enum) bool {
	nc := orCodes(flags)
	return e.NativeCode()&nc == nc
}

// IsClear reports whether no bit of flag is set in e.
func IsClear(e, flag Enum) bool {
	return e.NativeCode()&flag.NativeCode() == 0
}

// AllClear reports whether no bit of any flag is set in e.
func AllClear(e Enum, flags ...Enum) bool {
	return e.NativeCode()&orCodes(flags) == 0
}

// And returns a&b. When the result equals one of the operands that operand
// is returned unchanged, so named values survive the operation.
func And(a, b Enum) Enum {
	return pick(a, b, a.NativeCode()&b.NativeCode())
}

// Or returns a|b, preferring an operand equal to the result.
func Or(a, b Enum) Enum {
	return pick(a, b, a.NativeCode()|b.NativeCode())
}

// Xor returns a^b, preferring an operand equal to the result.
func Xor(a, b Enum) Enum {
	return pick(a, b, a.NativeCode()^b.NativeCode())
}

// AndAll folds vals with &. An empty list yields Code(0).
func AndAll(vals ...Enum) Code {
	return fold(vals, func(x, y int32) int32 { return x & y })
}

// OrAll folds vals with |. An empty list yields Code(0).
func OrAll(vals ...Enum) Code {
	return fold(vals, func(x, y int32) int32 { return x | y })
}

// XorAll folds vals with ^. An empty list yields Code(0).
func XorAll(vals ...Enum) Code {
	return fold(vals, func(x, y int32) int32 { return x ^ y })
}

func pick(a, b Enum, nc int32) Enum {
	switch nc {
	case a.NativeCode():
		return a
	case b.NativeCode():
		return b
	}
	return Code(nc)
}

func fold(vals []Enum, op func(x, y int32) int32) Code {
	if len(vals) == 0 {
		return 0
	}
	res := vals[0].NativeCode()
	for _, v := range vals[1:] {
		res = op(res, v.NativeCode())
	}
	return Code(res)
}

func orCodes(flags []Enum) int32 {
	var nc int32
	for _, f := range flags {
		nc |= f.NativeCode()
	}
	return nc
}
