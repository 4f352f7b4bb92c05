package transform

import (
	"reflect"
)

// Rule is one marshalling definition for a logical native type.
// The set is closed; rules carry no mutable state.
type Rule uint8

const (
	RuleU7 Rule = iota
	RuleS8
	RuleU8
	RuleS16
	RuleU16
	RuleS32
	RuleU32
	RuleS64
	RuleU64
	RuleF32
	RuleF64
	RulePtr
	RuleBool
	RuleVoid
	RuleStartVariadic
	RuleCapture
)

var ruleNames = [...]string{
	RuleU7:            "U7",
	RuleS8:            "S8",
	RuleU8:            "U8",
	RuleS16:           "S16",
	RuleU16:           "U16",
	RuleS32:           "S32",
	RuleU32:           "U32",
	RuleS64:           "S64",
	RuleU64:           "U64",
	RuleF32:           "F32",
	RuleF64:           "F64",
	RulePtr:           "PTR",
	RuleBool:          "BOOL",
	RuleVoid:          "VOID",
	RuleStartVariadic: "START_VA",
	RuleCapture:       "CAPTURE",
}

func (r Rule) String() string {
	if int(r) < len(ruleNames) {
		return ruleNames[r]
	}
	return "unknown"
}

// HasLayout reports whether the rule occupies a native argument slot.
func (r Rule) HasLayout() bool {
	switch r {
	case RuleVoid, RuleStartVariadic, RuleCapture:
		return false
	}
	return true
}

// HasOption reports whether the rule contributes a call option.
func (r Rule) HasOption() bool {
	return r == RuleStartVariadic || r == RuleCapture
}

// ConsumesArgument reports whether the rule takes one managed argument.
func (r Rule) ConsumesArgument() bool {
	return r != RuleStartVariadic
}

// Integer reports whether the rule is a fixed-width integer rule.
func (r Rule) Integer() bool {
	return r <= RuleU64
}

// Signed reports whether an integer rule sign-extends.
func (r Rule) Signed() bool {
	switch r {
	case RuleS8, RuleS16, RuleS32, RuleS64:
		return true
	}
	return false
}

// Bits returns the logical width of an integer or float rule.
func (r Rule) Bits() int {
	switch r {
	case RuleU7:
		return 7
	case RuleS8, RuleU8, RuleBool:
		return 8
	case RuleS16, RuleU16:
		return 16
	case RuleS32, RuleU32, RuleF32:
		return 32
	case RuleS64, RuleU64, RuleF64:
		return 64
	}
	return 0
}

// NeedsArena reports whether an argument of type t under this rule has to be
// staged in a per-call arena. heap permits direct access to Go memory.
func (r Rule) NeedsArena(t reflect.Type, heap bool) bool {
	if r != RulePtr {
		return false
	}
	switch ClassifyPointer(t) {
	case PtrString, PtrSlice:
		return !heap
	case PtrScalar, PtrRef:
		return true
	}
	return false
}
