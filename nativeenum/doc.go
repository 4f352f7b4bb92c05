// Package nativeenum maps Go enumerations to the 32-bit codes native
// functions exchange.
//
// A type joins by implementing Enum. Passing it to a native function sends
// NativeCode(); receiving it needs a decoder registered with Register, which
// should reject codes the type never produces:
//
//	type Bit int32
//
//	func (b Bit) NativeCode() int32 { return int32(b) }
//
//	func init() {
//		nativeenum.Register(func(c int32) (Bit, error) { ... })
//	}
//
// Bitmask helpers (IsSet, Or, XorAll, ...) work on any Enum. Binary
// operations return an operand unchanged when the result equals it and a raw
// Code otherwise; As converts a Code back into a named value.
package nativeenum
