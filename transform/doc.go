// Package transform holds the marshalling rules of the binding compiler.
//
// Each Rule is the definition of one logical native type: its native Layout,
// the conversion from every Go type it accepts into carrier bits, and the
// conversion from carrier bits back into a declared Go result. Marker rules
// (variadic start, state capture) take no native slot and contribute a call
// option instead.
//
// # Width laws
//
// Integer rules apply fixed truncation and extension laws:
//
//	signed N:   truncate the source to N bits, sign-extend
//	unsigned N: zero-extend the source at its own width, mask to N bits
//	return:     re-widen the low N bits, then convert to the Go result type
//
// So the unsigned 8-bit rule maps int16(300) to 44, and an unsigned 32-bit
// result of 0xFFFFFFFF returned into int64 reads 4294967295. U64 and S64 are
// bit-identical; there is no wider native carrier.
//
// # Platform rules
//
// A Registry is built for one platform.Config. It fixes C long, size_t and
// intptr_t to the 32-bit or 64-bit rule when it is created: long is 32-bit
// on 32-bit targets and on Windows, size_t follows the pointer width.
package transform
