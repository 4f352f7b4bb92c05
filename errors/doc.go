// Package errors provides structured error types for the binding compiler.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The phases line up with the failure classes a caller has to tell apart:
//
//   - PhaseConfigure: the descriptor itself is invalid; raised while building a binding
//   - PhaseMarshal: a declared Go type has no conversion under its rule; also build time
//   - PhaseLink: the native symbol could not be resolved or bound; raised on every call
//   - PhaseCall: a per-call argument could not be staged or a result decoded
//
// Failures signaled by the native function itself are never wrapped in an Error.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLink, errors.KindSignature).
//		Path("libc", "abs").
//		Symbol("abs").
//		Detail("result i64, want i32").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.SymbolNotFound("doesNotExist")
//	if errors.Is(err, errors.ErrSymbolNotFound) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
