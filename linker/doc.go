// Package linker compiles method descriptors into cached native call
// adapters and runs the marshalling pipeline around every call.
//
// # Main Types
//
//   - Linker: binds surfaces against a Backend
//   - Binding: the memoized set of call sites of one surface
//   - Site: one method, linked lazily on first call
//   - Adapter: the bound entry, native signature and options of a site
//
// # Thread Safety
//
// Linker, Binding and Site are safe for concurrent use. Arenas are per call.
//
// # Symbol Resolution Order
//
//  1. Options.Local
//  2. Backend.Symbols
//  3. Link error matching errors.ErrSymbolNotFound
//
// A site that fails to link keeps failing with the same error. Other sites
// of the binding are unaffected.
//
// # Example
//
//	l := linker.NewWithDefaults(backend)
//	b, _ := l.Bind(surface)
//	n, err := b.Call(ctx, "abs", int32(-5))
package linker
