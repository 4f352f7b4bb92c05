// Package engine provides the WebAssembly backend for bindings.
//
// A wasm module stands in for a shared library: its exported functions are
// the symbols, its linear memory is the native memory, and its malloc/free
// exports back the per-call arena. Guests are wasm32, so long and pointer
// values are 32-bit.
//
// # Architecture
//
//	Engine   - Owns a wazero runtime and the libraries loaded into it
//	Library  - One instantiated module; implements linker.Backend
//	Memory   - The library's linear memory as autolink.Memory
//
// # Type Mapping
//
// Each native layout travels as one core value:
//
//	Layout            Core Type
//	───────────────────────────
//	short, int, bool  i32
//	long long         i64
//	float             f32
//	double            f64
//	pointer           i32
//
// Bind rejects a guest function whose type differs from the native
// signature. Variadic calls are not supported. Call state capture reads
// exported i32 globals, such as "errno", after the call returns.
//
// # Traps
//
// A trapping guest call returns wazero's error unchanged.
//
// # Thread Safety
//
// Engine is safe for concurrent use. Calls into one Library are serialized.
//
// # Example
//
//	e, _ := engine.New(ctx, nil)
//	lib, _ := e.Load(ctx, "libc", wasmBytes)
//	b, _ := linker.NewWithDefaults(lib).Bind(surface)
//	n, err := b.Call(ctx, "atoi", "1234")
package engine
