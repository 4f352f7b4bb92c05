// Package autolink binds declarative native call surfaces to native functions.
//
// A surface is a set of method signatures, each with per-parameter and
// per-method linkage metadata. On first call of a method, the binding resolves
// the target symbol, derives the native signature and call options, and caches
// an adapter that marshals Go values across the boundary for every later call.
//
// # Architecture Overview
//
//	autolink/            Addr, Segment, Memory, Allocator and CallState
//	├── platform/        Pointer width and OS configuration
//	├── transform/       Transformation rules: layouts, conversions, AsType
//	├── nativeenum/      Native-coded enumerations and bitmasks
//	├── abi/             Native signatures, call options, bound entries
//	├── descriptor/      Surfaces, method descriptors, YAML descriptor tables
//	├── symbol/          Symbol tables and two-tier resolution
//	├── arena/           Per-call native buffer scopes
//	├── linker/          Bindings, lazy call sites, the marshalling pipeline
//	├── native/          Host backend over purego
//	├── engine/          WebAssembly backend over wazero
//	├── errors/          Structured error types
//	├── internal/synth/  In-process wasm module assembly for test libraries
//	└── cmd/autolink/    CLI: list, call and an interactive mode
//
// # Quick Start
//
// Bind part of the C runtime on the host:
//
//	be, err := native.New(native.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	surface := &descriptor.Surface{
//	    Name: "libc",
//	    Methods: []descriptor.Method{
//	        descriptor.Linked("atoi", func(string) int32 { return 0 }),
//	    },
//	}
//	binding, err := linker.New(be, linker.DefaultOptions()).Bind(surface)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	n, err := binding.Call(ctx, "atoi", "1234") // int32(1234)
//
// # Failure Model
//
// Descriptor problems fail Bind. A missing symbol fails the first call of
// that method and every call after it; other methods are unaffected. Errors
// raised by the native function itself are passed through unchanged.
//
// # Thread Safety
//
// Linker and Binding are safe for concurrent use. Each call owns its arena;
// nothing allocated for one call is visible to another.
package autolink
