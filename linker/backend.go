package linker

import (
	"reflect"

	"github.com/wippyai/autolink"
	"github.com/wippyai/autolink/abi"
	"github.com/wippyai/autolink/platform"
	"github.com/wippyai/autolink/symbol"
)

// Backend is a native target a binding links against.
type Backend interface {
	// Platform selects the platform-dependent rules.
	Platform() platform.Config
	// Memory is where arguments are staged.
	Memory() autolink.Memory
	// Allocator backs the per-call arena.
	Allocator() autolink.Allocator
	// Symbols is the default lookup tier.
	Symbols() symbol.Table
	// Bind produces an invocable entry for sym with the given native type.
	Bind(sym symbol.Symbol, sig abi.Signature, opts []abi.Option) (abi.Entry, error)
	// Pin exposes the backing array of a Go slice to native code for the
	// duration of a call. Backends whose native code cannot address Go
	// memory return false.
	Pin(v reflect.Value) (addr autolink.Addr, unpin func(), ok bool)
}
