//go:build !darwin && !linux

package native

import (
	"reflect"

	"github.com/wippyai/autolink"
	"github.com/wippyai/autolink/abi"
	"github.com/wippyai/autolink/errors"
	"github.com/wippyai/autolink/platform"
	"github.com/wippyai/autolink/symbol"
)

var runtimeLibraries []string

var errUnsupported = errors.Unsupported(errors.PhaseLoad, "host backend on this platform")

// Library is unavailable on this platform.
type Library struct{}

// Open always fails on this platform.
func Open(string) (*Library, error) { return nil, errUnsupported }

// Lookup implements symbol.Table.
func (*Library) Lookup(string) (symbol.Symbol, bool) { return symbol.Symbol{}, false }

// Close implements io.Closer.
func (*Library) Close() error { return nil }

// Process always fails on this platform.
func Process() (symbol.Chain, error) { return nil, errUnsupported }

// Backend is unavailable on this platform.
type Backend struct{}

// New always fails on this platform.
func New(Options) (*Backend, error) { return nil, errUnsupported }

func (*Backend) Close() error                                    { return nil }
func (*Backend) Platform() platform.Config                       { return platform.Host() }
func (*Backend) Memory() autolink.Memory                         { return nil }
func (*Backend) Allocator() autolink.Allocator                   { return nil }
func (*Backend) Symbols() symbol.Table                           { return symbol.Chain(nil) }
func (*Backend) Pin(reflect.Value) (autolink.Addr, func(), bool) { return 0, nil, false }

func (*Backend) Bind(symbol.Symbol, abi.Signature, []abi.Option) (abi.Entry, error) {
	return nil, errUnsupported
}
