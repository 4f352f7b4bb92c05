package descriptor

import (
	"reflect"
	"strings"

	"github.com/wippyai/autolink/errors"
	"github.com/wippyai/autolink/transform"
)

// Surface is a declared set of methods that can be bound as a unit. Extends
// lists the directly inherited surfaces; the graph may be diamond-shaped.
type Surface struct {
	Name     string
	Concrete bool
	Extends  []*Surface
	Methods  []Method
}

// Method is one declared function of a surface.
type Method struct {
	Name string
	// Signature is the Go function type of the method. A trailing error
	// result is the error channel and takes no part in marshalling.
	Signature reflect.Type
	Static    bool
	Default   bool
	Link      *Link   // nil methods are never linked
	Params    []Param // empty, or one entry per signature parameter
	Result    Result
	// Capture marks the first parameter as the call-state sink.
	Capture []string
}

// Link is the linkage metadata of a method.
type Link struct {
	Name     string // native symbol; defaults to the method name
	Critical *Critical
}

// Critical requests a critical call. Heap lets pointer arguments reference
// Go memory directly instead of staging a copy.
type Critical struct {
	Heap bool
}

// Param is the per-parameter metadata.
type Param struct {
	As            transform.AsType
	Dir           Direction
	VariadicStart bool
	Capture       []string
	Charset       string
}

// Result is the return metadata.
type Result struct {
	As      transform.AsType
	Charset string
}

// Linked declares a linkable method whose Go signature is the type of proto,
// typically a nil function value such as (func(string) int32)(nil).
func Linked(name string, proto any, params ...Param) Method {
	return Method{
		Name:      name,
		Signature: reflect.TypeOf(proto),
		Link:      &Link{},
		Params:    params,
	}
}

// Direction is the data flow of a buffer-backed parameter relative to the call.
type Direction uint8

const (
	DirDefault Direction = iota
	DirIn
	DirOut
	DirInOut
)

var directionNames = [...]string{
	DirDefault: "",
	DirIn:      "in",
	DirOut:     "out",
	DirInOut:   "in_out",
}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return "unknown"
}

// In reports whether data is copied into native memory before the call.
func (d Direction) In() bool {
	return d == DirIn || d == DirInOut
}

// Out reports whether data is copied back after the call.
func (d Direction) Out() bool {
	return d == DirOut || d == DirInOut
}

// ParseDirection parses "in", "out", "in_out" or "inout".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "":
		return DirDefault, nil
	case "in":
		return DirIn, nil
	case "out":
		return DirOut, nil
	case "in_out", "inout":
		return DirInOut, nil
	}
	return DirDefault, errors.InvalidDescriptor(nil, "unknown direction %q", s)
}
