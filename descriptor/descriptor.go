package descriptor

import (
	"reflect"

	"github.com/wippyai/autolink/transform"
)

// MethodDescriptor is the resolved, immutable description of one linkable
// method.
type MethodDescriptor struct {
	Key       string // name plus Go signature; unique within a binding
	Name      string
	LinkName  string
	Surface   string // surface that declared the method
	Signature reflect.Type
	Params    []ParamDescriptor
	Steps     []Step // transformation list in call order, markers included
	Return    ReturnDescriptor
	Critical  bool
	Heap      bool
	Capture   []string
	// ReturnsError is set when the Go signature ends in an error result.
	ReturnsError bool
}

// ParamDescriptor is one resolved parameter.
type ParamDescriptor struct {
	Type    reflect.Type
	Lower   transform.Lower // scalar rules only
	Charset transform.Charset
	Index   int
	Rule    transform.Rule
	Source  transform.PtrSource // pointer rule only
	Dir     Direction
}

// ReturnDescriptor is the resolved result.
type ReturnDescriptor struct {
	Type    reflect.Type // nil for void
	Lift    transform.Lift
	Charset transform.Charset
	Rule    transform.Rule
	Source  transform.PtrSource // pointer rule only
}

// Step is one entry of the transformation list. Param is the parameter the
// step belongs to; Arg is the count of arguments consumed before it.
type Step struct {
	Rule  transform.Rule
	Param int
	Arg   int
}

// NeedsArena reports whether a call needs a per-call arena when direct heap
// access is available or not.
func (d *MethodDescriptor) NeedsArena(heapAccess bool) bool {
	heap := d.Heap && heapAccess
	for _, p := range d.Params {
		if p.Rule.NeedsArena(p.Type, heap) {
			return true
		}
	}
	return false
}

// FirstVariadic returns the argument position of the variadic marker.
func (d *MethodDescriptor) FirstVariadic() (int, bool) {
	for _, s := range d.Steps {
		if s.Rule == transform.RuleStartVariadic {
			return s.Arg, true
		}
	}
	return 0, false
}
