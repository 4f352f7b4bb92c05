package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the binding lifecycle the error occurred
type Phase string

const (
	PhaseConfigure Phase = "configure" // descriptor build, rejected surfaces
	PhaseMarshal   Phase = "marshal"   // static type/rule incompatibility
	PhaseLink      Phase = "link"      // symbol resolution and binding
	PhaseCall      Phase = "call"      // per-call argument staging and results
	PhaseLoad      Phase = "load"      // library and module loading
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidDescriptor Kind = "invalid_descriptor"
	KindInvalidOption     Kind = "invalid_option"
	KindTypeMismatch      Kind = "type_mismatch"
	KindUnsupported       Kind = "unsupported"
	KindNotFound          Kind = "not_found"
	KindSignature         Kind = "signature"
	KindInvalidInput      Kind = "invalid_input"
	KindInvalidEnum       Kind = "invalid_enum"
	KindAllocation        Kind = "allocation"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindInvalidData       Kind = "invalid_data"
)

// ErrSymbolNotFound matches every link failure caused by a symbol that is
// absent from all lookup tiers.
var ErrSymbolNotFound = &Error{Phase: PhaseLink, Kind: KindNotFound}

// Error is the structured error type used throughout the module
type Error struct {
	Value      any
	Cause      error
	Phase      Phase
	Kind       Kind
	GoType     string
	NativeType string
	Symbol     string
	Detail     string
	Path       []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Symbol != "" {
		b.WriteString(" symbol ")
		b.WriteString(e.Symbol)
	}

	typed := e.GoType != "" || e.NativeType != ""
	if typed {
		b.WriteString(": ")
		switch {
		case e.GoType != "" && e.NativeType != "":
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", native ")
			b.WriteString(e.NativeType)
		case e.GoType != "":
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		default:
			b.WriteString("native ")
			b.WriteString(e.NativeType)
		}
	}

	if e.Detail != "" {
		if typed {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the method/parameter path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// NativeType sets the native rule or layout name
func (b *Builder) NativeType(t string) *Builder {
	b.err.NativeType = t
	return b
}

// Symbol sets the native symbol name
func (b *Builder) Symbol(name string) *Builder {
	b.err.Symbol = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// IsConfiguration reports whether err is a descriptor configuration error
func IsConfiguration(err error) bool {
	return phaseOf(err) == PhaseConfigure
}

// IsLink reports whether err is a link failure
func IsLink(err error) bool {
	return phaseOf(err) == PhaseLink
}

// IsMarshal reports whether err is a static marshalling error
func IsMarshal(err error) bool {
	return phaseOf(err) == PhaseMarshal
}

func phaseOf(err error) Phase {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Phase
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// Convenience constructors for common error patterns

// InvalidDescriptor creates a descriptor configuration error
func InvalidDescriptor(path []string, detail string, args ...any) *Error {
	return New(PhaseConfigure, KindInvalidDescriptor).Path(path...).Detail(detail, args...).Build()
}

// TypeMismatch creates a marshalling error for a Go type the rule cannot carry
func TypeMismatch(path []string, goType, rule string) *Error {
	return &Error{
		Phase:      PhaseMarshal,
		Kind:       KindTypeMismatch,
		Path:       path,
		GoType:     goType,
		NativeType: rule,
	}
}

// SymbolNotFound creates the link failure for an unresolved symbol
func SymbolNotFound(name string) *Error {
	return &Error{
		Phase:  PhaseLink,
		Kind:   KindNotFound,
		Symbol: name,
		Detail: "not present in local or default symbol table",
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(size, align uint64, cause error) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
		Cause:  cause,
	}
}

// OutOfBounds creates a memory access error
func OutOfBounds(addr, length uint64) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("memory access out of bounds: addr=%#x len=%d", addr, length),
		Value:  addr,
	}
}

// InvalidEnum creates an invalid native code error
func InvalidEnum(code int32, enumType string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindInvalidEnum,
		GoType: enumType,
		Detail: fmt.Sprintf("unknown native code %d", code),
		Value:  code,
	}
}

// InvalidInput creates a per-call argument error
func InvalidInput(path []string, detail string, args ...any) *Error {
	return New(PhaseCall, KindInvalidInput).Path(path...).Detail(detail, args...).Build()
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a library loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}
