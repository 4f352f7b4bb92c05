package descriptor

import (
	"reflect"
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/autolink/errors"
	"github.com/wippyai/autolink/transform"
)

var errorType = reflect.TypeFor[error]()

// Builder resolves surfaces into method descriptors for one registry.
type Builder struct {
	registry *transform.Registry
}

// NewBuilder creates a builder. A nil registry selects transform.Host().
func NewBuilder(registry *transform.Registry) *Builder {
	if registry == nil {
		registry = transform.Host()
	}
	return &Builder{registry: registry}
}

// Order returns root followed by its ancestors in visiting order. Each
// surface's unvisited direct ancestors are queued together, then each of
// them is expanded the same way, so a shared ancestor appears once, at its
// first discovery.
func Order(root *Surface) []*Surface {
	queue := []*Surface{root}
	visited := make(map[*Surface]bool)
	var populate func(s *Surface)
	populate = func(s *Surface) {
		var fresh []*Surface
		for _, sup := range s.Extends {
			if sup != nil && !visited[sup] {
				visited[sup] = true
				fresh = append(fresh, sup)
			}
		}
		queue = append(queue, fresh...)
		for _, sup := range fresh {
			populate(sup)
		}
	}
	populate(root)
	return queue
}

// Build resolves every linkable method reachable from root. A method whose
// key was already seen is ignored, so the first declaration in visiting
// order wins.
func (b *Builder) Build(root *Surface) ([]*MethodDescriptor, error) {
	if root == nil {
		return nil, errors.InvalidDescriptor(nil, "nil surface")
	}
	if root.Concrete {
		return nil, errors.InvalidDescriptor([]string{root.Name}, "surface is concrete, not an interface")
	}

	seen := make(map[string]bool)
	var out []*MethodDescriptor
	for _, s := range Order(root) {
		for i := range s.Methods {
			m := &s.Methods[i]
			if m.Static || m.Default || m.Link == nil {
				continue
			}
			if m.Signature == nil || m.Signature.Kind() != reflect.Func {
				return nil, errors.InvalidDescriptor([]string{s.Name, m.Name}, "signature is not a function type")
			}
			key := m.Name + m.Signature.String()
			if seen[key] {
				Logger().Debug("ignoring shadowed method",
					zap.String("surface", s.Name),
					zap.String("key", key))
				continue
			}
			seen[key] = true

			d, err := b.method(s, m)
			if err != nil {
				return nil, err
			}
			d.Key = key
			out = append(out, d)
		}
	}
	return out, nil
}

func (b *Builder) method(s *Surface, m *Method) (*MethodDescriptor, error) {
	path := []string{s.Name, m.Name}
	sig := m.Signature
	if sig.IsVariadic() {
		return nil, errors.InvalidDescriptor(path, "Go variadic signatures are not supported, mark a parameter as variadic start instead")
	}
	if len(m.Params) != 0 && len(m.Params) != sig.NumIn() {
		return nil, errors.InvalidDescriptor(path, "%d parameter entries for %d parameters", len(m.Params), sig.NumIn())
	}

	d := &MethodDescriptor{
		Name:      m.Name,
		LinkName:  m.Name,
		Surface:   s.Name,
		Signature: sig,
	}
	if m.Link.Name != "" {
		d.LinkName = m.Link.Name
	}
	if c := m.Link.Critical; c != nil {
		d.Critical = true
		d.Heap = c.Heap
	}

	arg := 0
	for i := 0; i < sig.NumIn(); i++ {
		var p Param
		if len(m.Params) != 0 {
			p = m.Params[i]
		}
		ppath := append(path[:2:2], strconv.Itoa(i))

		capture := p.Capture
		if i == 0 && len(m.Capture) > 0 {
			capture = append(append([]string(nil), m.Capture...), capture...)
		}

		if p.VariadicStart {
			d.Steps = append(d.Steps, Step{Rule: transform.RuleStartVariadic, Param: i, Arg: arg})
		}

		pd, err := b.param(ppath, sig.In(i), p, capture)
		if err != nil {
			return nil, err
		}
		pd.Index = i
		if pd.Rule == transform.RuleCapture {
			if d.Capture != nil {
				return nil, errors.InvalidDescriptor(ppath, "more than one capture parameter")
			}
			if arg != 0 {
				return nil, errors.InvalidDescriptor(ppath, "capture must be the first argument, found at argument %d", arg)
			}
			d.Capture = capture
		}
		d.Params = append(d.Params, pd)
		d.Steps = append(d.Steps, Step{Rule: pd.Rule, Param: i, Arg: arg})
		if pd.Rule.ConsumesArgument() {
			arg++
		}
	}
	if arg != sig.NumIn() {
		return nil, errors.InvalidDescriptor(path, "%d arguments consumed for %d parameters", arg, sig.NumIn())
	}

	if d.Critical && d.Capture != nil {
		return nil, errors.New(errors.PhaseConfigure, errors.KindInvalidOption).
			Path(path...).
			Detail("critical calls cannot capture call state").
			Build()
	}

	ret, returnsError, err := b.result(path, sig, m.Result)
	if err != nil {
		return nil, err
	}
	d.Return = ret
	d.ReturnsError = returnsError

	Logger().Debug("built method descriptor",
		zap.String("surface", s.Name),
		zap.String("method", m.Name),
		zap.String("link", d.LinkName),
		zap.Int("steps", len(d.Steps)))
	return d, nil
}

func (b *Builder) param(path []string, t reflect.Type, p Param, capture []string) (ParamDescriptor, error) {
	pd := ParamDescriptor{Type: t, Dir: p.Dir}

	cs, err := transform.LookupCharset(p.Charset)
	if err != nil {
		return pd, err
	}
	pd.Charset = cs

	switch {
	case len(capture) > 0:
		pd.Rule = transform.RuleCapture
	case p.As != transform.AsNone:
		pd.Rule = b.registry.For(p.As)
	default:
		rule, err := b.registry.ForType(t)
		if err != nil {
			return pd, withPath(err, path)
		}
		pd.Rule = rule
	}

	switch pd.Rule {
	case transform.RuleCapture:
		if !transform.IsCallState(t) {
			return pd, errors.TypeMismatch(path, t.String(), "CAPTURE")
		}
		if len(capture) == 0 {
			return pd, errors.InvalidDescriptor(path, "capture parameter names no state")
		}
	case transform.RuleVoid:
	case transform.RulePtr:
		pd.Source = transform.ClassifyPointer(t)
		if pd.Source == transform.PtrNone {
			return pd, errors.TypeMismatch(path, t.String(), "PTR")
		}
	default:
		lower, err := b.registry.Lowerer(pd.Rule, t)
		if err != nil {
			return pd, withPath(err, path)
		}
		pd.Lower = lower
	}

	buffered := pd.Source == transform.PtrSlice || pd.Source == transform.PtrRef
	switch {
	case buffered && pd.Dir == DirDefault:
		pd.Dir = DirInOut
	case !buffered && pd.Dir.Out():
		return pd, errors.New(errors.PhaseConfigure, errors.KindInvalidOption).
			Path(path...).
			GoType(t.String()).
			Detail("direction %s needs a buffer-backed pointer parameter", pd.Dir).
			Build()
	case !buffered && pd.Rule == transform.RulePtr:
		pd.Dir = DirIn
	}
	return pd, nil
}

func (b *Builder) result(path []string, sig reflect.Type, r Result) (ReturnDescriptor, bool, error) {
	var rd ReturnDescriptor
	outs := sig.NumOut()
	returnsError := outs > 0 && sig.Out(outs-1) == errorType
	if returnsError {
		outs--
	}
	if outs > 1 {
		return rd, false, errors.InvalidDescriptor(path, "%d results, at most one value result is supported", outs)
	}
	if outs == 1 {
		rd.Type = sig.Out(0)
	}
	rpath := append(path[:2:2], "result")

	cs, err := transform.LookupCharset(r.Charset)
	if err != nil {
		return rd, false, err
	}
	rd.Charset = cs

	if r.As != transform.AsNone {
		rd.Rule = b.registry.For(r.As)
	} else {
		rule, err := b.registry.ForType(rd.Type)
		if err != nil {
			return rd, false, withPath(err, rpath)
		}
		rd.Rule = rule
	}

	switch rd.Rule {
	case transform.RuleCapture, transform.RuleStartVariadic:
		return rd, false, errors.InvalidDescriptor(rpath, "%s cannot be a result", rd.Rule)
	case transform.RulePtr:
		if rd.Type == nil {
			break
		}
		rd.Source = transform.ClassifyPointer(rd.Type)
		switch rd.Source {
		case transform.PtrAddr, transform.PtrUnsafe, transform.PtrSegment, transform.PtrString:
		default:
			return rd, false, errors.TypeMismatch(rpath, rd.Type.String(), "PTR")
		}
	default:
		lift, err := b.registry.Lifter(rd.Rule, rd.Type)
		if err != nil {
			return rd, false, withPath(err, rpath)
		}
		rd.Lift = lift
	}
	return rd, returnsError, nil
}

func withPath(err error, path []string) error {
	if e, ok := err.(*errors.Error); ok && e.Path == nil {
		c := *e
		c.Path = path
		return &c
	}
	return err
}
