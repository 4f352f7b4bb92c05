package linker

import (
	"context"
	"reflect"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/autolink/abi"
	"github.com/wippyai/autolink/descriptor"
	"github.com/wippyai/autolink/errors"
	"github.com/wippyai/autolink/symbol"
	"github.com/wippyai/autolink/transform"
)

// Site is the lazily linked call site of one method.
type Site struct {
	desc    *descriptor.MethodDescriptor
	binding *Binding
	adapter *Adapter
	err     error
	once    sync.Once
}

// Adapter is the compiled form of a site.
type Adapter struct {
	entry     abi.Entry
	backend   Backend
	plan      *plan
	Symbol    symbol.Symbol
	Signature abi.Signature
	Options   []abi.Option
}

// Descriptor returns the method descriptor of the site.
func (s *Site) Descriptor() *descriptor.MethodDescriptor {
	return s.desc
}

// Adapter links the site on first use and returns the cached result, the
// adapter or the link error, on every call.
func (s *Site) Adapter() (*Adapter, error) {
	s.once.Do(func() {
		s.adapter, s.err = s.link()
	})
	return s.adapter, s.err
}

// Invoke calls the method with one value per declared parameter. A void
// method returns the zero reflect.Value.
func (s *Site) Invoke(ctx context.Context, args []reflect.Value) (reflect.Value, error) {
	a, err := s.Adapter()
	if err != nil {
		return reflect.Value{}, err
	}
	return a.invoke(ctx, args)
}

func (s *Site) link() (*Adapter, error) {
	l := s.binding.linker
	d := s.desc
	log := Logger().With(
		zap.Stringer("binding", s.binding.ID),
		zap.String("method", d.Name),
		zap.String("symbol", d.LinkName))

	sym, err := l.resolver.Resolve(d.LinkName)
	if err != nil {
		log.Debug("site link failed", zap.Error(err))
		return nil, err
	}

	sig, err := signature(l.registry, d)
	if err != nil {
		log.Debug("site link failed", zap.Error(err))
		return nil, err
	}
	opts := options(d)

	entry, err := l.backend.Bind(sym, sig, opts)
	if err != nil {
		if _, ok := err.(*errors.Error); !ok {
			err = errors.Wrap(errors.PhaseLink, errors.KindSignature, err, "bind "+sig.String())
		}
		log.Debug("site link failed", zap.Error(err))
		return nil, err
	}

	a := &Adapter{
		Symbol:    sym,
		Signature: sig,
		Options:   opts,
		entry:     entry,
		backend:   l.backend,
		plan:      compile(d, l.options.MaxStringLen),
	}
	log.Debug("site linked",
		zap.Stringer("signature", sig),
		zap.Int("options", len(opts)))
	return a, nil
}

// signature derives the native function type: one layout per rule that
// occupies an argument slot, and the result layout unless void. A result
// rule on a Go method without results is still part of the native type;
// its value is dropped.
func signature(reg *transform.Registry, d *descriptor.MethodDescriptor) (abi.Signature, error) {
	var sig abi.Signature
	for _, st := range d.Steps {
		if !st.Rule.HasLayout() {
			continue
		}
		lay, ok := reg.Layout(st.Rule)
		if !ok {
			return sig, errors.New(errors.PhaseLink, errors.KindUnsupported).
				Path(d.Surface, d.Name, strconv.Itoa(st.Param)).
				NativeType(st.Rule.String()).
				Detail("rule has no layout on %s", reg.Platform()).
				Build()
		}
		sig.Params = append(sig.Params, lay)
	}
	if d.Return.Rule.HasLayout() {
		lay, ok := reg.Layout(d.Return.Rule)
		if !ok {
			return sig, errors.New(errors.PhaseLink, errors.KindUnsupported).
				Path(d.Surface, d.Name, "result").
				NativeType(d.Return.Rule.String()).
				Build()
		}
		sig.Result = &lay
	}
	return sig, nil
}

// options emits the option of every marker in parameter order, then the
// critical option.
func options(d *descriptor.MethodDescriptor) []abi.Option {
	var opts []abi.Option
	for _, st := range d.Steps {
		switch st.Rule {
		case transform.RuleStartVariadic:
			opts = append(opts, abi.FirstVariadic(st.Arg))
		case transform.RuleCapture:
			opts = append(opts, abi.CaptureState(d.Capture...))
		}
	}
	if d.Critical {
		opts = append(opts, abi.Critical(d.Heap))
	}
	return opts
}

// values converts dynamically typed arguments to the declared types.
func (s *Site) values(args []any) ([]reflect.Value, error) {
	sig := s.desc.Signature
	path := []string{s.desc.Surface, s.desc.Name}
	if len(args) != sig.NumIn() {
		return nil, errors.InvalidInput(path, "%d arguments for %d parameters", len(args), sig.NumIn())
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		t := sig.In(i)
		if a == nil {
			switch t.Kind() {
			case reflect.Pointer, reflect.Slice, reflect.UnsafePointer, reflect.Interface:
				in[i] = reflect.Zero(t)
				continue
			}
			return nil, errors.InvalidInput(append(path, strconv.Itoa(i)), "nil for %s", t)
		}
		v := reflect.ValueOf(a)
		if !v.Type().AssignableTo(t) {
			return nil, errors.New(errors.PhaseCall, errors.KindInvalidInput).
				Path(append(path, strconv.Itoa(i))...).
				GoType(v.Type().String()).
				Detail("not assignable to %s", t).
				Build()
		}
		if v.Type() != t {
			c := reflect.New(t).Elem()
			c.Set(v)
			v = c
		}
		in[i] = v
	}
	return in, nil
}

// stub is the body of a populated func field.
func (s *Site) stub() func([]reflect.Value) []reflect.Value {
	d := s.desc
	return func(in []reflect.Value) []reflect.Value {
		v, err := s.Invoke(context.Background(), in)
		if err != nil && !d.ReturnsError {
			panic(err)
		}
		out := make([]reflect.Value, 0, 2)
		if d.Return.Type != nil {
			if err != nil || !v.IsValid() {
				v = reflect.Zero(d.Return.Type)
			}
			out = append(out, v)
		}
		if d.ReturnsError {
			if err == nil {
				out = append(out, reflect.Zero(errorType))
			} else {
				out = append(out, reflect.ValueOf(&err).Elem())
			}
		}
		return out
	}
}
