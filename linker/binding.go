package linker

import (
	"context"
	"reflect"
	"strings"

	"github.com/google/uuid"

	"github.com/wippyai/autolink/errors"
)

var errorType = reflect.TypeFor[error]()

// Binding is the published set of call sites of one surface.
type Binding struct {
	ID     uuid.UUID
	name   string
	linker *Linker
	sites  []*Site
	byKey  map[string]*Site
	byName map[string][]*Site
}

// Name returns the surface name.
func (b *Binding) Name() string {
	return b.name
}

// Sites returns the call sites in method order.
func (b *Binding) Sites() []*Site {
	return append([]*Site(nil), b.sites...)
}

// Site returns the site with the given descriptor key, or the only site
// with that method name.
func (b *Binding) Site(key string) (*Site, bool) {
	if s, ok := b.byKey[key]; ok {
		return s, true
	}
	if sites := b.byName[key]; len(sites) == 1 {
		return sites[0], true
	}
	return nil, false
}

// Call invokes the method named name. Arguments must be assignable to the
// declared parameter types; nil is accepted for pointer-like parameters.
// A void method returns nil.
func (b *Binding) Call(ctx context.Context, name string, args ...any) (any, error) {
	sites := b.byName[name]
	switch len(sites) {
	case 0:
		return nil, errors.New(errors.PhaseCall, errors.KindNotFound).
			Path(b.name, name).
			Detail("no such method").
			Build()
	case 1:
	default:
		return nil, errors.InvalidInput([]string{b.name, name}, "%d overloads, select one with Site", len(sites))
	}
	s := sites[0]

	in, err := s.values(args)
	if err != nil {
		return nil, err
	}
	out, err := s.Invoke(ctx, in)
	if err != nil || !out.IsValid() {
		return nil, err
	}
	return out.Interface(), nil
}

// Populate fills the func-typed fields of the struct ptr points to. A field
// matches a method by its `autolink:"name"` tag or by case-insensitive
// field name, and its type must equal the method's Go signature. Fields
// with a trailing error result receive call errors; other fields panic on
// failure.
func (b *Binding) Populate(ptr any) error {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return errors.InvalidInput([]string{b.name}, "populate needs a pointer to struct, got %T", ptr)
	}
	v = v.Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Type.Kind() != reflect.Func || !f.IsExported() {
			continue
		}
		name := f.Tag.Get("autolink")
		if name == "-" {
			continue
		}
		s := b.lookupField(name, f.Name)
		if s == nil {
			continue
		}
		if f.Type != s.desc.Signature {
			return errors.New(errors.PhaseConfigure, errors.KindTypeMismatch).
				Path(b.name, s.desc.Name).
				GoType(f.Type.String()).
				Detail("field %s does not match %s", f.Name, s.desc.Signature).
				Build()
		}
		v.Field(i).Set(reflect.MakeFunc(f.Type, s.stub()))
	}
	return nil
}

func (b *Binding) lookupField(tag, field string) *Site {
	if tag != "" {
		s, _ := b.Site(tag)
		return s
	}
	for _, s := range b.sites {
		if strings.EqualFold(s.desc.Name, field) && len(b.byName[s.desc.Name]) == 1 {
			return s
		}
	}
	return nil
}
