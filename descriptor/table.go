package descriptor

import (
	"os"
	"reflect"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/autolink/errors"
	"github.com/wippyai/autolink/transform"
)

// Table is a set of surfaces loaded from a descriptor file.
type Table struct {
	surfaces map[string]*Surface
	order    []string
}

// Surface returns the named surface.
func (t *Table) Surface(name string) (*Surface, bool) {
	s, ok := t.surfaces[name]
	return s, ok
}

// Names returns the surface names in file order.
func (t *Table) Names() []string {
	return append([]string(nil), t.order...)
}

type tableFile struct {
	Surfaces []surfaceEntry `yaml:"surfaces"`
}

type surfaceEntry struct {
	Name     string        `yaml:"name"`
	Extends  []string      `yaml:"extends"`
	Methods  []methodEntry `yaml:"methods"`
	Concrete bool          `yaml:"concrete"`
}

type methodEntry struct {
	Link    *linkEntry   `yaml:"link"`
	Result  *resultEntry `yaml:"result"`
	Name    string       `yaml:"name"`
	Params  []paramEntry `yaml:"params"`
	Capture []string     `yaml:"capture"`
	Static  bool         `yaml:"static"`
	Default bool         `yaml:"default"`
}

type linkEntry struct {
	Critical *Critical `yaml:"critical"`
	Name     string    `yaml:"name"`
}

type paramEntry struct {
	Type     string   `yaml:"type"`
	As       string   `yaml:"as"`
	Dir      string   `yaml:"dir"`
	Charset  string   `yaml:"charset"`
	Capture  []string `yaml:"capture"`
	Variadic bool     `yaml:"variadic"`
}

type resultEntry struct {
	Type    string `yaml:"type"`
	As      string `yaml:"as"`
	Charset string `yaml:"charset"`
}

// Load reads a descriptor table from a YAML file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load("read descriptor table "+path, err)
	}
	return Parse(data)
}

// Parse parses a YAML descriptor table.
func Parse(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(errors.PhaseConfigure, errors.KindInvalidDescriptor, err, "parse descriptor table")
	}

	t := &Table{surfaces: make(map[string]*Surface, len(f.Surfaces))}
	for _, se := range f.Surfaces {
		if se.Name == "" {
			return nil, errors.InvalidDescriptor(nil, "surface without name")
		}
		if _, dup := t.surfaces[se.Name]; dup {
			return nil, errors.InvalidDescriptor([]string{se.Name}, "duplicate surface")
		}
		t.surfaces[se.Name] = &Surface{Name: se.Name, Concrete: se.Concrete}
		t.order = append(t.order, se.Name)
	}

	for _, se := range f.Surfaces {
		s := t.surfaces[se.Name]
		for _, name := range se.Extends {
			sup, ok := t.surfaces[name]
			if !ok {
				return nil, errors.InvalidDescriptor([]string{se.Name}, "extends unknown surface %q", name)
			}
			s.Extends = append(s.Extends, sup)
		}
		for _, me := range se.Methods {
			m, err := me.method([]string{se.Name, me.Name})
			if err != nil {
				return nil, err
			}
			s.Methods = append(s.Methods, m)
		}
	}
	return t, nil
}

func (me methodEntry) method(path []string) (Method, error) {
	m := Method{
		Name:    me.Name,
		Static:  me.Static,
		Default: me.Default,
		Capture: me.Capture,
	}
	if me.Name == "" {
		return m, errors.InvalidDescriptor(path, "method without name")
	}
	if me.Link != nil {
		m.Link = &Link{Name: me.Link.Name, Critical: me.Link.Critical}
	}

	ins := make([]reflect.Type, 0, len(me.Params))
	for i, pe := range me.Params {
		ppath := append(path[:2:2], strconv.Itoa(i))
		t, err := ParseType(pe.Type)
		if err != nil {
			return m, withPath(err, ppath)
		}
		ins = append(ins, t)

		p := Param{VariadicStart: pe.Variadic, Capture: pe.Capture, Charset: pe.Charset}
		if p.As, err = parseAs(pe.As, ppath); err != nil {
			return m, err
		}
		if p.Dir, err = ParseDirection(pe.Dir); err != nil {
			return m, withPath(err, ppath)
		}
		m.Params = append(m.Params, p)
	}

	var outs []reflect.Type
	if me.Result != nil {
		rpath := append(path[:2:2], "result")
		if me.Result.Type != "" && me.Result.Type != "void" {
			t, err := ParseType(me.Result.Type)
			if err != nil {
				return m, withPath(err, rpath)
			}
			outs = append(outs, t)
		}
		as, err := parseAs(me.Result.As, rpath)
		if err != nil {
			return m, err
		}
		m.Result = Result{As: as, Charset: me.Result.Charset}
	}
	m.Signature = reflect.FuncOf(ins, outs, false)
	return m, nil
}

func parseAs(s string, path []string) (transform.AsType, error) {
	if s == "" {
		return transform.AsNone, nil
	}
	as, ok := transform.ParseAsType(s)
	if !ok {
		return as, errors.InvalidDescriptor(path, "unknown native type %q", s)
	}
	return as, nil
}
