package main

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/wippyai/autolink"
	"github.com/wippyai/autolink/descriptor"
)

var stateType = reflect.TypeFor[*autolink.CallState]()

// parseArgs converts command-line text to the Go parameters of d. A
// capture parameter consumes no text; a fresh CallState is passed instead.
func parseArgs(d *descriptor.MethodDescriptor, raw []string) ([]reflect.Value, *autolink.CallState, error) {
	sig := d.Signature
	var state *autolink.CallState
	args := make([]reflect.Value, sig.NumIn())
	next := 0
	for i := range args {
		t := sig.In(i)
		if t == stateType {
			state = &autolink.CallState{}
			args[i] = reflect.ValueOf(state)
			continue
		}
		if next >= len(raw) {
			return nil, nil, fmt.Errorf("%s: missing argument %d (%s)", d.Name, i, t)
		}
		v, err := parseValue(raw[next], t)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: argument %d: %w", d.Name, i, err)
		}
		args[i] = v
		next++
	}
	if next != len(raw) {
		return nil, nil, fmt.Errorf("%s: %d arguments given, %d expected", d.Name, len(raw), next)
	}
	return args, state, nil
}

// parseValue parses s as a value of type t. Slices other than []byte are
// comma-separated; a []byte takes the text verbatim with a NUL appended.
func parseValue(s string, t reflect.Type) (reflect.Value, error) {
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return v, err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 0, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(s, 0, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetFloat(f)
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			v.SetBytes(append([]byte(s), 0))
			return v, nil
		}
		var parts []string
		if s != "" {
			parts = strings.Split(s, ",")
		}
		v.Set(reflect.MakeSlice(t, len(parts), len(parts)))
		for i, p := range parts {
			e, err := parseValue(strings.TrimSpace(p), t.Elem())
			if err != nil {
				return v, err
			}
			v.Index(i).Set(e)
		}
	case reflect.Pointer:
		e, err := parseValue(s, t.Elem())
		if err != nil {
			return v, err
		}
		v.Set(reflect.New(t.Elem()))
		v.Elem().Set(e)
	case reflect.Struct:
		if t != reflect.TypeFor[autolink.Segment]() {
			return v, fmt.Errorf("cannot parse %s", t)
		}
		addr, n, ok := strings.Cut(s, ":")
		if !ok {
			return v, fmt.Errorf("segment %q: want addr:len", s)
		}
		a, err := strconv.ParseUint(addr, 0, 64)
		if err != nil {
			return v, err
		}
		l, err := strconv.ParseUint(n, 0, 64)
		if err != nil {
			return v, err
		}
		v.Set(reflect.ValueOf(autolink.Segment{Addr: autolink.Addr(a), Len: l}))
	default:
		return v, fmt.Errorf("cannot parse %s", t)
	}
	return v, nil
}

// formatSite renders a method as name(params) -> result.
func formatSite(d *descriptor.MethodDescriptor) string {
	var params []string
	for _, p := range d.Params {
		s := p.Type.String()
		if r := p.Rule.String(); r != "" {
			s += " " + r
		}
		if p.Dir != descriptor.DirDefault {
			s += " " + p.Dir.String()
		}
		params = append(params, s)
	}
	res := ""
	if d.Return.Type != nil {
		res = " -> " + d.Return.Type.String()
	}
	name := d.Name
	if d.LinkName != d.Name {
		name += " [" + d.LinkName + "]"
	}
	return name + "(" + strings.Join(params, ", ") + ")" + res
}

// formatResult renders the result, by-reference arguments after the call,
// and any captured state.
func formatResult(out reflect.Value, args []reflect.Value, state *autolink.CallState) string {
	var b strings.Builder
	if out.IsValid() {
		fmt.Fprintf(&b, "%v", out.Interface())
	} else {
		b.WriteString("(void)")
	}
	for i, a := range args {
		switch a.Kind() {
		case reflect.Slice:
			if a.Type().Elem().Kind() == reflect.Uint8 {
				fmt.Fprintf(&b, " arg%d=%q", i, a.Bytes())
			} else {
				fmt.Fprintf(&b, " arg%d=%v", i, a.Interface())
			}
		case reflect.Pointer:
			if a.Type() != stateType && !a.IsNil() {
				fmt.Fprintf(&b, " arg%d=%v", i, a.Elem().Interface())
			}
		}
	}
	if state != nil {
		fmt.Fprintf(&b, " errno=%d", state.Errno())
	}
	return b.String()
}
