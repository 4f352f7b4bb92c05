package transform

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/wippyai/autolink/errors"
)

// Charset encodes text arguments for the pointer rule.
type Charset struct {
	Name     string
	Encoding encoding.Encoding
	Unit     int // code unit width in bytes, also the terminator width
}

// DefaultCharset is the charset used when a parameter names none.
var DefaultCharset = Charset{Name: "utf-8", Encoding: unicode.UTF8, Unit: 1}

var charsets = map[string]Charset{
	"utf-8":        DefaultCharset,
	"utf8":         DefaultCharset,
	"utf-16le":     {Name: "utf-16le", Encoding: unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), Unit: 2},
	"utf-16be":     {Name: "utf-16be", Encoding: unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), Unit: 2},
	"iso-8859-1":   {Name: "iso-8859-1", Encoding: charmap.ISO8859_1, Unit: 1},
	"latin1":       {Name: "iso-8859-1", Encoding: charmap.ISO8859_1, Unit: 1},
	"windows-1252": {Name: "windows-1252", Encoding: charmap.Windows1252, Unit: 1},
}

// LookupCharset returns the charset registered under name. The empty name
// selects DefaultCharset.
func LookupCharset(name string) (Charset, error) {
	if name == "" {
		return DefaultCharset, nil
	}
	cs, ok := charsets[strings.ToLower(name)]
	if !ok {
		return Charset{}, errors.Unsupported(errors.PhaseConfigure, "charset "+name)
	}
	return cs, nil
}

// Encode returns s encoded with a trailing NUL terminator. Text that
// contains NUL cannot be represented and is rejected.
func (c Charset) Encode(s string) ([]byte, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return nil, errors.New(errors.PhaseCall, errors.KindInvalidInput).
			Detail("text contains NUL").
			Build()
	}
	var out []byte
	if c.Unit == 1 && c.Name == DefaultCharset.Name {
		out = make([]byte, 0, len(s)+1)
		out = append(out, s...)
	} else {
		enc, err := c.Encoding.NewEncoder().Bytes([]byte(s))
		if err != nil {
			return nil, errors.Wrap(errors.PhaseCall, errors.KindInvalidInput, err, "encode "+c.Name)
		}
		out = enc
	}
	for range c.Unit {
		out = append(out, 0)
	}
	return out, nil
}

// Decode converts native text without its terminator back into a string.
func (c Charset) Decode(b []byte) (string, error) {
	if c.Unit == 1 && c.Name == DefaultCharset.Name {
		return string(b), nil
	}
	dec, err := c.Encoding.NewDecoder().Bytes(b)
	if err != nil {
		return "", errors.Wrap(errors.PhaseCall, errors.KindInvalidData, err, "decode "+c.Name)
	}
	return string(dec), nil
}
