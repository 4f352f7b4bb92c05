package transform

import (
	"strings"
)

// AsType overrides the rule a parameter or result would get from its Go
// type. Names follow the C spellings of the corresponding native types.
type AsType uint8

const (
	AsNone AsType = iota
	AsSignedChar
	AsUnsignedChar
	AsChar
	AsShort
	AsUnsignedShort
	AsInt
	AsUnsignedInt
	AsLong
	AsUnsignedLong
	AsLongLong
	AsUnsignedLongLong
	AsFloat
	AsDouble
	AsBool
	AsInt8
	AsUint8
	AsInt16
	AsUint16
	AsInt32
	AsUint32
	AsInt64
	AsUint64
	AsChar7
	AsChar8
	AsChar16
	AsChar32
	AsPtrdiff
	AsSsize
	AsIntptr
	AsUintptr
	AsSize
	AsPtr
	AsVoid
)

var asTypeNames = [...]string{
	AsNone:             "",
	AsSignedChar:       "signed char",
	AsUnsignedChar:     "unsigned char",
	AsChar:             "char",
	AsShort:            "short",
	AsUnsignedShort:    "unsigned short",
	AsInt:              "int",
	AsUnsignedInt:      "unsigned int",
	AsLong:             "long",
	AsUnsignedLong:     "unsigned long",
	AsLongLong:         "long long",
	AsUnsignedLongLong: "unsigned long long",
	AsFloat:            "float",
	AsDouble:           "double",
	AsBool:             "bool",
	AsInt8:             "int8_t",
	AsUint8:            "uint8_t",
	AsInt16:            "int16_t",
	AsUint16:           "uint16_t",
	AsInt32:            "int32_t",
	AsUint32:           "uint32_t",
	AsInt64:            "int64_t",
	AsUint64:           "uint64_t",
	AsChar7:            "char7_t",
	AsChar8:            "char8_t",
	AsChar16:           "char16_t",
	AsChar32:           "char32_t",
	AsPtrdiff:          "ptrdiff_t",
	AsSsize:            "ssize_t",
	AsIntptr:           "intptr_t",
	AsUintptr:          "uintptr_t",
	AsSize:             "size_t",
	AsPtr:              "ptr",
	AsVoid:             "void",
}

func (a AsType) String() string {
	if int(a) < len(asTypeNames) {
		return asTypeNames[a]
	}
	return "unknown"
}

// ParseAsType parses a C type spelling. Runs of whitespace are collapsed and
// underscores are accepted in place of spaces ("unsigned_int").
func ParseAsType(s string) (AsType, bool) {
	norm := strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), " ")
	for i, name := range asTypeNames {
		if i == int(AsNone) {
			continue
		}
		if name == s || strings.ReplaceAll(name, "_", " ") == norm {
			return AsType(i), true
		}
	}
	return AsNone, false
}
