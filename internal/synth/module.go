// Package synth builds small WebAssembly modules in the binary format. It
// is used to produce native fixture libraries for the wasm backend.
package synth

import (
	"github.com/tetratelabs/wazero/api"
)

// Func is a defined function. An empty Export keeps it private.
type Func struct {
	Export  string
	Params  []api.ValueType
	Results []api.ValueType
	Locals  []api.ValueType
	Body    []byte // expression including its final end
}

// Global is a defined global with a constant initializer.
type Global struct {
	Export  string
	Type    api.ValueType
	Mutable bool
	Init    int64
}

// Module builds a module that defines functions, globals and one memory.
type Module struct {
	memoryExport string
	funcs        []Func
	globals      []Global
	memoryPages  uint32
}

// NewModule creates an empty module builder.
func NewModule() *Module {
	return &Module{}
}

// Memory defines memory 0 with the given minimum page count.
func (m *Module) Memory(pages uint32, export string) *Module {
	m.memoryPages = pages
	m.memoryExport = export
	return m
}

// AddGlobal defines a global and returns its index.
func (m *Module) AddGlobal(g Global) uint32 {
	m.globals = append(m.globals, g)
	return uint32(len(m.globals) - 1)
}

// AddFunc defines a function and returns its index.
func (m *Module) AddFunc(f Func) uint32 {
	m.funcs = append(m.funcs, f)
	return uint32(len(m.funcs) - 1)
}

// Build generates the module bytes.
func (m *Module) Build() []byte {
	var wasm []byte

	// Magic and version
	wasm = append(wasm, 0x00, 0x61, 0x73, 0x6d)
	wasm = append(wasm, 0x01, 0x00, 0x00, 0x00)

	if len(m.funcs) > 0 {
		wasm = section(wasm, 0x01, m.buildTypeSection())
		wasm = section(wasm, 0x03, m.buildFuncSection())
	}
	if m.memoryPages > 0 {
		wasm = section(wasm, 0x05, m.buildMemorySection())
	}
	if len(m.globals) > 0 {
		wasm = section(wasm, 0x06, m.buildGlobalSection())
	}
	wasm = section(wasm, 0x07, m.buildExportSection())
	if len(m.funcs) > 0 {
		wasm = section(wasm, 0x0a, m.buildCodeSection())
	}
	return wasm
}

func section(wasm []byte, id byte, body []byte) []byte {
	wasm = append(wasm, id)
	wasm = append(wasm, EncodeULEB128(uint32(len(body)))...)
	return append(wasm, body...)
}

// buildTypeSection emits one type per function.
func (m *Module) buildTypeSection() []byte {
	section := vector(len(m.funcs))
	for _, f := range m.funcs {
		section = append(section, 0x60)
		section = append(section, vector(len(f.Params))...)
		for _, t := range f.Params {
			section = append(section, ValType(t))
		}
		section = append(section, vector(len(f.Results))...)
		for _, t := range f.Results {
			section = append(section, ValType(t))
		}
	}
	return section
}

func (m *Module) buildFuncSection() []byte {
	section := vector(len(m.funcs))
	for i := range m.funcs {
		section = append(section, EncodeULEB128(uint32(i))...)
	}
	return section
}

func (m *Module) buildMemorySection() []byte {
	section := vector(1)
	section = append(section, 0x00)
	return append(section, EncodeULEB128(m.memoryPages)...)
}

func (m *Module) buildGlobalSection() []byte {
	section := vector(len(m.globals))
	for _, g := range m.globals {
		section = append(section, ValType(g.Type))
		if g.Mutable {
			section = append(section, 0x01)
		} else {
			section = append(section, 0x00)
		}
		switch g.Type {
		case api.ValueTypeI64:
			section = append(section, OpI64Const)
			section = append(section, EncodeSLEB128(g.Init)...)
		case api.ValueTypeF32:
			section = append(section, 0x43, 0, 0, 0, 0)
		case api.ValueTypeF64:
			section = append(section, 0x44, 0, 0, 0, 0, 0, 0, 0, 0)
		default:
			section = append(section, OpI32Const)
			section = append(section, EncodeSLEB128(int32(g.Init))...)
		}
		section = append(section, OpEnd)
	}
	return section
}

func (m *Module) buildExportSection() []byte {
	var entries []byte
	n := 0
	if m.memoryPages > 0 && m.memoryExport != "" {
		entries = append(entries, name(m.memoryExport)...)
		entries = append(entries, 0x02, 0x00)
		n++
	}
	for i, g := range m.globals {
		if g.Export == "" {
			continue
		}
		entries = append(entries, name(g.Export)...)
		entries = append(entries, 0x03)
		entries = append(entries, EncodeULEB128(uint32(i))...)
		n++
	}
	for i, f := range m.funcs {
		if f.Export == "" {
			continue
		}
		entries = append(entries, name(f.Export)...)
		entries = append(entries, 0x00)
		entries = append(entries, EncodeULEB128(uint32(i))...)
		n++
	}
	return append(vector(n), entries...)
}

func (m *Module) buildCodeSection() []byte {
	section := vector(len(m.funcs))
	for _, f := range m.funcs {
		body := locals(f.Locals)
		body = append(body, f.Body...)
		section = append(section, EncodeULEB128(uint32(len(body)))...)
		section = append(section, body...)
	}
	return section
}

// locals run-length encodes local declarations.
func locals(types []api.ValueType) []byte {
	var groups []byte
	n := 0
	for i := 0; i < len(types); {
		j := i
		for j < len(types) && types[j] == types[i] {
			j++
		}
		groups = append(groups, EncodeULEB128(uint32(j-i))...)
		groups = append(groups, ValType(types[i]))
		n++
		i = j
	}
	return append(vector(n), groups...)
}
