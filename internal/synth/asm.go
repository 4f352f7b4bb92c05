package synth

// Opcodes used by the fixture libraries.
const (
	OpUnreachable  byte = 0x00
	OpBlock        byte = 0x02
	OpLoop         byte = 0x03
	OpIf           byte = 0x04
	OpEnd          byte = 0x0B
	OpBr           byte = 0x0C
	OpBrIf         byte = 0x0D
	OpReturn       byte = 0x0F
	OpSelect       byte = 0x1B
	OpLocalGet     byte = 0x20
	OpLocalSet     byte = 0x21
	OpLocalTee     byte = 0x22
	OpGlobalGet    byte = 0x23
	OpGlobalSet    byte = 0x24
	OpI32Load      byte = 0x28
	OpI32Load8U    byte = 0x2D
	OpI32Store     byte = 0x36
	OpMemorySize   byte = 0x3F
	OpMemoryGrow   byte = 0x40
	OpI32Const     byte = 0x41
	OpI64Const     byte = 0x42
	OpI32Eqz       byte = 0x45
	OpI32Eq        byte = 0x46
	OpI32Ne        byte = 0x47
	OpI32LtS       byte = 0x48
	OpI32GtU       byte = 0x4B
	OpI32LeU       byte = 0x4D
	OpI32GeU       byte = 0x4F
	OpI64LtS       byte = 0x53
	OpI32Add       byte = 0x6A
	OpI32Sub       byte = 0x6B
	OpI32Mul       byte = 0x6C
	OpI32And       byte = 0x71
	OpI32Shl       byte = 0x74
	OpI32ShrU      byte = 0x76
	OpI64Sub       byte = 0x7D
	OpMiscPrefix   byte = 0xFC
	MiscMemoryFill byte = 0x0B

	blockEmpty byte = 0x40
)

// Asm assembles a function body.
type Asm struct {
	code []byte
}

// Op appends raw opcodes.
func (a *Asm) Op(ops ...byte) *Asm {
	a.code = append(a.code, ops...)
	return a
}

func (a *Asm) idx(op byte, i uint32) *Asm {
	a.code = append(a.code, op)
	a.code = append(a.code, EncodeULEB128(i)...)
	return a
}

func (a *Asm) LocalGet(i uint32) *Asm  { return a.idx(OpLocalGet, i) }
func (a *Asm) LocalSet(i uint32) *Asm  { return a.idx(OpLocalSet, i) }
func (a *Asm) LocalTee(i uint32) *Asm  { return a.idx(OpLocalTee, i) }
func (a *Asm) GlobalGet(i uint32) *Asm { return a.idx(OpGlobalGet, i) }
func (a *Asm) GlobalSet(i uint32) *Asm { return a.idx(OpGlobalSet, i) }
func (a *Asm) Br(depth uint32) *Asm    { return a.idx(OpBr, depth) }
func (a *Asm) BrIf(depth uint32) *Asm  { return a.idx(OpBrIf, depth) }

func (a *Asm) I32Const(v int32) *Asm {
	a.code = append(a.code, OpI32Const)
	a.code = append(a.code, EncodeSLEB128(v)...)
	return a
}

func (a *Asm) I64Const(v int64) *Asm {
	a.code = append(a.code, OpI64Const)
	a.code = append(a.code, EncodeSLEB128(v)...)
	return a
}

// Block, Loop and If open a structured instruction with an empty type.
func (a *Asm) Block() *Asm { return a.Op(OpBlock, blockEmpty) }
func (a *Asm) Loop() *Asm  { return a.Op(OpLoop, blockEmpty) }
func (a *Asm) If() *Asm    { return a.Op(OpIf, blockEmpty) }
func (a *Asm) End() *Asm   { return a.Op(OpEnd) }

// Memory instructions take an alignment exponent and an offset.
func (a *Asm) I32Load(offset uint32) *Asm   { return a.mem(OpI32Load, 2, offset) }
func (a *Asm) I32Load8U(offset uint32) *Asm { return a.mem(OpI32Load8U, 0, offset) }
func (a *Asm) I32Store(offset uint32) *Asm  { return a.mem(OpI32Store, 2, offset) }

func (a *Asm) mem(op byte, align, offset uint32) *Asm {
	a.code = append(a.code, op)
	a.code = append(a.code, EncodeULEB128(align)...)
	a.code = append(a.code, EncodeULEB128(offset)...)
	return a
}

// MemoryFill fills memory 0 from (dst, value, n) on the stack.
// MemorySize and MemoryGrow operate on memory 0.
func (a *Asm) MemorySize() *Asm { return a.Op(OpMemorySize, 0) }
func (a *Asm) MemoryGrow() *Asm { return a.Op(OpMemoryGrow, 0) }

func (a *Asm) MemoryFill() *Asm {
	return a.Op(OpMiscPrefix, MiscMemoryFill, 0x00)
}

// Bytes returns the instructions followed by the final end.
func (a *Asm) Bytes() []byte {
	out := make([]byte, 0, len(a.code)+1)
	out = append(out, a.code...)
	return append(out, OpEnd)
}
