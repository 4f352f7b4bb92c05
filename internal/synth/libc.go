package synth

import (
	"github.com/tetratelabs/wazero/api"
)

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
)

// Libc global indices.
const (
	globalHeap uint32 = iota
	globalSeed
	globalErrno
)

// HeapBase is the first address the Libc allocator hands out.
const HeapBase = 1024

// Libc returns a wasm32 module exporting a small C runtime subset:
//
//	void *malloc(size_t)          bump allocator, 8-byte aligned, grows memory
//	void  free(void *)            no-op
//	void  srand(unsigned)
//	int   rand(void)              C reference LCG, RAND_MAX 0x7fff
//	int   abs(int), long labs(long), long long llabs(long long)
//	void *memset(void *, int, size_t)
//	int   atoi(const char *)
//	int   sum(const int *, size_t)
//	void  iota(int *, size_t)     stores 0..n-1
//	int   set_errno(int)          stores errno, returns -1
//	int   fail(void)              traps
//	char *echo(char *)
//
// It also exports its memory as "memory" and errno as the global "errno".
func Libc() []byte {
	m := NewModule().Memory(2, "memory")
	m.AddGlobal(Global{Type: i32, Mutable: true, Init: HeapBase})
	m.AddGlobal(Global{Type: i32, Mutable: true, Init: 1})
	m.AddGlobal(Global{Export: "errno", Type: i32, Mutable: true})

	m.AddFunc(Func{
		Export: "malloc", Params: []api.ValueType{i32}, Results: []api.ValueType{i32},
		Locals: []api.ValueType{i32},
		Body: new(Asm).
			// local 1 = new heap top
			GlobalGet(globalHeap).LocalGet(0).Op(OpI32Add).
			I32Const(7).Op(OpI32Add).I32Const(-8).Op(OpI32And).
			LocalSet(1).
			Block().
			LocalGet(1).MemorySize().I32Const(16).Op(OpI32Shl).Op(OpI32LeU).BrIf(0).
			LocalGet(1).MemorySize().I32Const(16).Op(OpI32Shl).Op(OpI32Sub).
			I32Const(0xffff).Op(OpI32Add).I32Const(16).Op(OpI32ShrU).
			MemoryGrow().I32Const(-1).Op(OpI32Ne).BrIf(0).
			I32Const(0).Op(OpReturn).
			End().
			GlobalGet(globalHeap).
			LocalGet(1).GlobalSet(globalHeap).
			Bytes(),
	})
	m.AddFunc(Func{
		Export: "free", Params: []api.ValueType{i32},
		Body: new(Asm).Bytes(),
	})
	m.AddFunc(Func{
		Export: "srand", Params: []api.ValueType{i32},
		Body: new(Asm).LocalGet(0).GlobalSet(globalSeed).Bytes(),
	})
	m.AddFunc(Func{
		Export: "rand", Results: []api.ValueType{i32},
		Body: new(Asm).
			GlobalGet(globalSeed).I32Const(1103515245).Op(OpI32Mul).
			I32Const(12345).Op(OpI32Add).
			GlobalSet(globalSeed).
			GlobalGet(globalSeed).I32Const(16).Op(OpI32ShrU).
			I32Const(0x7fff).Op(OpI32And).
			Bytes(),
	})
	for _, name := range []string{"abs", "labs"} {
		m.AddFunc(Func{
			Export: name, Params: []api.ValueType{i32}, Results: []api.ValueType{i32},
			Body: new(Asm).
				I32Const(0).LocalGet(0).Op(OpI32Sub).
				LocalGet(0).
				LocalGet(0).I32Const(0).Op(OpI32LtS).
				Op(OpSelect).
				Bytes(),
		})
	}
	m.AddFunc(Func{
		Export: "llabs", Params: []api.ValueType{i64}, Results: []api.ValueType{i64},
		Body: new(Asm).
			I64Const(0).LocalGet(0).Op(OpI64Sub).
			LocalGet(0).
			LocalGet(0).I64Const(0).Op(OpI64LtS).
			Op(OpSelect).
			Bytes(),
	})
	m.AddFunc(Func{
		Export: "memset", Params: []api.ValueType{i32, i32, i32}, Results: []api.ValueType{i32},
		Body: new(Asm).
			LocalGet(0).LocalGet(1).LocalGet(2).MemoryFill().
			LocalGet(0).
			Bytes(),
	})
	m.AddFunc(atoi())
	m.AddFunc(Func{
		Export: "sum", Params: []api.ValueType{i32, i32}, Results: []api.ValueType{i32},
		Locals: []api.ValueType{i32},
		Body: new(Asm).
			Block().Loop().
			LocalGet(1).Op(OpI32Eqz).BrIf(1).
			LocalGet(2).LocalGet(0).I32Load(0).Op(OpI32Add).LocalSet(2).
			LocalGet(0).I32Const(4).Op(OpI32Add).LocalSet(0).
			LocalGet(1).I32Const(1).Op(OpI32Sub).LocalSet(1).
			Br(0).
			End().End().
			LocalGet(2).
			Bytes(),
	})
	m.AddFunc(Func{
		Export: "iota", Params: []api.ValueType{i32, i32},
		Locals: []api.ValueType{i32},
		Body: new(Asm).
			Block().Loop().
			LocalGet(2).LocalGet(1).Op(OpI32GeU).BrIf(1).
			LocalGet(0).LocalGet(2).I32Store(0).
			LocalGet(0).I32Const(4).Op(OpI32Add).LocalSet(0).
			LocalGet(2).I32Const(1).Op(OpI32Add).LocalSet(2).
			Br(0).
			End().End().
			Bytes(),
	})
	m.AddFunc(Func{
		Export: "set_errno", Params: []api.ValueType{i32}, Results: []api.ValueType{i32},
		Body: new(Asm).LocalGet(0).GlobalSet(globalErrno).I32Const(-1).Bytes(),
	})
	m.AddFunc(Func{
		Export: "fail", Results: []api.ValueType{i32},
		Body: new(Asm).Op(OpUnreachable).Bytes(),
	})
	m.AddFunc(Func{
		Export: "echo", Params: []api.ValueType{i32}, Results: []api.ValueType{i32},
		Body: new(Asm).LocalGet(0).Bytes(),
	})
	return m.Build()
}

// atoi parses an optional '-' followed by decimal digits, stopping at the
// first non-digit. Overflow wraps.
func atoi() Func {
	const (
		p      = 0
		result = 1
		neg    = 2
		digit  = 3
	)
	return Func{
		Export: "atoi", Params: []api.ValueType{i32}, Results: []api.ValueType{i32},
		Locals: []api.ValueType{i32, i32, i32},
		Body: new(Asm).
			LocalGet(p).I32Load8U(0).I32Const('-').Op(OpI32Eq).
			If().
			I32Const(1).LocalSet(neg).
			LocalGet(p).I32Const(1).Op(OpI32Add).LocalSet(p).
			End().
			Block().Loop().
			LocalGet(p).I32Load8U(0).I32Const('0').Op(OpI32Sub).LocalTee(digit).
			I32Const(9).Op(OpI32GtU).BrIf(1).
			LocalGet(result).I32Const(10).Op(OpI32Mul).LocalGet(digit).Op(OpI32Add).LocalSet(result).
			LocalGet(p).I32Const(1).Op(OpI32Add).LocalSet(p).
			Br(0).
			End().End().
			I32Const(0).LocalGet(result).Op(OpI32Sub).
			LocalGet(result).
			LocalGet(neg).
			Op(OpSelect).
			Bytes(),
	}
}
