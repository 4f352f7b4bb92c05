package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/autolink/errors"
	"github.com/wippyai/autolink/symbol"
)

const wasiModule = "wasi_snapshot_preview1"

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per library in pages (64KB each).
	// 0 means the wazero default.
	MemoryLimitPages uint32

	// CloseOnContextDone aborts guest calls whose context is done.
	CloseOnContextDone bool
}

// Engine loads wasm libraries into one wazero runtime.
type Engine struct {
	runtime      wazero.Runtime
	libraries    []*Library
	mu           sync.RWMutex
	wasiInitMu   sync.Mutex
	wasiInitDone atomic.Bool
}

// New creates an engine. A nil cfg uses defaults.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		runtimeCfg = runtimeCfg.WithCloseOnContextDone(cfg.CloseOnContextDone)
	}
	return &Engine{runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg)}, nil
}

// Runtime returns the wazero runtime.
func (e *Engine) Runtime() wazero.Runtime {
	return e.runtime
}

// Load compiles and instantiates a library module under name. Modules that
// import WASI preview1 get it instantiated first. Reactor modules have
// their _initialize export run.
func (e *Engine) Load(ctx context.Context, name string, wasm []byte) (*Library, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile "+name, err)
	}
	for _, def := range compiled.ImportedFunctions() {
		if mod, _, _ := def.Import(); mod == wasiModule {
			if err := e.InitWASI(ctx); err != nil {
				return nil, err
			}
			break
		}
	}

	cfg := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions("_initialize")
	mod, err := e.runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return nil, errors.Load("instantiate "+name, err)
	}

	lib := newLibrary(ctx, name, mod)
	e.mu.Lock()
	e.libraries = append(e.libraries, lib)
	e.mu.Unlock()

	Logger().Debug("library loaded",
		zap.String("library", name),
		zap.Int("exports", len(mod.ExportedFunctionDefinitions())),
		zap.Bool("allocator", lib.malloc != nil && lib.free != nil))
	return lib, nil
}

// Library returns a loaded library by name.
func (e *Engine) Library(name string) (*Library, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, l := range e.libraries {
		if l.name == name {
			return l, true
		}
	}
	return nil, false
}

// Symbols returns a table over every loaded library in load order.
func (e *Engine) Symbols() symbol.Table {
	return symbol.TableFunc(func(name string) (symbol.Symbol, bool) {
		e.mu.RLock()
		libs := append([]*Library(nil), e.libraries...)
		e.mu.RUnlock()
		for _, l := range libs {
			if s, ok := l.Lookup(name); ok {
				return s, true
			}
		}
		return symbol.Symbol{}, false
	})
}

// InitWASI instantiates WASI preview1 for this engine's runtime.
// Safe for concurrent calls.
func (e *Engine) InitWASI(ctx context.Context) error {
	if e.wasiInitDone.Load() {
		return nil
	}

	e.wasiInitMu.Lock()
	defer e.wasiInitMu.Unlock()

	if e.wasiInitDone.Load() {
		return nil
	}

	if e.runtime.Module(wasiModule) == nil {
		if _, err := instantiateWASI(ctx, e.runtime); err != nil && e.runtime.Module(wasiModule) == nil {
			return errors.Load("instantiate WASI", err)
		}
	}

	e.wasiInitDone.Store(true)
	return nil
}

// Close closes the runtime and every library.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	e.libraries = nil
	e.mu.Unlock()
	return e.runtime.Close(ctx)
}
