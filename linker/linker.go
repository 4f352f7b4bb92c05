package linker

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/autolink/descriptor"
	"github.com/wippyai/autolink/symbol"
	"github.com/wippyai/autolink/transform"
)

// Options configures linker behavior.
type Options struct {
	// Local is searched before the backend's symbols.
	Local symbol.Table
	// Registry overrides the transformation registry. By default a registry
	// for the backend's platform is used.
	Registry *transform.Registry
	// MaxStringLen bounds how many code units a text result may span.
	MaxStringLen int
}

// DefaultOptions returns default linker configuration.
func DefaultOptions() Options {
	return Options{MaxStringLen: 1 << 20}
}

// Linker binds surfaces against one backend. Thread-safe.
type Linker struct {
	backend  Backend
	registry *transform.Registry
	builder  *descriptor.Builder
	resolver symbol.Resolver
	bindings map[*descriptor.Surface]*bindingEntry
	options  Options
	mu       sync.Mutex
}

type bindingEntry struct {
	binding *Binding
	err     error
	once    sync.Once
}

// New creates a Linker for the given backend.
func New(backend Backend, opts Options) *Linker {
	reg := opts.Registry
	if reg == nil {
		reg = transform.NewRegistry(backend.Platform())
	}
	if opts.MaxStringLen <= 0 {
		opts.MaxStringLen = DefaultOptions().MaxStringLen
	}
	return &Linker{
		backend:  backend,
		registry: reg,
		builder:  descriptor.NewBuilder(reg),
		resolver: symbol.Resolver{Local: opts.Local, Default: backend.Symbols()},
		bindings: make(map[*descriptor.Surface]*bindingEntry),
		options:  opts,
	}
}

// NewWithDefaults creates a Linker with default options.
func NewWithDefaults(backend Backend) *Linker {
	return New(backend, DefaultOptions())
}

// Backend returns the linked backend.
func (l *Linker) Backend() Backend {
	return l.backend
}

// Registry returns the transformation registry in use.
func (l *Linker) Registry() *transform.Registry {
	return l.registry
}

// Bind returns the binding for surface, building it on first use.
// Concurrent callers receive the same *Binding. A surface that fails to
// build fails again with the same error on every later Bind.
func (l *Linker) Bind(surface *descriptor.Surface) (*Binding, error) {
	l.mu.Lock()
	e, ok := l.bindings[surface]
	if !ok {
		e = &bindingEntry{}
		l.bindings[surface] = e
	}
	l.mu.Unlock()

	e.once.Do(func() {
		e.binding, e.err = l.build(surface)
	})
	return e.binding, e.err
}

func (l *Linker) build(surface *descriptor.Surface) (*Binding, error) {
	descs, err := l.builder.Build(surface)
	if err != nil {
		Logger().Debug("binding rejected", zap.Error(err))
		return nil, err
	}

	b := &Binding{
		ID:     uuid.New(),
		name:   surface.Name,
		linker: l,
		byKey:  make(map[string]*Site, len(descs)),
		byName: make(map[string][]*Site, len(descs)),
	}
	for _, d := range descs {
		s := &Site{desc: d, binding: b}
		b.sites = append(b.sites, s)
		b.byKey[d.Key] = s
		b.byName[d.Name] = append(b.byName[d.Name], s)
	}

	Logger().Debug("binding built",
		zap.Stringer("binding", b.ID),
		zap.String("surface", surface.Name),
		zap.Int("methods", len(b.sites)))
	return b, nil
}
