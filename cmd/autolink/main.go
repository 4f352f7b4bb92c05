package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/autolink/arena"
	"github.com/wippyai/autolink/descriptor"
	"github.com/wippyai/autolink/engine"
	"github.com/wippyai/autolink/internal/synth"
	"github.com/wippyai/autolink/linker"
	"github.com/wippyai/autolink/native"
)

const builtinLibc = "builtin:libc"

func main() {
	var (
		descFile    = flag.String("desc", "", "Path to YAML descriptor table")
		surfaceName = flag.String("surface", "", "Surface to bind (default: last in table)")
		libs        = flag.String("lib", "", "Shared libraries for the host backend (comma-separated)")
		wasmFile    = flag.String("wasm", "", "Wasm library instead of the host backend ("+builtinLibc+" for the bundled one)")
		callName    = flag.String("call", "", "Method to call; remaining arguments are passed to it")
		list        = flag.Bool("list", false, "List bound methods and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Debug logging")
	)
	flag.Parse()

	if *descFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: autolink -desc <table.yaml> [-surface name] [-lib a.so,b.so | -wasm file.wasm] -list")
		fmt.Fprintln(os.Stderr, "       autolink -desc <table.yaml> ... -call method [args...]")
		fmt.Fprintln(os.Stderr, "       autolink -desc <table.yaml> ... -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			setLoggers(l)
			defer l.Sync()
		}
	}

	ctx := context.Background()
	s, err := open(ctx, *descFile, *surfaceName, *libs, *wasmFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer s.close(ctx)

	switch {
	case *interactive:
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		err = runInteractive(s)
	case *list || *callName == "":
		printMethods(s)
	default:
		err = call(ctx, s, *callName, flag.Args())
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setLoggers(l *zap.Logger) {
	arena.SetLogger(l)
	descriptor.SetLogger(l)
	engine.SetLogger(l)
	linker.SetLogger(l)
	native.SetLogger(l)
}

// session is a bound surface and the backend behind it.
type session struct {
	binding *linker.Binding
	close   func(context.Context)
	source  string
	color   bool
}

func open(ctx context.Context, descFile, surfaceName, libs, wasmFile string) (*session, error) {
	table, err := descriptor.Load(descFile)
	if err != nil {
		return nil, err
	}
	if surfaceName == "" {
		names := table.Names()
		if len(names) == 0 {
			return nil, fmt.Errorf("%s declares no surfaces", descFile)
		}
		surfaceName = names[len(names)-1]
	}
	surface, ok := table.Surface(surfaceName)
	if !ok {
		return nil, fmt.Errorf("surface %q not in %s", surfaceName, descFile)
	}

	s := &session{color: isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())}
	var backend linker.Backend
	if wasmFile != "" {
		e, err := engine.New(ctx, nil)
		if err != nil {
			return nil, err
		}
		wasm := synth.Libc()
		if wasmFile != builtinLibc {
			if wasm, err = os.ReadFile(wasmFile); err != nil {
				e.Close(ctx)
				return nil, fmt.Errorf("read file: %w", err)
			}
		}
		lib, err := e.Load(ctx, surfaceName, wasm)
		if err != nil {
			e.Close(ctx)
			return nil, err
		}
		backend = lib
		s.source = wasmFile
		s.close = func(ctx context.Context) { e.Close(ctx) }
	} else {
		opts := native.DefaultOptions()
		if libs != "" {
			opts.Libraries = append(opts.Libraries, strings.Split(libs, ",")...)
		}
		b, err := native.New(opts)
		if err != nil {
			return nil, err
		}
		backend = b
		s.source = strings.Join(opts.Libraries, ",")
		s.close = func(context.Context) { b.Close() }
	}

	s.binding, err = linker.NewWithDefaults(backend).Bind(surface)
	if err != nil {
		s.close(ctx)
		return nil, err
	}
	return s, nil
}

func printMethods(s *session) {
	fmt.Printf("Surface: %s (%s)\n", s.binding.Name(), s.source)
	fmt.Printf("\nMethods:\n")
	for _, site := range s.binding.Sites() {
		line := formatSite(site.Descriptor())
		if s.color {
			line = funcStyle.Render(line)
		}
		fmt.Printf("  %s\n", line)
	}
}

func call(ctx context.Context, s *session, name string, raw []string) error {
	site, ok := s.binding.Site(name)
	if !ok {
		return fmt.Errorf("no method %q in %s", name, s.binding.Name())
	}
	d := site.Descriptor()
	args, state, err := parseArgs(d, raw)
	if err != nil {
		return err
	}

	fmt.Printf("Calling %s...\n", d.Name)
	out, err := site.Invoke(ctx, args)
	if err != nil {
		return fmt.Errorf("call %s: %w", d.Name, err)
	}
	res := formatResult(out, args, state)
	if s.color {
		res = resultStyle.Render(res)
	}
	fmt.Printf("Result: %s\n", res)
	return nil
}
