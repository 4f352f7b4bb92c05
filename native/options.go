package native

// Options configures the host backend.
type Options struct {
	// Libraries are opened in order and searched in order. The first must
	// provide the C runtime's malloc and free.
	Libraries []string
}

// DefaultOptions returns the host's C runtime libraries.
func DefaultOptions() Options {
	return Options{Libraries: append([]string(nil), runtimeLibraries...)}
}
