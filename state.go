package autolink

// CallState receives ancillary state captured immediately after a native
// call returns, such as the thread's errno. A method receives it through a
// parameter marked for capture, which must be its first parameter.
type CallState struct {
	values map[string]int32
}

// Get returns the captured value for name.
func (s *CallState) Get(name string) (int32, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Errno returns the captured "errno" value, or 0 when it was not captured.
func (s *CallState) Errno() int32 {
	return s.values["errno"]
}

// Set records a captured value. Backends call it after the native call.
func (s *CallState) Set(name string, v int32) {
	if s.values == nil {
		s.values = make(map[string]int32, 1)
	}
	s.values[name] = v
}

// Reset clears all captured values.
func (s *CallState) Reset() {
	clear(s.values)
}
