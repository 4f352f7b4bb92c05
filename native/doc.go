// Package native provides the host backend: calls into shared libraries of
// the current process through purego, without cgo.
//
// Symbols are resolved with dlsym over the configured libraries in order.
// Arena buffers come from the C runtime's malloc. Critical calls with heap
// access pin Go slices with runtime.Pinner and pass them directly.
//
// Captured errno is read through the C runtime's errno location while the
// goroutine is locked to its thread. Only "errno" can be captured.
//
// The backend is available on linux and darwin.
package native
