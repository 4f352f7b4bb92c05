// Package arena provides the per-call scope for temporary native buffers.
//
// A call opens at most one Arena, stages strings, arrays and by-reference
// scalars into it, and closes it on every exit path. Close frees the
// buffers in reverse allocation order; a second Close does nothing. Arenas
// are pooled, so nothing may hold on to one after Close.
package arena
