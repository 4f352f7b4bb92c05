// Package symbol provides symbol tables and the two-tier lookup the linker
// resolves native functions with.
//
// A binding may carry a local Table (a library it was opened for, or a Map
// of explicitly defined entry points). Names missing there fall back to the
// backend's default table, normally the C runtime of the process. A name
// absent from both fails with errors.ErrSymbolNotFound, which is distinct
// from every marshalling error.
package symbol
