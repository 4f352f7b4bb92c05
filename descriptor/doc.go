// Package descriptor turns declared call surfaces into method descriptors.
//
// A Surface lists methods and the surfaces it extends. Build walks the
// hierarchy in a fixed order (the root, then each surface's newly seen
// ancestors, expanded depth-first after being queued) and resolves every
// abstract, non-static method that carries a Link:
//
//   - each parameter gets a transformation rule, from an explicit AsType or
//     from its Go type, plus a direction and a charset
//   - a parameter marked VariadicStart gets a marker step in front of its own
//     rule, recording how many arguments precede it
//   - a capture parameter must be the first argument, and critical methods
//     cannot capture
//
// Methods are identified by name plus Go signature. When two surfaces
// declare the same key, the one visited first is kept even when a later one
// is more specific.
//
// # Descriptor tables
//
// Surfaces can also be loaded from YAML:
//
//	surfaces:
//	  - name: libc
//	    methods:
//	      - name: atoi_as_unsigned
//	        link: {name: atoi, critical: {heap: true}}
//	        params:
//	          - {type: list<u8>}
//	          - {type: bool, as: void}
//	        result: {type: s64, as: unsigned int}
//
// Types use WIT primitive names; see ParseType.
//
// Invalid descriptors fail with configuration errors and Go types with no
// conversion under their rule fail with marshal errors, both before any call.
package descriptor
