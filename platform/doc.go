// Package platform describes the native target that bindings are compiled for.
//
// The only platform facts the binding compiler needs are the pointer width
// and whether the target follows the Windows data model, where C long stays
// 32-bit on 64-bit pointers. Host returns the running process; tests
// construct other configurations directly to simulate foreign targets.
package platform
