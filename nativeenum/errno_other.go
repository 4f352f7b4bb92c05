//go:build !linux && !darwin && !windows

package nativeenum

// EILSEQ is the illegal byte sequence error.
const EILSEQ Errno = 84
