package autolink

import "github.com/wippyai/autolink/errors"

var errUnterminated = errors.New(errors.PhaseCall, errors.KindInvalidData).
	Detail("string is not NUL-terminated within the read limit").
	Build()
