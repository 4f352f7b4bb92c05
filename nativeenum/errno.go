package nativeenum

import (
	"strconv"

	"github.com/wippyai/autolink/errors"
)

// Errno is a small subset of the C errno values whose codes are shared by
// the common C runtimes.
type Errno int32

const (
	EDOM   Errno = 33
	ERANGE Errno = 34
)

// NativeCode implements Enum.
func (e Errno) NativeCode() int32 { return int32(e) }

func (e Errno) String() string {
	switch e {
	case EDOM:
		return "EDOM"
	case ERANGE:
		return "ERANGE"
	case EILSEQ:
		return "EILSEQ"
	}
	return "Errno(" + strconv.Itoa(int(e)) + ")"
}

// ErrnoFromCode decodes the codes of every runtime's EILSEQ in addition to
// the shared ones.
func ErrnoFromCode(code int32) (Errno, error) {
	switch code {
	case 33:
		return EDOM, nil
	case 34:
		return ERANGE, nil
	case 42, 84, 92:
		return EILSEQ, nil
	}
	return 0, errors.InvalidEnum(code, "nativeenum.Errno")
}

func init() {
	Register(ErrnoFromCode)
}
