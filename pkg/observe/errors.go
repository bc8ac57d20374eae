package observe

import (
	"errors"

	talerrors "github.com/vango-dev/tal/internal/errors"
)

// Sentinel errors wrapped by every *TalError the model returns.
// Use errors.Is to test for them.
var (
	// ErrUnsupported is returned when a raw value has no observable representation.
	ErrUnsupported = errors.New("observe: unsupported value")

	// ErrReserved is returned when a reserved context name is assigned or deleted.
	ErrReserved = errors.New("observe: reserved name")

	// ErrUnsupportedOp is returned by list operations the reconciler cannot replay.
	ErrUnsupportedOp = errors.New("observe: unsupported list operation")

	// ErrReadOnly is returned when a computed property is assigned.
	ErrReadOnly = errors.New("observe: read-only property")

	// ErrIndexRange is returned when a list index is past the end of the list.
	ErrIndexRange = errors.New("observe: index out of range")
)

func reservedError(key string) error {
	return talerrors.New(talerrors.CodeReservedName).
		WithDetailf("%q can't be initialized, it is internal", key).
		Wrap(ErrReserved)
}

func unsupportedOpError(op string) error {
	return talerrors.New(talerrors.CodeUnsupportedOp).
		WithDetailf("%s() not supported", op).
		Wrap(ErrUnsupportedOp)
}

func unsupportedValueError(raw any) error {
	return talerrors.New(talerrors.CodeUnsupportedValue).
		WithDetailf("%T", raw).
		Wrap(ErrUnsupported)
}

func readOnlyError(key string) error {
	return talerrors.New(talerrors.CodeReadOnly).
		WithDetailf("%q", key).
		Wrap(ErrReadOnly)
}

func indexRangeError(index, length int) error {
	return talerrors.New(talerrors.CodeIndexRange).
		WithDetailf("index %d, length %d", index, length).
		Wrap(ErrIndexRange)
}

// IsUsageError reports whether err was raised by misuse of the model or the
// binding engine rather than by application data.
func IsUsageError(err error) bool {
	_, ok := talerrors.As(err)
	return ok
}
