package livebind

import (
	"errors"

	"github.com/livefir/livebind/internal/dom"
)

// Errors returned by the engine. They are wrapped with context, so match
// them with errors.Is.
var (
	// ErrNotFound: a path, alias, state or data map did not resolve.
	ErrNotFound = dom.ErrNotFound

	ErrUnknownMappingType = errors.New("unknown mapping type")
	ErrTypeMismatch       = errors.New("type mismatch")
	ErrUnsupportedSpec    = errors.New("unsupported spec")
	ErrDuplicateAction    = errors.New("duplicate action")
	ErrAlreadyAdded       = errors.New("already added")
	ErrAlreadyActivated   = errors.New("already activated")
	ErrAlreadyDisabled    = errors.New("already disabled")
	ErrDoesNotExist       = errors.New("does not exist")
	ErrNotInstanced       = errors.New("state has no instances")
)

// ErrUnknownMap is returned by Fill for a data map that was never linked.
var ErrUnknownMap = errorWrap{msg: "no such data map", err: ErrNotFound}

type errorWrap struct {
	msg string
	err error
}

func (e errorWrap) Error() string { return e.msg }
func (e errorWrap) Unwrap() error { return e.err }
