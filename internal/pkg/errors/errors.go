package errors

import (
	stderrors "errors"
	"fmt"
)

// Error kinds. Services wrap underlying causes with one of these so that the
// handler layer can map a failure to a transport code without inspecting the
// cause itself.
var (
	ErrInvalid             = stderrors.New("invalid")
	ErrNotFound            = stderrors.New("not found")
	ErrStorage             = stderrors.New("storage")
	ErrUpstreamTimeout     = stderrors.New("upstream timeout")
	ErrUpstreamRateLimited = stderrors.New("upstream rate limited")
	ErrUpstreamUnavailable = stderrors.New("upstream unavailable")
	ErrInternal            = stderrors.New("internal")
)

type kindError struct {
	kind   error
	action string
	cause  error
}

func (e *kindError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s: %s", e.kind.Error(), e.action)
	}
	return fmt.Sprintf("%s: %s: %v", e.kind.Error(), e.action, e.cause)
}

func (e *kindError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

// Wrap tags cause with kind and the failing action. Both kind and cause stay
// reachable through errors.Is/errors.As.
func Wrap(kind error, action string, cause error) error {
	if kind == nil {
		kind = ErrInternal
	}
	return &kindError{kind: kind, action: action, cause: cause}
}

func New(kind error, action string) error {
	return Wrap(kind, action, nil)
}

func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}

func IsInvalid(err error) bool {
	return stderrors.Is(err, ErrInvalid)
}

func IsStorage(err error) bool {
	return stderrors.Is(err, ErrStorage)
}

func IsUpstream(err error) bool {
	return stderrors.Is(err, ErrUpstreamTimeout) ||
		stderrors.Is(err, ErrUpstreamRateLimited) ||
		stderrors.Is(err, ErrUpstreamUnavailable)
}
