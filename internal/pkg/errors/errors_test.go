package errors

import (
	stderrors "errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapMatchesKindAndCause(t *testing.T) {
	err := Wrap(ErrStorage, "insert row", io.ErrUnexpectedEOF)
	require.ErrorIs(t, err, ErrStorage)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.False(t, stderrors.Is(err, ErrNotFound))
	require.Contains(t, err.Error(), "insert row")
}

func TestNewHasNoCause(t *testing.T) {
	err := New(ErrInvalid, "question is required")
	require.ErrorIs(t, err, ErrInvalid)
	require.Equal(t, "invalid: question is required", err.Error())
}

func TestWrapNilKindFallsBackToInternal(t *testing.T) {
	err := Wrap(nil, "something broke", io.EOF)
	require.ErrorIs(t, err, ErrInternal)
	require.ErrorIs(t, err, io.EOF)
}

func TestKindHelpers(t *testing.T) {
	require.True(t, IsNotFound(New(ErrNotFound, "x")))
	require.True(t, IsInvalid(New(ErrInvalid, "x")))
	require.True(t, IsStorage(Wrap(ErrStorage, "x", io.EOF)))
	require.True(t, IsUpstream(New(ErrUpstreamTimeout, "x")))
	require.True(t, IsUpstream(New(ErrUpstreamRateLimited, "x")))
	require.True(t, IsUpstream(New(ErrUpstreamUnavailable, "x")))
	require.False(t, IsUpstream(New(ErrStorage, "x")))
}
