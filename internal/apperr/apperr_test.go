package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_MessageIncludesCauseWhenPresent(t *testing.T) {
	err := Wrap(Internal, "scan failed", errors.New("boom"))
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "scan failed")
}

func TestError_MessageOmitsCauseWhenAbsent(t *testing.T) {
	err := New(InvalidInput, "bad request")
	assert.Equal(t, "invalid_input: bad request", err.Error())
}

func TestUnwrap_ReturnsCause(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(Internal, "wrapped", cause)
	assert.Equal(t, cause, err.Unwrap())
}

func TestKindOf_UnwrapsPlainError(t *testing.T) {
	assert.Equal(t, Internal, KindOf(errors.New("unclassified")))
}

func TestKindOf_ExtractsKindFromError(t *testing.T) {
	err := New(NoCyclesFound, "nothing found")
	assert.Equal(t, NoCyclesFound, KindOf(err))
}

func TestKindOf_ExtractsKindThroughFmtWrap(t *testing.T) {
	err := New(Cancelled, "cancelled")
	wrapped := fmt.Errorf("context: %w", err)
	assert.Equal(t, Cancelled, KindOf(wrapped))
}

func TestKindOf_NilErrorIsInternal(t *testing.T) {
	assert.Equal(t, Internal, KindOf(nil))
}

func TestAs_FindsErrorAtEndOfChain(t *testing.T) {
	target := New(NumericalDegeneracy, "nan encountered")
	wrapped := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", target))

	var found *Error
	ok := As(wrapped, &found)
	assert.True(t, ok)
	assert.Equal(t, target, found)
}

func TestAs_ReturnsFalseWhenNoErrorInChain(t *testing.T) {
	var found *Error
	ok := As(errors.New("plain"), &found)
	assert.False(t, ok)
}
