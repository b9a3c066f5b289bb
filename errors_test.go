package effect

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPanicErrorUnwrapsErrorValue(t *testing.T) {
	cause := errors.New("cause")
	pe := PanicError{Value: cause}
	assert.Equal(t, cause, pe.Unwrap())
	assert.True(t, errors.Is(pe, cause))
}

func TestPanicErrorUnwrapNilForNonError(t *testing.T) {
	pe := PanicError{Value: "not an error"}
	assert.Nil(t, pe.Unwrap())
	assert.Contains(t, pe.Error(), "not an error")
}

func TestFatalErrorUnwrapAndMessage(t *testing.T) {
	cause := errors.New("root cause")
	fe := FatalError{Cause: cause}
	assert.Equal(t, cause, fe.Unwrap())
	assert.Contains(t, fe.Error(), "root cause")

	empty := FatalError{}
	assert.Equal(t, "effect: fatal error", empty.Error())
}

func TestIsFatalDefaultPredicate(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(errors.New("plain")))
	assert.True(t, IsFatal(FatalError{Cause: errors.New("x")}))
	assert.True(t, IsFatal(fmt.Errorf("wrapped: %w", FatalError{Cause: errors.New("x")})))
}

func TestIsFatalIsReplaceable(t *testing.T) {
	original := IsFatal
	defer func() { IsFatal = original }()

	sentinel := errors.New("always fatal in this test")
	IsFatal = func(err error) bool { return errors.Is(err, sentinel) }
	assert.True(t, IsFatal(sentinel))
	assert.False(t, IsFatal(errors.New("other")))
}

func TestToPanicErrorPassesErrorThrough(t *testing.T) {
	cause := errors.New("already an error")
	assert.Equal(t, cause, toPanicError(cause))

	wrapped := toPanicError("a string panic")
	pe, ok := wrapped.(PanicError)
	assert.True(t, ok)
	assert.Equal(t, "a string panic", pe.Value)
}
