package errors

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsContextAndChain(t *testing.T) {
	inner := NewDecodeError("corrupt").WithContext("file", "a.png")
	outer := Wrap(inner, TypeOf(inner), "failed to process image")

	assert.Equal(t, ErrorTypeDecode, outer.Type)
	assert.Equal(t, "a.png", outer.Context["file"])
	assert.True(t, errors.Is(outer, inner))
	assert.Equal(t, "[decode_error] failed to process image: [decode_error] corrupt", outer.Error())

	assert.Nil(t, Wrap(nil, ErrorTypeInternal, "nothing"))
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ErrorTypeInternal, TypeOf(io.EOF))
	assert.Equal(t, ErrorTypeStorage, TypeOf(WrapStorageError(io.EOF, "read")))
	assert.False(t, Is(io.EOF, ErrorTypeInternal))
}

func TestIsNonRetryable(t *testing.T) {
	for _, err := range []error{
		NewInvalidInputError("x"),
		NewDecodeError("x"),
		NewEncodeError("x"),
		NewValidationError("x"),
		NewNotFoundError("batch"),
	} {
		assert.True(t, IsNonRetryable(err), "%v", err)
	}
	for _, err := range []error{
		NewStorageError("x"),
		NewMessagingError("x"),
		NewTimeoutError("x"),
		io.EOF,
	} {
		assert.False(t, IsNonRetryable(err), "%v", err)
	}
}
