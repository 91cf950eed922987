package core

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	err := &Error{Kind: ErrNotFound, Op: "get", ID: 7}
	assert.Equal(t, "get: record not found (id 7)", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrIO)

	wrapped := fmt.Errorf("command failed: %w", NewError(ErrIO, "persist", io.ErrShortWrite))
	assert.ErrorIs(t, wrapped, ErrIO)
	assert.ErrorIs(t, wrapped, io.ErrShortWrite)
	assert.Equal(t, ErrIO, KindOf(wrapped))

	var se *Error
	assert.True(t, errors.As(wrapped, &se))
	assert.Equal(t, "persist", se.Op)
}

func TestInvalidf(t *testing.T) {
	err := Invalidf("amount", "%v must be positive", -1)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "invalid value: amount: -1 must be positive", err.Error())
	assert.Nil(t, KindOf(errors.New("plain")))
}
