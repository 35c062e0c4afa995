package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "msg"))
	assert.Nil(t, Wrapf(nil, "msg %d", 1))
}

func TestWrapPreservesSentinel(t *testing.T) {
	err := Wrap(ErrNotFound, "session abc")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "session abc")
}

func TestWrapfFormats(t *testing.T) {
	err := Wrapf(ErrInvalidArg, "intent %q", "compare")
	assert.True(t, Is(err, ErrInvalidArg))
	assert.Contains(t, err.Error(), `intent "compare"`)
}
