package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestStorageError(t *testing.T) {
	cause := errors.New("connection refused")
	transient := errors.Wrap(NewStorageError("select accounts", cause, true), "finding account")
	fatal := NewStorageError("insert account", cause, false)

	assert.True(t, IsTransient(transient))
	assert.True(t, errors.Is(transient, ErrStorageTransient))
	assert.False(t, errors.Is(transient, ErrStorageFatal))
	assert.True(t, errors.Is(transient, cause))
	assert.Equal(t, "finding account: select accounts: storage temporarily unavailable: connection refused", transient.Error())

	assert.False(t, IsTransient(fatal))
	assert.True(t, errors.Is(fatal, ErrStorageFatal))
	assert.Equal(t, "insert account: storage failure: connection refused", fatal.Error())

	assert.False(t, IsTransient(cause))
	assert.False(t, IsTransient(nil))
}

func TestIsShutdown(t *testing.T) {
	assert.True(t, IsShutdown(NewShutdownError("bye")))
	assert.True(t, IsShutdown(errors.Wrap(NewShutdownError("bye"), "serving")))
	assert.False(t, IsShutdown(errors.New("bye")))
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Hello", CleanString("  Hello \n"))
	assert.Equal(t, "hello", CleanString("  Hello \n", true))
	assert.Equal(t, "", CleanString(" \t "))
}
