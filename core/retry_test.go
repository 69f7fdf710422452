package core

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestRetry(t *testing.T) {
	RetryBackoff = 0
	defer func() { RetryBackoff = 20 * time.Millisecond }()

	transient := NewStorageError("select", errors.New("connection reset"), true)
	fatal := NewStorageError("insert", errors.New("syntax error"), false)
	notFound := errors.New("not found")

	tests := []struct {
		name      string
		errs      []error // returned by successive calls, nil afterwards
		wantCalls int
		wantErr   error
	}{
		{name: "success", wantCalls: 1},
		{name: "recovers", errs: []error{transient, transient}, wantCalls: 3},
		{name: "gives up", errs: []error{transient, transient, transient, transient}, wantCalls: 3, wantErr: transient},
		{name: "fatal", errs: []error{fatal}, wantCalls: 1, wantErr: fatal},
		{name: "domain error", errs: []error{notFound}, wantCalls: 1, wantErr: notFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			err := Retry(context.Background(), func() error {
				calls++
				if calls <= len(tt.errs) {
					return tt.errs[calls-1]
				}
				return nil
			})
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestRetry_cancelled(t *testing.T) {
	RetryBackoff = time.Hour
	defer func() { RetryBackoff = 20 * time.Millisecond }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int
	err := Retry(ctx, func() error {
		calls++
		return NewStorageError("select", errors.New("timeout"), true)
	})
	assert.True(t, IsTransient(err))
	assert.Equal(t, 1, calls)
}
