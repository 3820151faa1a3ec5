package common

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alchemorsel/planner/internal/ports/outbound"
	"github.com/alchemorsel/planner/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallStorage_JoinsContextError(t *testing.T) {
	err := CallStorage(context.Background(), 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return stderrors.New("driver: bad connection")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, errors.Is(StorageError("load", err), errors.CodeStorageTimeout))
}

func TestCallStorage_CallerDeadlineWins(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	started := time.Now()
	_ = CallStorage(ctx, time.Hour, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.Less(t, time.Since(started), time.Second)
}

func TestStorageError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code errors.ErrorCode
	}{
		{"Timeout", context.DeadlineExceeded, errors.CodeStorageTimeout},
		{"Canceled", context.Canceled, errors.CodeCanceled},
		{"Conflict", outbound.ErrVersionConflict, errors.CodeConflict},
		{"Other", stderrors.New("disk full"), errors.CodeStorage},
		{"AlreadyApp", errors.NewExpiredError("x"), errors.CodeExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, StorageError("op", tt.err).Code)
		})
	}

	assert.Nil(t, StorageError("op", nil))
}

func TestLookupError(t *testing.T) {
	err := LookupError("load share", "share", "abc", outbound.ErrNotFound)

	assert.Equal(t, errors.CodeNotFound, err.Code)
	assert.Equal(t, "abc", err.Metadata["id"])
	assert.ErrorIs(t, err, outbound.ErrNotFound)
}

func TestValidator(t *testing.T) {
	type command struct {
		Name   string  `validate:"required,max=5,printable"`
		Weight float64 `validate:"gt=0,lte=1"`
	}
	v := NewValidator()

	assert.Nil(t, v.Struct(command{Name: "ok", Weight: 0.5}))

	err := v.Struct(command{Name: "bell\a", Weight: 2})
	require.NotNil(t, err)
	assert.Equal(t, errors.CodeInvalidArgument, err.Code)
	assert.Equal(t, "Name", err.Metadata["field"])
	assert.Contains(t, err.Details, "name contains control characters")
	assert.Contains(t, err.Details, "weight must be at most 1")
}
