// Package common holds helpers shared by the application services: storage
// call deadlines, error translation, validation and instrumentation.
package common

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/alchemorsel/planner/internal/ports/outbound"
	"github.com/alchemorsel/planner/pkg/errors"
)

// DefaultStorageTimeout bounds a storage call when none is configured
const DefaultStorageTimeout = 5 * time.Second

// CallStorage runs fn under a deadline of timeout, or the caller's own
// deadline if that is earlier. When the derived context ended, its error is
// joined onto fn's so the cause can be classified even if the driver
// swallowed it.
func CallStorage(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		timeout = DefaultStorageTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(cctx)
	if err == nil {
		return nil
	}
	if ctxErr := cctx.Err(); ctxErr != nil && !stderrors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}

// StorageError translates a failed storage call into an AppError. Not-found
// is left to the caller since only it knows the resource.
func StorageError(operation string, err error) *errors.AppError {
	var appErr *errors.AppError
	switch {
	case err == nil:
		return nil
	case stderrors.As(err, &appErr):
		return appErr
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewStorageTimeoutError(operation, err)
	case stderrors.Is(err, context.Canceled):
		return errors.NewCanceledError(operation, err)
	case stderrors.Is(err, outbound.ErrVersionConflict):
		return errors.NewConflictError(fmt.Sprintf("Concurrent write while trying to %s", operation), err)
	default:
		return errors.NewStorageError(operation, err)
	}
}

// LookupError is StorageError with ErrNotFound mapped to a NOT_FOUND error
// for resource id.
func LookupError(operation, resource, id string, err error) *errors.AppError {
	if stderrors.Is(err, outbound.ErrNotFound) {
		return errors.NewNotFoundError(resource, id).WithCause(err)
	}
	return StorageError(operation, err)
}

// CheckContext fails fast when ctx is already done
func CheckContext(ctx context.Context, operation string) *errors.AppError {
	if err := ctx.Err(); err != nil {
		return StorageError(operation, err)
	}
	return nil
}
