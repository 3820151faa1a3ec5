package preference

import "errors"

// Domain errors for preferences
var (
	ErrUserRequired       = errors.New("user id is required")
	ErrCategoryRequired   = errors.New("category is required")
	ErrPreferenceRequired = errors.New("preference is required")
	ErrInvalidWeight      = errors.New("signal weight must be in (0,1]")
	ErrInvalidPolarity    = errors.New("signal polarity must be positive or negative")

	ErrNothingToWeaken = errors.New("negative signal has no active preference to weaken")
	ErrInactive        = errors.New("preference is inactive")
	ErrAlreadyActive   = errors.New("preference is already active")
	ErrKeyMismatch     = errors.New("signal key does not match preference")
)
