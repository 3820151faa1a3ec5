package share

import "errors"

var (
	ErrRecipeRequired = errors.New("recipe id is required")
	ErrUserRequired   = errors.New("user id is required")
	ErrTokenRequired  = errors.New("share token is required")
	ErrInvalidTTL     = errors.New("ttl must be positive when given")
)
