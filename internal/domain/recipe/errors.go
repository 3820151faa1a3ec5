package recipe

import "errors"

// Domain errors for recipe assembly and scaling

var (
	// Integrity violations found while assembling stored rows
	ErrDuplicateOrder   = errors.New("duplicate order value within sibling set")
	ErrUnknownComponent = errors.New("row references a component outside the recipe")
	ErrForeignComponent = errors.New("component belongs to a different recipe")
	ErrNegativeQuantity = errors.New("ingredient quantity must not be negative")

	// Scaling errors
	ErrInvalidTargetServings = errors.New("target servings must be greater than 0")
	ErrInvalidBaseServings   = errors.New("stored base servings must be greater than 0")
)

// IsIntegrityViolation reports whether err was caused by stored rows that
// break an assembly invariant.
func IsIntegrityViolation(err error) bool {
	return errors.Is(err, ErrDuplicateOrder) ||
		errors.Is(err, ErrUnknownComponent) ||
		errors.Is(err, ErrForeignComponent) ||
		errors.Is(err, ErrNegativeQuantity)
}
