package planner

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfiguration = errors.New("invalid plan configuration")
	ErrNoEligibleDish       = errors.New("no eligible dish")
	ErrInsufficientCatalog  = errors.New("insufficient catalog")
)

// InsufficientCatalogError reports that the catalog ran out of distinct dishes
// before every meal slot was filled.
type InsufficientCatalogError struct {
	Filled    int
	Requested int
}

func (e *InsufficientCatalogError) Error() string {
	return fmt.Sprintf("insufficient catalog: filled %d of %d meals", e.Filled, e.Requested)
}

func (e *InsufficientCatalogError) Is(target error) bool {
	return target == ErrInsufficientCatalog
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
