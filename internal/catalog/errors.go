package catalog

import "errors"

// ErrDataUnavailable indicates the dish or ingredient source is missing or unparsable.
var ErrDataUnavailable = errors.New("catalog data unavailable")
