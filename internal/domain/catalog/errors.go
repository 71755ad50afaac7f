package catalog

import "errors"

// A set of error variables for known failure scenarios within the catalogue.
var (
	ErrRecordNotFound      = errors.New("record not found")
	ErrDuplicateRecord     = errors.New("record already exists")
	ErrInvalidRecord       = errors.New("invalid record")
	ErrInvalidQueryable    = errors.New("unknown queryable property")
	ErrInvalidSortProperty = errors.New("invalid sort property")
)
