package sqlstore

import "errors"

var (
	// ErrDSNRequired is returned when Open is given an empty DSN.
	ErrDSNRequired = errors.New("storage DSN is required")
)
