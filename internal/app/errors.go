package app

import "errors"

var (
	ErrInvalidConfig    = errors.New("app: invalid configuration")
	ErrMigrateNotNeeded = errors.New("app: migrations apply to the postgres user store only")
)
