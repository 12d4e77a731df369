package config

import "errors"

var (
	ErrParsingConfig = errors.New("config: failed to parse environment variables")
	ErrNilPointer    = errors.New("config: nil pointer")
	ErrEnvFile       = errors.New("config: failed to read env file")
)
