package config

import "errors"

var (
	// ErrInvalidConfig is returned when the loaded configuration fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConfigFile is returned when the config file cannot be read or parsed.
	ErrConfigFile = errors.New("cannot load config file")
)
