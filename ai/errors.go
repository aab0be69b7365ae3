package ai

import "errors"

var (
	// ErrInvalidConfig indicates a provider or pipeline configuration failed validation.
	ErrInvalidConfig = errors.New("invalid ai config")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEmptyResponse indicates the backend returned no usable content.
	ErrEmptyResponse = errors.New("empty response from model")
)
