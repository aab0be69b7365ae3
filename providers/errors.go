package providers

import "errors"

var (
	// ErrNoProviders is returned when no registered provider is a candidate.
	ErrNoProviders = errors.New("no providers available")

	// ErrAllProvidersFailed is returned when every candidate provider failed.
	ErrAllProvidersFailed = errors.New("all providers failed")

	// ErrProviderNotFound is returned for an id that is not registered.
	ErrProviderNotFound = errors.New("provider not registered")

	// ErrUnsupportedProvider indicates a configured provider id has no adapter.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrPipelineConfigRequired is returned when NewRegistry is given a nil config.
	ErrPipelineConfigRequired = errors.New("pipeline config is required")

	// ErrInvalidPoolSize is returned for a health check pool smaller than one.
	ErrInvalidPoolSize = errors.New("health pool size must be at least 1")

	// ErrRegistryRequired is returned when NewExecutor is given a nil registry.
	ErrRegistryRequired = errors.New("registry is required")
)
