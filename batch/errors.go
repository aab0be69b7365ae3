package batch

import "errors"

var (
	// ErrPersistenceUnavailable is returned when the batch cannot read from
	// or write to the document repository at the batch level.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")

	// ErrRepositoryRequired is returned when NewProcessor is given a nil repository.
	ErrRepositoryRequired = errors.New("document repository is required")

	// ErrEnricherRequired is returned when NewProcessor is given a nil enricher.
	ErrEnricherRequired = errors.New("enricher is required")

	// ErrPipelineConfigRequired is returned when NewProcessor is given a nil config.
	ErrPipelineConfigRequired = errors.New("pipeline config is required")
)
