package enrich

import "errors"

var (
	// ErrUnusableDocument is returned when a document has neither body nor
	// excerpt text to enrich. It wraps core.ErrEmptyContent.
	ErrUnusableDocument = errors.New("document has no usable content")

	// ErrDeadlineExceeded is returned when the overall enrichment deadline
	// elapses before all capability calls finish.
	ErrDeadlineExceeded = errors.New("enrichment deadline exceeded")

	// ErrCapabilitiesRequired is returned when NewOrchestrator is given nil capabilities.
	ErrCapabilitiesRequired = errors.New("capabilities are required")

	// ErrPipelineConfigRequired is returned when NewOrchestrator is given a nil config.
	ErrPipelineConfigRequired = errors.New("pipeline config is required")

	// ErrDocumentRequired is returned when Enrich is called with a nil document.
	ErrDocumentRequired = errors.New("document is required")
)
