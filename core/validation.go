// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"math"
	"strings"
)

// ValidateDocument validates a Document before it is stored.
//
// Validation rules:
//   - URL must not be empty (it seeds the content-based ID)
//   - Title must not be empty
//   - Status, when set, must be a known value
//
// NOT validated:
//   - Body and Excerpt (an unusable document is stored and later fails enrichment)
//   - Enrichment (populated by the pipeline)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if strings.TrimSpace(doc.URL) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyURL)
	}

	if strings.TrimSpace(doc.Title) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyTitle)
	}

	if doc.Status != "" {
		if err := ValidateStatus(doc.Status); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
	}

	return nil
}

// ValidateEnrichment checks that every enrichment field is populated.
// A document is only marked done with a complete enrichment.
func ValidateEnrichment(e *Enrichment) error {
	if e == nil {
		return fmt.Errorf("%w: enrichment is nil", ErrInvalidEnrichment)
	}

	fields := []struct {
		name  string
		value string
	}{
		{"translated title", e.TranslatedTitle},
		{"summary", e.Summary},
		{"language", e.Language},
		{"category", e.Category},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %w: %s", ErrInvalidEnrichment, ErrEmptyField, f.name)
		}
	}

	if len(e.Keywords) == 0 {
		return fmt.Errorf("%w: %w: keywords", ErrInvalidEnrichment, ErrEmptyField)
	}
	for _, kw := range e.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("%w: %w: blank keyword", ErrInvalidEnrichment, ErrEmptyField)
		}
	}

	return nil
}

// ValidateStatus validates that an EnrichmentStatus has a known value.
func ValidateStatus(status EnrichmentStatus) error {
	switch status {
	case StatusAwaiting, StatusInProgress, StatusDone, StatusFailed:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, string(status))
}

// NewStatistics builds Statistics from per-status counts.
func NewStatistics(counts map[EnrichmentStatus]int) *Statistics {
	stats := &Statistics{
		Awaiting:   counts[StatusAwaiting],
		InProgress: counts[StatusInProgress],
		Done:       counts[StatusDone],
		Failed:     counts[StatusFailed],
	}
	stats.Total = stats.Awaiting + stats.InProgress + stats.Done + stats.Failed
	if stats.Total > 0 {
		rate := float64(stats.Done) / float64(stats.Total) * 100
		stats.CompletionRate = math.Round(rate*100) / 100
	}
	return stats
}
