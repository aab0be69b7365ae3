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


package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/enricher/ai"
	"github.com/poiesic/enricher/core"
)

const otherCategory = ai.CategoryOther

// Orchestrator produces enrichments for single documents.
type Orchestrator struct {
	caps   ai.Capabilities
	config *ai.PipelineConfig
	now    func() time.Time
	logger *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// WithClock overrides the clock used to stamp EnrichedAt.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		o.now = now
		return nil
	}
}

// NewOrchestrator creates an Orchestrator that calls caps with the settings
// in config. The config is validated here.
func NewOrchestrator(caps ai.Capabilities, config *ai.PipelineConfig, opts ...Option) (*Orchestrator, error) {
	if caps == nil {
		return nil, ErrCapabilitiesRequired
	}
	if config == nil {
		return nil, ErrPipelineConfigRequired
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		caps:   caps,
		config: config,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	o.logger = o.logger.With("component", "enrichment-orchestrator")
	return o, nil
}

type outcome struct {
	enrichment *core.Enrichment
	err        error
}

// Enrich runs the capability sequence for doc. If ctx carries no deadline,
// the configured DocumentTimeout is applied.
//
// On deadline the call returns ErrDeadlineExceeded immediately; the
// in-flight capability call is cancelled and its result discarded.
func (o *Orchestrator) Enrich(ctx context.Context, doc *core.Document) (*core.Enrichment, error) {
	if doc == nil {
		return nil, ErrDocumentRequired
	}

	text, err := prepareText(doc)
	if err != nil {
		return nil, err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.DocumentTimeout)
		defer cancel()
	}

	// runCtx is cancelled when Enrich returns so a late sequence stops
	// calling providers.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		enrichment, err := o.run(runCtx, doc, text)
		done <- outcome{enrichment: enrichment, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, o.contextError(ctx, doc)
	case out := <-done:
		if out.err != nil {
			if ctx.Err() != nil {
				return nil, o.contextError(ctx, doc)
			}
			return nil, out.err
		}
		return out.enrichment, nil
	}
}

func (o *Orchestrator) contextError(ctx context.Context, doc *core.Document) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		o.logger.Warn("enrichment deadline exceeded", "document_id", doc.Id)
		return fmt.Errorf("%w: %d", ErrDeadlineExceeded, doc.Id)
	}
	return fmt.Errorf("enrichment of %d cancelled: %w", doc.Id, ctx.Err())
}

func (o *Orchestrator) run(ctx context.Context, doc *core.Document, text string) (*core.Enrichment, error) {
	logger := o.logger.With("document_id", doc.Id)
	target := o.config.TargetLanguage

	detected, err := o.caps.DetectLanguage(ctx, doc.Title+" "+text)
	if err != nil {
		return nil, fmt.Errorf("detect language: %w", err)
	}
	language := core.NormalizeLanguage(detected)
	if language == "" {
		return nil, fmt.Errorf("detect language: %w", ai.ErrEmptyResponse)
	}
	logger.Debug("language detected", "language", language)

	var translated string
	if core.SameLanguage(language, target) {
		translated = doc.Title
	} else {
		if err := o.pace(ctx); err != nil {
			return nil, err
		}
		translated, err = o.caps.Translate(ctx, doc.Title, language, target)
		if err != nil {
			return nil, fmt.Errorf("translate title: %w", err)
		}
	}

	if err := o.pace(ctx); err != nil {
		return nil, err
	}
	summary, err := o.caps.Summarize(ctx, text, o.config.SummaryLength)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	if err := o.pace(ctx); err != nil {
		return nil, err
	}
	keywords, err := o.caps.ExtractKeywords(ctx, text, o.config.MaxKeywords)
	if err != nil {
		return nil, fmt.Errorf("extract keywords: %w", err)
	}

	if err := o.pace(ctx); err != nil {
		return nil, err
	}
	rawCategory, err := o.caps.Categorize(ctx, doc.Title, text, o.config.Categories)
	if err != nil {
		return nil, fmt.Errorf("categorize: %w", err)
	}

	enrichment := &core.Enrichment{
		TranslatedTitle: translated,
		Summary:         summary,
		Language:        language,
		Keywords:        cleanKeywords(keywords, o.config.MaxKeywords),
		Category:        ResolveCategory(rawCategory, o.config.Categories),
		EnrichedAt:      o.now(),
	}
	if err := core.ValidateEnrichment(enrichment); err != nil {
		return nil, err
	}

	logger.Debug("document enriched", "language", language, "category", enrichment.Category, "keywords", len(enrichment.Keywords))
	return enrichment, nil
}

// pace waits CallPacing between capability calls.
func (o *Orchestrator) pace(ctx context.Context) error {
	if o.config.CallPacing <= 0 {
		return nil
	}
	timer := time.NewTimer(o.config.CallPacing)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
