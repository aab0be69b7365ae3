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


package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/enricher/ai"
	"github.com/poiesic/enricher/core"
	"github.com/poiesic/enricher/storage"
)

// DefaultCheckpointName is the checkpoint name used unless WithCheckpoints
// is given another.
const DefaultCheckpointName = "batch"

// Enricher produces the enrichment for one document.
// enrich.Orchestrator implements it.
type Enricher interface {
	Enrich(ctx context.Context, doc *core.Document) (*core.Enrichment, error)
}

// Result summarizes one batch cycle.
type Result struct {
	CycleID   string
	Attempted int // documents started
	Succeeded int // documents written as done
	Failed    int // documents marked failed
	Deferred  int // fetched but not started; still awaiting
	Elapsed   time.Duration
}

// Processor runs batch cycles over the document repository.
type Processor struct {
	repo           storage.DocumentRepository
	enricher       Enricher
	config         *ai.PipelineConfig
	monitor        Monitor
	checkpoints    storage.CheckpointRepository
	checkpointName string
	now            func() time.Time
	location       *time.Location
	logger         *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor) error

// WithMonitor sets a monitor to observe batch cycles.
func WithMonitor(monitor Monitor) Option {
	return func(p *Processor) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		p.monitor = monitor
		return nil
	}
}

// WithCheckpoints records every finished cycle under name in repo.
// An empty name uses DefaultCheckpointName.
func WithCheckpoints(repo storage.CheckpointRepository, name string) Option {
	return func(p *Processor) error {
		if name == "" {
			name = DefaultCheckpointName
		}
		p.checkpoints = repo
		p.checkpointName = name
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithClock overrides the clock used for budgets and the today filter.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		p.now = now
		return nil
	}
}

// WithLocation sets the time zone that defines "today".
// Default is time.Local.
func WithLocation(loc *time.Location) Option {
	return func(p *Processor) error {
		if loc == nil {
			return errors.New("location cannot be nil")
		}
		p.location = loc
		return nil
	}
}

// NewProcessor creates a batch processor.
func NewProcessor(repo storage.DocumentRepository, enricher Enricher, config *ai.PipelineConfig, opts ...Option) (*Processor, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if enricher == nil {
		return nil, ErrEnricherRequired
	}
	if config == nil {
		return nil, ErrPipelineConfigRequired
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Processor{
		repo:           repo,
		enricher:       enricher,
		config:         config,
		monitor:        &noopMonitor{},
		checkpointName: DefaultCheckpointName,
		now:            time.Now,
		location:       time.Local,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "batch-processor")
	return p, nil
}

// ProcessPending enriches up to limit awaiting documents, oldest discovered
// first. A limit of zero or less uses the configured batch size.
//
// The returned error is non-nil only when the batch could not be fetched;
// per-document failures are reported through the Result.
func (p *Processor) ProcessPending(ctx context.Context, limit int) (*Result, error) {
	if limit <= 0 {
		limit = p.config.BatchSize
	}
	return p.process(ctx, "pending", func(ctx context.Context) ([]*core.Document, error) {
		return p.repo.FetchAwaiting(ctx, limit)
	})
}

// ProcessToday is ProcessPending restricted to documents published (or,
// lacking a publish time, discovered) today in the processor's location.
func (p *Processor) ProcessToday(ctx context.Context, limit int) (*Result, error) {
	if limit <= 0 {
		limit = p.config.BatchSize
	}
	day := p.now().In(p.location)
	return p.process(ctx, "today", func(ctx context.Context) ([]*core.Document, error) {
		return p.repo.FetchAwaitingForDay(ctx, day, limit)
	})
}

type fetchFunc func(ctx context.Context) ([]*core.Document, error)

func (p *Processor) process(ctx context.Context, mode string, fetch fetchFunc) (*Result, error) {
	start := p.now()
	result := &Result{CycleID: uuid.NewString()}
	logger := p.logger.With("cycle_id", result.CycleID, "mode", mode)

	docs, err := fetch(ctx)
	if err != nil {
		logger.Error("failed to fetch awaiting documents", "err", err)
		return nil, fmt.Errorf("%w: fetch awaiting documents: %w", ErrPersistenceUnavailable, err)
	}
	if len(docs) == 0 {
		logger.Debug("no awaiting documents")
		result.Elapsed = p.now().Sub(start)
		return result, nil
	}

	budget := p.config.BatchBudget(len(docs))
	deadline := start.Add(budget)
	logger.Info("batch started", "documents", len(docs), "budget", budget)
	p.monitor.CycleStarted(result.CycleID, len(docs))

	for i, doc := range docs {
		if ctx.Err() != nil {
			result.Deferred = len(docs) - i
			logger.Info("stop requested, deferring remaining documents", "deferred", result.Deferred)
			break
		}
		remaining := deadline.Sub(p.now())
		if remaining <= 0 {
			result.Deferred = len(docs) - i
			logger.Warn("batch budget exhausted, deferring remaining documents", "deferred", result.Deferred)
			break
		}
		p.processDocument(ctx, doc, min(p.config.DocumentTimeout, remaining), result, logger)
	}

	result.Elapsed = p.now().Sub(start)
	p.saveCheckpoint(ctx, result, start)
	p.monitor.CycleFinished(result)

	logger.Info("batch finished",
		"attempted", result.Attempted,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"deferred", result.Deferred,
		"elapsed", result.Elapsed)
	return result, nil
}

// processDocument runs one document to a terminal status. Writes and the
// enrichment itself are detached from ctx so a stop request lets the
// document finish.
func (p *Processor) processDocument(ctx context.Context, doc *core.Document, timeout time.Duration, result *Result, logger *slog.Logger) {
	logger = logger.With("document_id", doc.Id)
	detached := context.WithoutCancel(ctx)
	started := p.now()

	result.Attempted++
	p.monitor.DocumentStarted(doc)

	if err := p.repo.UpdateStatus(detached, doc.Id, core.StatusInProgress); err != nil {
		// Still awaiting; the next cycle picks it up again.
		logger.Error("failed to mark document in progress", "err", err)
		result.Failed++
		p.monitor.DocumentFailed(doc, err)
		return
	}

	docCtx, cancel := context.WithTimeout(detached, timeout)
	enrichment, err := p.enricher.Enrich(docCtx, doc)
	cancel()
	if err != nil {
		logger.Warn("enrichment failed", "err", err)
		p.markFailed(detached, doc, err, result, logger)
		return
	}

	if err := p.repo.UpdateEnrichment(detached, doc.Id, enrichment); err != nil {
		logger.Error("failed to store enrichment", "err", err)
		p.markFailed(detached, doc, err, result, logger)
		return
	}

	result.Succeeded++
	elapsed := p.now().Sub(started)
	p.monitor.DocumentSucceeded(doc, elapsed)
	logger.Debug("document enriched", "elapsed", elapsed)
}

func (p *Processor) markFailed(ctx context.Context, doc *core.Document, cause error, result *Result, logger *slog.Logger) {
	result.Failed++
	p.monitor.DocumentFailed(doc, cause)
	if err := p.repo.UpdateStatus(ctx, doc.Id, core.StatusFailed); err != nil {
		// Left in_progress; recover with a manual status reset.
		logger.Error("failed to mark document failed", "err", err)
	}
}

func (p *Processor) saveCheckpoint(ctx context.Context, result *Result, start time.Time) {
	if p.checkpoints == nil {
		return
	}
	cp := &core.Checkpoint{
		Name:       p.checkpointName,
		CycleID:    result.CycleID,
		StartedAt:  start,
		FinishedAt: start.Add(result.Elapsed),
		Attempted:  result.Attempted,
		Succeeded:  result.Succeeded,
		Failed:     result.Failed,
		Deferred:   result.Deferred,
	}
	if err := p.checkpoints.SaveCheckpoint(context.WithoutCancel(ctx), cp); err != nil {
		p.logger.Warn("failed to save checkpoint", "cycle_id", result.CycleID, "err", err)
	}
}

// Statistics returns document counts by status and the completion rate.
func (p *Processor) Statistics(ctx context.Context) (*core.Statistics, error) {
	counts, err := p.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: count documents: %w", ErrPersistenceUnavailable, err)
	}
	return core.NewStatistics(counts), nil
}

// LastCycle returns the checkpoint of the last finished cycle, or nil if
// none was recorded or checkpoints are not configured.
func (p *Processor) LastCycle(ctx context.Context) (*core.Checkpoint, error) {
	if p.checkpoints == nil {
		return nil, nil
	}
	cp, err := p.checkpoints.LoadCheckpoint(ctx, p.checkpointName)
	if err != nil {
		return nil, fmt.Errorf("%w: load checkpoint: %w", ErrPersistenceUnavailable, err)
	}
	return cp, nil
}

// ResetFailed moves failed documents back to awaiting for another attempt.
func (p *Processor) ResetFailed(ctx context.Context) (int, error) {
	n, err := p.repo.ResetFailed(ctx)
	if err != nil {
		return n, fmt.Errorf("%w: reset failed documents: %w", ErrPersistenceUnavailable, err)
	}
	p.logger.Info("failed documents reset", "count", n)
	return n, nil
}
