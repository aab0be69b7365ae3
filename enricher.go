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


package enricher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/enricher/ai"
	"github.com/poiesic/enricher/ai/ollama"
	"github.com/poiesic/enricher/ai/openai"
	"github.com/poiesic/enricher/batch"
	"github.com/poiesic/enricher/config"
	"github.com/poiesic/enricher/core"
	"github.com/poiesic/enricher/enrich"
	"github.com/poiesic/enricher/providers"
	"github.com/poiesic/enricher/scheduler"
	"github.com/poiesic/enricher/storage"
	"github.com/poiesic/enricher/storage/badger"
	"github.com/poiesic/enricher/storage/sqlstore"
)

// ErrConfigRequired is returned by NewService when cfg is nil.
var ErrConfigRequired = errors.New("config is required")

// Service wires storage, providers, the orchestrator, the batch processor
// and the scheduler from one configuration.
type Service struct {
	repo      storage.Repository
	registry  *providers.Registry
	processor *batch.Processor
	scheduler *scheduler.Scheduler
	logger    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	repo      storage.Repository
	providers []ai.Provider
	factories map[ai.ProviderID]providers.Factory
	monitor   batch.Monitor
}

// WithRepository uses repo instead of opening the configured backend.
// The service takes ownership and closes it.
func WithRepository(repo storage.Repository) ServiceOption {
	return func(o *serviceOptions) {
		o.repo = repo
	}
}

// WithProviders registers ready-made providers instead of building them
// from the configuration.
func WithProviders(p ...ai.Provider) ServiceOption {
	return func(o *serviceOptions) {
		o.providers = p
	}
}

// WithFactories replaces DefaultFactories.
func WithFactories(factories map[ai.ProviderID]providers.Factory) ServiceOption {
	return func(o *serviceOptions) {
		o.factories = factories
	}
}

// WithMonitor attaches a batch monitor to the processor.
func WithMonitor(monitor batch.Monitor) ServiceOption {
	return func(o *serviceOptions) {
		o.monitor = monitor
	}
}

// DefaultFactories returns the adapter constructors for the built-in
// providers. qianwen and huoshan use the OpenAI-compatible adapter.
func DefaultFactories() map[ai.ProviderID]providers.Factory {
	openaiFactory := func(cfg ai.ProviderConfig) (ai.Provider, error) {
		return openai.NewProvider(cfg)
	}
	return map[ai.ProviderID]providers.Factory{
		ai.ProviderOllama: func(cfg ai.ProviderConfig) (ai.Provider, error) {
			return ollama.NewProvider(cfg)
		},
		ai.ProviderOpenAI:  openaiFactory,
		ai.ProviderQianwen: openaiFactory,
		ai.ProviderHuoshan: openaiFactory,
	}
}

// OpenRepository opens the storage backend named in cfg.
func OpenRepository(ctx context.Context, cfg config.StorageConfig) (storage.Repository, error) {
	switch cfg.Backend {
	case config.BackendBadger:
		return badger.NewRepository(cfg.DSN)
	case config.BackendSQLite, config.BackendPostgres:
		return sqlstore.Open(ctx, sqlstore.Config{
			Driver:      cfg.Backend,
			DSN:         cfg.DSN,
			MaxConns:    cfg.MaxConns,
			DialTimeout: cfg.DialTimeout,
		})
	}
	return nil, fmt.Errorf("%w: %q", storage.ErrUnsupportedBackend, cfg.Backend)
}

// NewService validates cfg and builds every component. The scheduler is
// created stopped.
func NewService(ctx context.Context, cfg *config.Config, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &serviceOptions{factories: DefaultFactories()}
	for _, opt := range opts {
		opt(options)
	}

	pipeline := cfg.AIPipelineConfig()
	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	repo := options.repo
	if repo == nil {
		repo, err = OpenRepository(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
		}
	}

	var registry *providers.Registry
	if len(options.providers) > 0 {
		registry, err = providers.NewStaticRegistry(pipeline, options.providers)
	} else {
		registry, err = providers.NewRegistry(pipeline, cfg.ProviderConfigs(), options.factories)
	}
	if err != nil {
		repo.Close()
		return nil, err
	}

	s := &Service{
		repo:     repo,
		registry: registry,
		logger:   slog.Default().With("component", "service"),
	}
	if err := s.build(cfg, pipeline, location, options.monitor); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) build(cfg *config.Config, pipeline *ai.PipelineConfig, location *time.Location, monitor batch.Monitor) error {
	executor, err := providers.NewExecutor(s.registry)
	if err != nil {
		return err
	}
	orchestrator, err := enrich.NewOrchestrator(executor, pipeline)
	if err != nil {
		return err
	}

	processorOpts := []batch.Option{
		batch.WithCheckpoints(s.repo, batch.DefaultCheckpointName),
		batch.WithLocation(location),
	}
	if monitor != nil {
		processorOpts = append(processorOpts, batch.WithMonitor(monitor))
	}
	s.processor, err = batch.NewProcessor(s.repo, orchestrator, pipeline, processorOpts...)
	if err != nil {
		return err
	}

	s.scheduler, err = scheduler.New(s.processor, cfg.SchedulerOptions()...)
	return err
}

// Scheduler returns the background scheduler.
func (s *Service) Scheduler() *scheduler.Scheduler {
	return s.scheduler
}

// Processor returns the batch processor.
func (s *Service) Processor() *batch.Processor {
	return s.processor
}

// Registry returns the provider registry.
func (s *Service) Registry() *providers.Registry {
	return s.registry
}

// Repository returns the document store.
func (s *Service) Repository() storage.Repository {
	return s.repo
}

// Statistics returns document counts by status.
func (s *Service) Statistics(ctx context.Context) (*core.Statistics, error) {
	return s.processor.Statistics(ctx)
}

// Close stops the scheduler and releases providers and storage.
func (s *Service) Close() error {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	var errs []error
	if err := s.registry.Close(); err != nil {
		s.logger.Error("error closing providers", "err", err)
		errs = append(errs, err)
	}
	if err := s.repo.Close(); err != nil {
		s.logger.Error("error closing storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
