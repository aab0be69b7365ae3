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


package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/enricher/ai"
)

// Factory builds a provider from its configuration.
type Factory func(config ai.ProviderConfig) (ai.Provider, error)

// Registry holds the enabled providers, the default provider and the
// ordered fallback list. Providers are registered once at construction;
// only the default can change afterwards.
type Registry struct {
	providers      map[ai.ProviderID]ai.Provider
	order          []ai.ProviderID
	fallback       []ai.ProviderID
	enableFallback bool
	healthPoolSize int
	docTimeout     time.Duration
	logger         *slog.Logger

	mu        sync.RWMutex
	defaultID ai.ProviderID
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithHealthPoolSize sets how many health checks run concurrently.
// Default is 4.
func WithHealthPoolSize(size int) RegistryOption {
	return func(r *Registry) error {
		if size < 1 {
			return fmt.Errorf("%w: %d", ErrInvalidPoolSize, size)
		}
		r.healthPoolSize = size
		return nil
	}
}

func newRegistry(pipeline *ai.PipelineConfig, opts ...RegistryOption) (*Registry, error) {
	if pipeline == nil {
		return nil, ErrPipelineConfigRequired
	}
	pipeline.Normalize()

	r := &Registry{
		providers:      make(map[ai.ProviderID]ai.Provider),
		fallback:       slices.Clone(pipeline.FallbackOrder),
		enableFallback: pipeline.EnableFallback,
		healthPoolSize: 4,
		docTimeout:     pipeline.DocumentTimeout,
		defaultID:      pipeline.DefaultProvider,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "provider-registry")
	return r, nil
}

// NewRegistry builds providers from configs using factories keyed by id.
//
// A provider that is disabled, has no factory, fails validation, has a
// timeout longer than the document timeout or fails to construct is skipped with a warning; the remaining providers are
// still registered. A registry with no providers is valid but every
// execution against it fails with ErrNoProviders.
func NewRegistry(pipeline *ai.PipelineConfig, configs []ai.ProviderConfig, factories map[ai.ProviderID]Factory, opts ...RegistryOption) (*Registry, error) {
	r, err := newRegistry(pipeline, opts...)
	if err != nil {
		return nil, err
	}

	for _, cfg := range configs {
		cfg.Normalize()
		logger := r.logger.With("provider", string(cfg.ID))

		if !cfg.Enabled {
			logger.Info("provider disabled, skipping")
			continue
		}
		if _, exists := r.providers[cfg.ID]; exists {
			logger.Warn("duplicate provider configuration, skipping")
			continue
		}
		if err := cfg.CheckTimeout(r.docTimeout); err != nil {
			logger.Warn("skipping provider", "err", err)
			continue
		}
		factory, ok := factories[cfg.ID]
		if !ok {
			logger.Warn("skipping provider", "err", fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.ID))
			continue
		}
		provider, err := factory(cfg)
		if err != nil {
			logger.Warn("skipping provider", "err", fmt.Errorf("%w: %s: %w", ErrUnsupportedProvider, cfg.ID, err))
			continue
		}
		r.register(provider)
		logger.Info("provider registered", "model", cfg.Model)
	}

	r.warnIfDefaultMissing()
	return r, nil
}

// NewStaticRegistry registers already-constructed providers.
func NewStaticRegistry(pipeline *ai.PipelineConfig, providers []ai.Provider, opts ...RegistryOption) (*Registry, error) {
	r, err := newRegistry(pipeline, opts...)
	if err != nil {
		return nil, err
	}
	for _, p := range providers {
		if p == nil {
			continue
		}
		if _, exists := r.providers[p.ID()]; exists {
			r.logger.Warn("duplicate provider, skipping", "provider", string(p.ID()))
			continue
		}
		r.register(p)
	}
	r.warnIfDefaultMissing()
	return r, nil
}

func (r *Registry) register(p ai.Provider) {
	r.providers[p.ID()] = p
	r.order = append(r.order, p.ID())
}

func (r *Registry) warnIfDefaultMissing() {
	if len(r.providers) == 0 {
		r.logger.Warn("no providers registered")
		return
	}
	if _, ok := r.providers[r.defaultID]; !ok {
		r.logger.Warn("default provider not registered; fallback list only", "default", string(r.defaultID))
	}
}

// Get returns the provider registered under id.
func (r *Registry) Get(id ai.ProviderID) (ai.Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// Active returns the registered provider ids in registration order.
func (r *Registry) Active() []ai.ProviderID {
	return slices.Clone(r.order)
}

// Default returns the current default provider id.
func (r *Registry) Default() ai.ProviderID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultID
}

// SwitchDefault makes id the default for subsequent executions.
// Calls already in flight keep the candidate order they started with.
func (r *Registry) SwitchDefault(id ai.ProviderID) error {
	if _, ok := r.providers[id]; !ok {
		return fmt.Errorf("%w: %s", ErrProviderNotFound, id)
	}

	r.mu.Lock()
	previous := r.defaultID
	r.defaultID = id
	r.mu.Unlock()

	r.logger.Info("default provider switched", "from", string(previous), "to", string(id))
	return nil
}

// Candidates returns the provider ids to try, in order: the default, then
// (if fallback is enabled) the fallback list without the default. Ids that
// are not registered are skipped.
func (r *Registry) Candidates() []ai.ProviderID {
	defaultID := r.Default()

	ids := make([]ai.ProviderID, 0, 1+len(r.fallback))
	if _, ok := r.providers[defaultID]; ok {
		ids = append(ids, defaultID)
	}
	if !r.enableFallback {
		return ids
	}
	for _, id := range r.fallback {
		if id == defaultID || slices.Contains(ids, id) {
			continue
		}
		if _, ok := r.providers[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *Registry) candidateProviders() []ai.Provider {
	ids := r.Candidates()
	providers := make([]ai.Provider, 0, len(ids))
	for _, id := range ids {
		providers = append(providers, r.providers[id])
	}
	return providers
}

// HealthCheckAll probes every registered provider concurrently and returns
// the results in registration order.
func (r *Registry) HealthCheckAll(ctx context.Context) []ai.HealthStatus {
	results := make([]ai.HealthStatus, len(r.order))
	if len(r.order) == 0 {
		return results
	}

	pool, err := ants.NewPool(min(r.healthPoolSize, len(r.order)))
	if err != nil {
		r.logger.Error("failed to create health check pool", "err", err)
		for i, id := range r.order {
			results[i] = r.providers[id].HealthCheck(ctx)
		}
		return results
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, id := range r.order {
		provider := r.providers[id]
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			results[i] = provider.HealthCheck(ctx)
		})
		if err != nil {
			wg.Done()
			results[i] = ai.HealthStatus{
				Provider:  id,
				Status:    ai.HealthUnhealthy,
				Error:     err.Error(),
				CheckedAt: time.Now(),
			}
		}
	}
	wg.Wait()

	for _, status := range results {
		r.logger.Debug("health check", "provider", string(status.Provider), "status", string(status.Status), "latency", status.Latency)
	}
	return results
}

// Close closes every registered provider.
func (r *Registry) Close() error {
	var errs []error
	for _, id := range r.order {
		if err := r.providers[id].Close(); err != nil {
			r.logger.Error("error closing provider", "provider", string(id), "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
