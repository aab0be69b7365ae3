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


// Package config loads the enricher configuration.
//
// Settings come from three layers, later ones winning: the built-in
// defaults in default.yaml, an optional YAML file, and environment
// variables. The result converts into the option types the pipeline
// packages take.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/enricher/ai"
	"github.com/poiesic/enricher/scheduler"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvConfigPath      = "ENRICHER_CONFIG"
	EnvStorageBackend  = "ENRICHER_STORAGE_BACKEND"
	EnvStorageDSN      = "ENRICHER_STORAGE_DSN"
	EnvDefaultProvider = "ENRICHER_DEFAULT_PROVIDER"
	EnvLogLevel        = "ENRICHER_LOG_LEVEL"
	EnvOllamaHost      = "OLLAMA_HOST"
	EnvOpenAIKey       = "OPENAI_API_KEY"
	EnvDashScopeKey    = "DASHSCOPE_API_KEY"
	EnvArkKey          = "ARK_API_KEY"
)

// Storage backends.
const (
	BackendBadger   = "badger"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

//go:embed default.yaml
var defaultYAML []byte

// apiKeyEnv maps providers to the variable carrying their credential.
var apiKeyEnv = map[ai.ProviderID]string{
	ai.ProviderOpenAI:  EnvOpenAIKey,
	ai.ProviderQianwen: EnvDashScopeKey,
	ai.ProviderHuoshan: EnvArkKey,
}

// Config is the full application configuration.
type Config struct {
	LogLevel  string                       `yaml:"log_level"`
	Storage   StorageConfig                `yaml:"storage"`
	Pipeline  PipelineConfig               `yaml:"pipeline"`
	Providers map[string]*ProviderSettings `yaml:"providers"`
	Scheduler SchedulerConfig              `yaml:"scheduler"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend string `yaml:"backend"`

	// DSN is a directory for badger, a file path or ":memory:" for sqlite,
	// and a connection URL for postgres.
	DSN string `yaml:"dsn"`

	MaxConns    int32         `yaml:"max_conns"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// PipelineConfig mirrors ai.PipelineConfig plus the time zone that
// defines "today" for day-restricted runs.
type PipelineConfig struct {
	DefaultProvider string        `yaml:"default_provider"`
	FallbackOrder   []string      `yaml:"fallback_order"`
	EnableFallback  bool          `yaml:"enable_fallback"`
	BatchSize       int           `yaml:"batch_size"`
	DocumentTimeout time.Duration `yaml:"document_timeout"`
	BatchTimeout    time.Duration `yaml:"batch_timeout"`
	SummaryLength   int           `yaml:"summary_length"`
	MaxKeywords     int           `yaml:"max_keywords"`
	TargetLanguage  string        `yaml:"target_language"`
	Categories      []string      `yaml:"categories"`
	CallPacing      time.Duration `yaml:"call_pacing"`
	Timezone        string        `yaml:"timezone"`
}

// ProviderSettings configures one AI backend. Zero values fall back to
// the vendor defaults in ai.DefaultProviderConfig.
type ProviderSettings struct {
	// Enabled defaults to true for providers that need no API key, and
	// for the rest once a key is set.
	Enabled     *bool         `yaml:"enabled"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	Temperature *float64      `yaml:"temperature"`
}

// SchedulerConfig sets the background loop cadence.
type SchedulerConfig struct {
	ActiveInterval time.Duration `yaml:"active_interval"`
	PausedInterval time.Duration `yaml:"paused_interval"`
	ErrorBackoff   time.Duration `yaml:"error_backoff"`
	JoinTimeout    time.Duration `yaml:"join_timeout"`
	BatchLimit     int           `yaml:"batch_limit"`
}

// Default returns the built-in configuration.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultYAML, cfg); err != nil {
		return nil, fmt.Errorf("parse built-in defaults: %w", err)
	}
	return cfg, nil
}

// Load builds the configuration from the defaults, the YAML file at path
// (or $ENRICHER_CONFIG when path is empty) and environment overrides, then
// validates it. A missing file is an error only when a path was given.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile decodes the file over cfg. Keys absent from the file keep
// their current values; provider entries are replaced per key.
func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfigFile, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConfigFile, path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvStorageBackend); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv(EnvStorageDSN); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv(EnvDefaultProvider); v != "" {
		c.Pipeline.DefaultProvider = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvOllamaHost); v != "" {
		c.provider(ai.ProviderOllama).BaseURL = v
	}
	for id, env := range apiKeyEnv {
		if v := os.Getenv(env); v != "" {
			c.provider(id).APIKey = v
		}
	}
}

// provider returns the settings for id, creating the entry if needed.
func (c *Config) provider(id ai.ProviderID) *ProviderSettings {
	if c.Providers == nil {
		c.Providers = make(map[string]*ProviderSettings)
	}
	p, ok := c.Providers[string(id)]
	if !ok || p == nil {
		p = &ProviderSettings{}
		c.Providers[string(id)] = p
	}
	return p
}

// Validate checks the configuration as a whole. Pipeline and provider
// settings are checked by converting them to their ai types.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel)
	}

	switch c.Storage.Backend {
	case BackendBadger, BackendSQLite, BackendPostgres:
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	if c.Storage.DSN == "" {
		return fmt.Errorf("%w: storage dsn is required", ErrInvalidConfig)
	}

	pipeline := c.AIPipelineConfig()
	if err := pipeline.Validate(); err != nil {
		return fmt.Errorf("%w: pipeline: %w", ErrInvalidConfig, err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: pipeline timezone: %w", ErrInvalidConfig, err)
	}

	// Only the default provider is fatal; the registry skips any other
	// provider that fails the same checks.
	enabled := 0
	defaultEnabled := false
	for _, pc := range c.ProviderConfigs() {
		if !pc.Enabled {
			continue
		}
		if err := validateProvider(pc, pipeline); err != nil {
			if pc.ID == pipeline.DefaultProvider {
				return fmt.Errorf("%w: providers: %w", ErrInvalidConfig, err)
			}
			slog.Default().With("component", "config").Warn("provider will be skipped", "provider", string(pc.ID), "err", err)
			continue
		}
		enabled++
		if pc.ID == pipeline.DefaultProvider {
			defaultEnabled = true
		}
	}
	if enabled == 0 {
		return fmt.Errorf("%w: no provider is enabled", ErrInvalidConfig)
	}
	if !defaultEnabled {
		return fmt.Errorf("%w: default provider %q is not enabled", ErrInvalidConfig, pipeline.DefaultProvider)
	}

	s := c.Scheduler
	if s.ActiveInterval <= 0 || s.PausedInterval <= 0 || s.ErrorBackoff <= 0 || s.JoinTimeout <= 0 {
		return fmt.Errorf("%w: scheduler intervals must be positive", ErrInvalidConfig)
	}
	if s.BatchLimit < 0 {
		return fmt.Errorf("%w: scheduler batch_limit cannot be negative", ErrInvalidConfig)
	}
	return nil
}

func validateProvider(pc ai.ProviderConfig, pipeline *ai.PipelineConfig) error {
	if err := pc.Validate(); err != nil {
		return err
	}
	return pc.CheckTimeout(pipeline.DocumentTimeout)
}

// AIPipelineConfig converts the pipeline section.
func (c *Config) AIPipelineConfig() *ai.PipelineConfig {
	p := c.Pipeline
	fallback := make([]ai.ProviderID, 0, len(p.FallbackOrder))
	for _, id := range p.FallbackOrder {
		fallback = append(fallback, ai.ProviderID(id))
	}
	return ai.NewPipelineConfig(
		ai.WithDefaultProvider(ai.ProviderID(p.DefaultProvider)),
		ai.WithFallbackOrder(fallback...),
		ai.WithFallback(p.EnableFallback),
		ai.WithBatchSize(p.BatchSize),
		ai.WithDocumentTimeout(p.DocumentTimeout),
		ai.WithBatchTimeout(p.BatchTimeout),
		ai.WithSummaryLength(p.SummaryLength),
		ai.WithMaxKeywords(p.MaxKeywords),
		ai.WithTargetLanguage(p.TargetLanguage),
		ai.WithCategories(p.Categories...),
		ai.WithCallPacing(p.CallPacing),
	)
}

// Location resolves the pipeline time zone. An empty zone is time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Pipeline.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Pipeline.Timezone)
}

// ProviderConfigs converts the providers section, known providers first in
// their canonical order, then any others by name.
func (c *Config) ProviderConfigs() []ai.ProviderConfig {
	known := ai.KnownProviders()
	ids := make([]string, 0, len(c.Providers))
	for id := range c.Providers {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		ia := slices.Index(known, ai.ProviderID(a))
		ib := slices.Index(known, ai.ProviderID(b))
		switch {
		case ia >= 0 && ib >= 0:
			return ia - ib
		case ia >= 0:
			return -1
		case ib >= 0:
			return 1
		}
		return strings.Compare(a, b)
	})

	configs := make([]ai.ProviderConfig, 0, len(ids))
	for _, id := range ids {
		configs = append(configs, c.Providers[id].toAI(ai.ProviderID(id)))
	}
	return configs
}

func (p *ProviderSettings) toAI(id ai.ProviderID) ai.ProviderConfig {
	pc := ai.DefaultProviderConfig(id)
	if p == nil {
		p = &ProviderSettings{}
	}
	if p.BaseURL != "" {
		pc.BaseURL = p.BaseURL
	}
	if p.Model != "" {
		pc.Model = p.Model
	}
	pc.APIKey = p.APIKey
	if p.Timeout > 0 {
		pc.Timeout = p.Timeout
	}
	if p.MaxRetries > 0 {
		pc.MaxRetries = p.MaxRetries
	}
	if p.RetryDelay > 0 {
		pc.RetryDelay = p.RetryDelay
	}
	if p.Temperature != nil {
		pc.Temperature = *p.Temperature
	}

	if p.Enabled != nil {
		pc.Enabled = *p.Enabled
	} else {
		pc.Enabled = !ai.RequiresAPIKey(id) || p.APIKey != ""
	}
	pc.Normalize()
	return pc
}

// SchedulerOptions converts the scheduler section.
func (c *Config) SchedulerOptions() []scheduler.Option {
	s := c.Scheduler
	return []scheduler.Option{
		scheduler.WithActiveInterval(s.ActiveInterval),
		scheduler.WithPausedInterval(s.PausedInterval),
		scheduler.WithErrorBackoff(s.ErrorBackoff),
		scheduler.WithJoinTimeout(s.JoinTimeout),
		scheduler.WithBatchLimit(s.BatchLimit),
	}
}
