// Package enrich turns one document into a core.Enrichment.
//
// The Orchestrator runs five capability calls in a fixed order (detect
// language, translate the title, summarize, extract keywords, categorize)
// under a single overall deadline. Each call goes through an
// ai.Capabilities implementation, normally the providers.Executor, which
// handles fallback between providers. The orchestrator itself never
// retries.
//
// A document whose deadline elapses yields ErrDeadlineExceeded and no
// partial result. A document without usable text yields
// ErrUnusableDocument before any provider is called.
package enrich
