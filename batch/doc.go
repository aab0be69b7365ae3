// Package batch drains awaiting documents through the enrichment pipeline.
//
// A Processor fetches a bounded batch of awaiting documents, oldest
// discovered first, and enriches them one at a time. Each document is
// marked in_progress, enriched under its own deadline, and then either
// written as done together with its enrichment or marked failed. Failures
// never escape the document they belong to; only a failed fetch fails
// the batch.
//
// Stop requests (cancellation of the batch context) and the batch budget
// are checked between documents. The document in flight always finishes
// and is persisted; documents not yet started stay awaiting for the next
// cycle.
package batch
