// Package batch provides the building blocks for embedding documents in
// batches: contiguous partitioning, a per-batch processor that checks the
// provider's answers, retry with exponential backoff, and progress reporting.
//
// The concurrent dispatch across batches lives in package ingestion.
package batch
