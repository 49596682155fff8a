// Package ingestion turns opportunity documents into cached embeddings.
//
// A Normalizer cleans each document's title and description into the text
// that is embedded. The Pipeline then embeds, in fixed-size batches on a
// bounded worker pool, every document whose ID is not already in the cache,
// and merges the results in one step once all batches have succeeded:
//   - Documents already cached are never re-embedded (first write wins)
//   - Documents whose cleaned text is too short are skipped
//   - Any batch failure leaves the cache untouched
//
// Reembed is the explicit path for recomputing cached vectors after a model
// or cleaning change.
package ingestion
