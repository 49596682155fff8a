package core

// Document is a single contracting opportunity.
// Identity is the ID: two documents with the same ID are the same entity across runs.
type Document struct {
	ID           string
	Title        string
	Description  string
	CategoryCode string // NAICS code for SAM.gov exports
}

// NormalizedText is the cleaned form of a document that is sent to the embedder.
// It is derived on every run and never persisted.
type NormalizedText struct {
	SourceID string
	Text     string
	Length   int // Rune count of Text, computed after normalization
}

// Vector is a fixed-length embedding produced by an embedding provider.
type Vector []float32

// Capability is a short statement of an organizational capability.
// It has no identity beyond its text and is only used as a query.
type Capability struct {
	Text string
}

// CapabilityKeyPrefix marks keys that refer to capability-derived pseudo points
// rather than real documents.
const CapabilityKeyPrefix = "CAP:"

// CapabilityKey returns the synthetic key used for a capability-origin entry.
func CapabilityKey(s string) string {
	return CapabilityKeyPrefix + s
}

// ScoredDocument is a single ranked hit.
type ScoredDocument struct {
	DocumentID string
	Score      float64 // Cosine similarity in [-1, 1]
	Rank       int     // 1-based position after sorting
}

// SearchResult is a ranked hit from a free-text query, with a display label.
type SearchResult struct {
	ScoredDocument
	Label string
}

// MatchResult holds the ranked documents matched for one query.
// It is produced fresh per query and never stored in the cache.
type MatchResult struct {
	Query  string
	Ranked []ScoredDocument
}

// DocumentIDs returns the matched document IDs in rank order.
func (m MatchResult) DocumentIDs() []string {
	ids := make([]string, len(m.Ranked))
	for i, hit := range m.Ranked {
		ids[i] = hit.DocumentID
	}
	return ids
}
