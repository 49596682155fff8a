package search

import "github.com/poiesic/oppmatch/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string, opts QueryOptions)
	AfterQueryEmbedding(vector core.Vector)
	AfterScoring(candidates int, kept int)
	Finish(results []core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ QueryOptions)    {}
func (n *noopMonitor) AfterQueryEmbedding(_ core.Vector) {}
func (n *noopMonitor) AfterScoring(_ int, _ int)         {}
func (n *noopMonitor) Finish(_ []core.SearchResult)      {}
