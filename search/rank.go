package search

import (
	"cmp"
	"slices"

	"github.com/poiesic/oppmatch/core"
)

// Rank scores every row of matrix against query by cosine similarity and
// returns the rows scoring at least threshold, best first. Equal scores keep
// matrix order. When topK > 0 at most topK results are returned. Ranks are
// 1-based.
//
// ids[i] names matrix[i]. Rows with a width different from query score 0.
func Rank(ids []string, matrix []core.Vector, query core.Vector, threshold float64, topK int) []core.ScoredDocument {
	queryNorm := core.Norm(query)

	hits := make([]core.ScoredDocument, 0)
	for i, row := range matrix {
		score := core.CosineWithNorms(query, row, queryNorm, core.Norm(row))
		if score >= threshold {
			hits = append(hits, core.ScoredDocument{DocumentID: ids[i], Score: score})
		}
	}

	slices.SortStableFunc(hits, func(a, b core.ScoredDocument) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	for i := range hits {
		hits[i].Rank = i + 1
	}
	return hits
}
