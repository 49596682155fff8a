package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/poiesic/oppmatch/core"
)

// SearchResultsHeader is the header row written by WriteSearchResults.
var SearchResultsHeader = []string{"NoticeId", "CosineSimilarity", "Title"}

// WriteSearchResults writes ranked search results as CSV, best first.
func WriteSearchResults(w io.Writer, results []core.SearchResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(SearchResultsHeader); err != nil {
		return err
	}
	for _, r := range results {
		record := []string{
			r.DocumentID,
			strconv.FormatFloat(r.Score, 'f', -1, 64),
			r.Label,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write search results: %w", err)
	}
	return nil
}

// WriteMatches writes capability matches as CSV with one row per matched
// document: Capability, Rank, NoticeId, CosineSimilarity.
func WriteMatches(w io.Writer, matches []core.MatchResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Capability", "Rank", "NoticeId", "CosineSimilarity"}); err != nil {
		return err
	}
	for _, m := range matches {
		for _, hit := range m.Ranked {
			record := []string{
				m.Query,
				strconv.Itoa(hit.Rank),
				hit.DocumentID,
				strconv.FormatFloat(hit.Score, 'f', -1, 64),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write matches: %w", err)
	}
	return nil
}
