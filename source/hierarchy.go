package source

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Agency hierarchy columns in a SAM.gov export.
const (
	DepartmentColumn = "Department/Ind.Agency"
	SubTierColumn    = "Sub-Tier"
	OfficeColumn     = "Office"
)

// HierarchyHeader is the header row written by ExtractHierarchy.
var HierarchyHeader = []string{"NoticeId", "Department", "SubTier", "Office", "Title"}

// ExtractHierarchy reads the opportunities CSV at inputPath and writes to w
// one row per opportunity with its agency hierarchy. Rows without an id are
// skipped. It returns the number of rows written.
func ExtractHierarchy(inputPath string, w io.Writer, opts ...Option) (int, error) {
	cfg := newLoadConfig(opts)
	cols := cfg.columns

	t, err := openTable(inputPath)
	if err != nil {
		return 0, err
	}
	if err := t.has(cols.ID); err != nil {
		return 0, fmt.Errorf("%s: %w", inputPath, err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(HierarchyHeader); err != nil {
		return 0, err
	}

	written := 0
	for row := range t.Rows() {
		id := row.Field(cols.ID)
		if id == "" {
			continue
		}
		record := []string{
			id,
			row.Field(DepartmentColumn),
			row.Field(SubTierColumn),
			row.Field(OfficeColumn),
			row.Field(cols.Title),
		}
		if err := writer.Write(record); err != nil {
			return written, err
		}
		written++
	}
	if t.err != nil {
		return written, fmt.Errorf("failed to read %s: %w", inputPath, t.err)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return written, fmt.Errorf("failed to write hierarchy: %w", err)
	}
	cfg.logger.Info("extracted hierarchy", "path", inputPath, "rows", written, "malformed", t.malformed)
	return written, nil
}
