package source

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/oppmatch/core"
)

// Columns names the CSV columns a document is read from.
type Columns struct {
	ID          string
	Title       string
	Description string
	Category    string
}

// DefaultColumns returns the column names used by SAM.gov exports.
func DefaultColumns() Columns {
	return Columns{
		ID:          "NoticeId",
		Title:       "Title",
		Description: "Description",
		Category:    "NaicsCode",
	}
}

// LoadReport counts what happened to each row of a document CSV.
type LoadReport struct {
	Rows           int
	Kept           int
	Filtered       int // category not selected
	MissingTitle   int
	MissingID      int
	DuplicateTitle int
	Malformed      int
}

type loadConfig struct {
	columns    Columns
	categories map[string]struct{}
	logger     *slog.Logger
}

// Option configures document loading.
type Option func(*loadConfig)

// WithColumns overrides the column names.
func WithColumns(columns Columns) Option {
	return func(c *loadConfig) {
		c.columns = columns
	}
}

// WithCategories keeps only rows whose category code is one of codes.
// With no codes every row is kept.
func WithCategories(codes ...string) Option {
	return func(c *loadConfig) {
		if len(codes) == 0 {
			c.categories = nil
			return
		}
		c.categories = make(map[string]struct{}, len(codes))
		for _, code := range codes {
			c.categories[code] = struct{}{}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *loadConfig) {
		c.logger = logger
	}
}

func newLoadConfig(opts []Option) *loadConfig {
	c := &loadConfig{
		columns: DefaultColumns(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "source")
	return c
}

// LoadDocuments reads opportunities from the CSV file at path.
//
// Rows are kept in file order when their category is selected, they have a
// title and an id, and no earlier kept row had the same title.
func LoadDocuments(path string, opts ...Option) ([]core.Document, *LoadReport, error) {
	cfg := newLoadConfig(opts)
	cols := cfg.columns

	t, err := openTable(path)
	if err != nil {
		return nil, nil, err
	}
	required := []string{cols.ID, cols.Title}
	if cfg.categories != nil {
		required = append(required, cols.Category)
	}
	if err := t.has(required...); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	report := &LoadReport{}
	seenTitles := make(map[string]struct{})
	var docs []core.Document

	for row := range t.Rows() {
		report.Rows++

		if cfg.categories != nil {
			if _, ok := cfg.categories[row.Field(cols.Category)]; !ok {
				report.Filtered++
				continue
			}
		}

		doc := core.Document{
			ID:           row.Field(cols.ID),
			Title:        row.Field(cols.Title),
			Description:  row.Field(cols.Description),
			CategoryCode: row.Field(cols.Category),
		}
		if doc.Title == "" {
			report.MissingTitle++
			continue
		}
		if err := core.ValidateDocument(&doc); err != nil {
			report.MissingID++
			continue
		}
		if _, dup := seenTitles[doc.Title]; dup {
			report.DuplicateTitle++
			continue
		}
		seenTitles[doc.Title] = struct{}{}
		docs = append(docs, doc)
	}
	if t.err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, t.err)
	}
	report.Malformed = t.malformed
	report.Kept = len(docs)

	cfg.logger.Info("loaded documents",
		"path", path, "rows", report.Rows, "kept", report.Kept,
		"filtered", report.Filtered, "duplicateTitles", report.DuplicateTitle,
		"malformed", report.Malformed)
	return docs, report, nil
}
