package source

import "fmt"

// Titles maps document id to title.
type Titles map[string]string

// Label returns the title for id, or "" when unknown.
func (t Titles) Label(id string) string {
	return t[id]
}

// LoadTitles reads every id and title from the CSV at path. Rows without an
// id are ignored; a later row overrides an earlier one with the same id.
// Only WithColumns and WithLogger apply.
func LoadTitles(path string, opts ...Option) (Titles, error) {
	cfg := newLoadConfig(opts)
	cols := cfg.columns

	t, err := openTable(path)
	if err != nil {
		return nil, err
	}
	if err := t.has(cols.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	titles := make(Titles)
	for row := range t.Rows() {
		if id := row.Field(cols.ID); id != "" {
			titles[id] = row.Field(cols.Title)
		}
	}
	if t.err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, t.err)
	}
	cfg.logger.Debug("loaded titles", "path", path, "count", len(titles))
	return titles, nil
}
