package source

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row is one CSV record addressed by header name.
type Row struct {
	columns map[string]int
	fields  []string
}

// Field returns the trimmed value of the named column. A column that is
// absent from the header, or a record too short to hold it, yields "".
// This is the only place missing values are defaulted.
func (r Row) Field(name string) string {
	i, ok := r.columns[name]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// table reads a headed CSV file row by row.
type table struct {
	columns   map[string]int
	reader    *csv.Reader
	malformed int
	err       error
}

// openTable reads path, decodes it and parses the header row.
func openTable(path string) (*table, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	return newTable(bytes.NewReader(data))
}

func newTable(r io.Reader) (*table, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyInput
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	return &table{columns: columns, reader: reader}, nil
}

// has reports whether the header contains every named column.
func (t *table) has(names ...string) error {
	for _, name := range names {
		if _, ok := t.columns[name]; !ok {
			return fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}
	return nil
}

// Rows yields each well-formed record. Records the parser rejects are
// counted in malformed and skipped; any other read error stops iteration
// and is kept in err.
func (t *table) Rows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for {
			fields, err := t.reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				t.malformed++
				continue
			}
			if err != nil {
				t.err = err
				return
			}
			if !yield(Row{columns: t.columns, fields: fields}) {
				return
			}
		}
	}
}

// readInput returns the file contents as UTF-8 with any byte order mark
// removed. Content that is not valid UTF-8 is decoded as ISO-8859-1.
func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputMissing, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return decoded, nil
}
