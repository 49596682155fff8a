package source

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// BoilerplateHeader is the header written by the phrase mining step. A first
// row equal to it, ignoring case, is skipped.
const BoilerplateHeader = "Boilerplate Phrase"

// LoadBoilerplate reads boilerplate phrases from the first column of the CSV
// at path. Phrases are trimmed and lowercased; blanks and duplicates are
// dropped.
func LoadBoilerplate(path string) ([]string, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	seen := make(map[string]struct{})
	var phrases []string
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if len(record) == 0 {
			continue
		}

		phrase := strings.ToLower(strings.TrimSpace(record[0]))
		if first {
			first = false
			if phrase == strings.ToLower(BoilerplateHeader) {
				continue
			}
		}
		if phrase == "" {
			continue
		}
		if _, dup := seen[phrase]; dup {
			continue
		}
		seen[phrase] = struct{}{}
		phrases = append(phrases, phrase)
	}
	return phrases, nil
}
