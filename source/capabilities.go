package source

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/poiesic/oppmatch/core"
)

// LoadCapabilities reads one capability per line from path. Lines are
// trimmed and blank lines are skipped.
func LoadCapabilities(path string) ([]core.Capability, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}

	var capabilities []core.Capability
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			capabilities = append(capabilities, core.Capability{Text: line})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return capabilities, nil
}
