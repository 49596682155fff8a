package ingestion

import (
	"testing"

	"github.com/poiesic/oppmatch/core"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		boilerplate []string
		expected    string
	}{
		{
			name:        "lowercases and joins",
			title:       "Radar Sustainment",
			description: "Depot Level Repair",
			expected:    "radar sustainment depot level repair",
		},
		{
			name:        "strips html urls and emails",
			title:       "<b>Notice</b>",
			description: "See https://sam.gov/opp/123 or www.example.com, contact jane.doe@agency.gov today",
			expected:    "notice see or contact today",
		},
		{
			name:        "strips punctuation and collapses whitespace",
			title:       "  R&D -- Phase II!  ",
			description: "\tsmall\n\nbusiness; set-aside.",
			expected:    "rd phase ii small business setaside",
		},
		{
			name:        "removes boilerplate case-insensitively",
			title:       "Sources Sought: Satellite Ground Station",
			description: "THIS IS NOT A REQUEST FOR PROPOSAL",
			boilerplate: []string{"Sources Sought", "this is not a request for proposal"},
			expected:    "satellite ground station",
		},
		{
			name:        "longest phrase removed first",
			title:       "request for information about drones",
			boilerplate: []string{"request", "request for information"},
			expected:    "about drones",
		},
		{
			name:     "empty input",
			expected: "",
		},
		{
			name:        "vertical tab and next line separate words",
			title:       "Radar\vSystems",
			description: "Ground\u0085Station\u00a0Support",
			expected:    "radar systems ground station support",
		},
		{
			name:        "keeps letters and digits outside ascii",
			title:       "Équipement N°5",
			description: "für Übung",
			expected:    "équipement n5 für übung",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, length := Normalize(tt.title, tt.description, tt.boilerplate)
			assert.Equal(t, tt.expected, text)
			assert.Equal(t, len([]rune(tt.expected)), length)
		})
	}
}

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer([]string{"  ", "Synopsis"}, WithSeparator(" [SEP] "))

	got := n.Normalize(core.Document{ID: "N1", Title: "Synopsis", Description: "Cyber range"})
	assert.Equal(t, "N1", got.SourceID)
	assert.Equal(t, "sep cyber range", got.Text)
	assert.Equal(t, 15, got.Length)
}

func TestNormalizer_Deterministic(t *testing.T) {
	a := NewNormalizer([]string{"ab", "abc", "b"})
	b := NewNormalizer([]string{"b", "abc", "ab"})

	text := "xabcx abx bx"
	ta, _ := a.Clean(text, "")
	tb, _ := b.Clean(text, "")
	assert.Equal(t, ta, tb, "phrase order does not affect the result")
}
