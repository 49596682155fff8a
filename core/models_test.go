package core

import (
	"testing"
)

func TestCapabilityKey(t *testing.T) {
	if got := CapabilityKey("N0001"); got != "CAP:N0001" {
		t.Errorf("CapabilityKey() = %q, want %q", got, "CAP:N0001")
	}
}

func TestMatchResult_DocumentIDs(t *testing.T) {
	m := MatchResult{
		Query: "radar maintenance",
		Ranked: []ScoredDocument{
			{DocumentID: "B", Score: 0.9, Rank: 1},
			{DocumentID: "A", Score: 0.8, Rank: 2},
		},
	}

	ids := m.DocumentIDs()
	if len(ids) != 2 || ids[0] != "B" || ids[1] != "A" {
		t.Errorf("DocumentIDs() = %v, want [B A]", ids)
	}
}

func TestFingerprint(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []string
		wantSame bool
	}{
		{
			name:     "same parts produce same fingerprint",
			a:        []string{"nomic-embed-text", "768"},
			b:        []string{"nomic-embed-text", "768"},
			wantSame: true,
		},
		{
			name:     "different model",
			a:        []string{"nomic-embed-text", "768"},
			b:        []string{"text-embedding-3-small", "768"},
			wantSame: false,
		},
		{
			name:     "separator matters",
			a:        []string{"ab", "c"},
			b:        []string{"a", "bc"},
			wantSame: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa, fb := Fingerprint(tt.a...), Fingerprint(tt.b...)
			if len(fa) != 16 {
				t.Errorf("Fingerprint() length = %d, want 16", len(fa))
			}
			if (fa == fb) != tt.wantSame {
				t.Errorf("Fingerprint(%v)=%s, Fingerprint(%v)=%s, wantSame=%v", tt.a, fa, tt.b, fb, tt.wantSame)
			}
		})
	}
}
