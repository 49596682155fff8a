package ingestion

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/oppmatch/core"
)

// Cleaning patterns, applied in this order after boilerplate removal.
var (
	htmlTagPattern     = regexp.MustCompile(`<[^>]+>`)
	urlPattern         = regexp.MustCompile(`http\S+|www\S+`)
	emailPattern       = regexp.MustCompile(`\S+@\S+`)
	// \s is ASCII-only in RE2; \v and NEL are whitespace for strings.Fields.
	punctuationPattern = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s\v\x{85}\p{Z}]`)
)

// TextNormalizer turns a document into the text sent to the embedder.
// Implementations must be pure and safe for concurrent use.
type TextNormalizer interface {
	Normalize(doc core.Document) core.NormalizedText
}

// Normalizer removes boilerplate phrases and noise from document text.
type Normalizer struct {
	phrases   []string
	separator string
}

var _ TextNormalizer = (*Normalizer)(nil)

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithSeparator sets the string placed between title and description.
// Default is a single space.
func WithSeparator(sep string) NormalizerOption {
	return func(n *Normalizer) {
		n.separator = sep
	}
}

// NewNormalizer builds a normalizer for the given boilerplate phrases.
// Phrases are lowercased and trimmed; blanks and duplicates are dropped.
// Longer phrases are removed first so a phrase that contains another is
// removed whole.
func NewNormalizer(boilerplate []string, opts ...NormalizerOption) *Normalizer {
	seen := make(map[string]struct{}, len(boilerplate))
	phrases := make([]string, 0, len(boilerplate))
	for _, p := range boilerplate {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		phrases = append(phrases, p)
	}
	slices.SortFunc(phrases, func(a, b string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})

	n := &Normalizer{
		phrases:   phrases,
		separator: " ",
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize cleans doc's title and description.
func (n *Normalizer) Normalize(doc core.Document) core.NormalizedText {
	text, length := n.Clean(doc.Title, doc.Description)
	return core.NormalizedText{
		SourceID: doc.ID,
		Text:     text,
		Length:   length,
	}
}

// Clean returns the cleaned text and its length in characters.
func (n *Normalizer) Clean(title, description string) (string, int) {
	text := strings.ToLower(title + n.separator + description)
	for _, phrase := range n.phrases {
		text = strings.ReplaceAll(text, phrase, "")
	}
	text = htmlTagPattern.ReplaceAllString(text, "")
	text = urlPattern.ReplaceAllString(text, "")
	text = emailPattern.ReplaceAllString(text, "")
	text = punctuationPattern.ReplaceAllString(text, "")
	text = strings.Join(strings.Fields(text), " ")
	return text, utf8.RuneCountInString(text)
}

// Normalize is the one-shot form of Normalizer.Clean.
func Normalize(title, description string, boilerplate []string) (string, int) {
	return NewNormalizer(boilerplate).Clean(title, description)
}
