// Package textnorm turns raw issue text into comparable token sequences.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// DefaultMinTokenLength drops single-character noise such as stray "a" or "t"
// left behind after punctuation is collapsed.
const DefaultMinTokenLength = 2

var (
	urlPattern        = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>()\[\]]+`)
	fencedCodePattern = regexp.MustCompile("(?s)```.*?```|~~~.*?~~~")
	inlineCodePattern = regexp.MustCompile("`[^`\n]*`")
	markupTagPattern  = regexp.MustCompile(`</?[a-zA-Z][^>]*>|<!--.*?-->`)
)

// Options controls the optional normalization steps
type Options struct {
	// RemoveStopWords drops common English function words
	RemoveStopWords bool
	// Stem reduces tokens to their Snowball (Porter2) English stem
	Stem bool
	// MinTokenLength drops tokens shorter than this many runes
	MinTokenLength int
}

// DefaultOptions returns stop-word removal on, stemming off, min length 2
func DefaultOptions() Options {
	return Options{
		RemoveStopWords: true,
		Stem:            false,
		MinTokenLength:  DefaultMinTokenLength,
	}
}

// Normalizer is a pure text → tokens transformer. It holds no state beyond
// its options and is safe for concurrent use.
type Normalizer struct {
	opts Options
}

// New creates a normalizer. A non-positive MinTokenLength means 1.
func New(opts Options) *Normalizer {
	if opts.MinTokenLength < 1 {
		opts.MinTokenLength = 1
	}
	return &Normalizer{opts: opts}
}

// Options returns the effective options
func (n *Normalizer) Options() Options {
	return n.opts
}

// Clean strips URLs, code, and markup, collapses punctuation to whitespace,
// and lower-cases the result. Whitespace runs are collapsed to one space.
func (n *Normalizer) Clean(text string) string {
	if text == "" {
		return ""
	}
	text = urlPattern.ReplaceAllString(text, " ")
	text = fencedCodePattern.ReplaceAllString(text, " ")
	text = inlineCodePattern.ReplaceAllString(text, " ")
	text = markupTagPattern.ReplaceAllString(text, " ")

	text = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)

	return strings.Join(strings.Fields(text), " ")
}

// Tokens returns the ordered token sequence for text
func (n *Normalizer) Tokens(text string) []string {
	words := strings.Fields(n.Clean(text))
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if n.opts.RemoveStopWords && IsStopWord(w) {
			continue
		}
		if len([]rune(w)) < n.opts.MinTokenLength {
			continue
		}
		if n.opts.Stem {
			w = english.Stem(w, false)
		}
		tokens = append(tokens, w)
	}
	return tokens
}
