// Package tokenizer turns song titles into the terms the vectorizer counts.
// It strips accents, lower-cases input, splits on word-character runs,
// removes English stop-words and emits contiguous word n-grams.
package tokenizer

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// wordPattern is the Unicode-aware equivalent of "one or more word characters".
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Analyzer extracts n-gram terms of length NgramMin..NgramMax from a title.
// An Analyzer holds no mutable state and is safe for concurrent use.
type Analyzer struct {
	NgramMin int
	NgramMax int
}

// NewAnalyzer returns an Analyzer for the inclusive n-gram range [lo, hi].
func NewAnalyzer(lo, hi int) Analyzer {
	return Analyzer{NgramMin: lo, NgramMax: hi}
}

// Terms returns every term of text in emission order, repeats included, so
// callers can count raw term frequency.
func (a Analyzer) Terms(text string) []string {
	return NGrams(Tokenize(text), a.NgramMin, a.NgramMax)
}

// Normalize strips accents and lower-cases text.
func Normalize(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(t, text)
	if err != nil {
		stripped = text
	}
	return strings.ToLower(stripped)
}

// Tokenize returns the normalized word tokens of text with stop-words removed.
func Tokenize(text string) []string {
	words := wordPattern.FindAllString(Normalize(text), -1)
	tokens := words[:0]
	for _, w := range words {
		if IsStopWord(w) {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// NGrams joins every contiguous run of lo..hi tokens with a single space.
// Unigrams come first, then bigrams, and so on. Ranges outside the token
// count are clipped; an invalid range yields nil.
func NGrams(tokens []string, lo, hi int) []string {
	if lo < 1 || hi < lo || len(tokens) == 0 {
		return nil
	}
	if hi > len(tokens) {
		hi = len(tokens)
	}
	if lo == 1 && hi == 1 {
		out := make([]string, len(tokens))
		copy(out, tokens)
		return out
	}
	out := make([]string, 0, len(tokens)*(hi-lo+1))
	for n := lo; n <= hi; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}
