// Package vectorizer builds the TF-IDF representation of a title corpus:
// a vocabulary of word n-grams filtered by document frequency, and one
// L2-normalized sparse weight vector per title.
package vectorizer

import (
	"fmt"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/recommender/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/errors"
)

// Options controls vocabulary selection. MaxFeatures of zero means unbounded.
type Options struct {
	MinDF       int
	MaxFeatures int
	NgramMin    int
	NgramMax    int
}

// DefaultOptions returns min_df=3, max_features=5000 and n-grams 1..3.
func DefaultOptions() Options {
	return Options{MinDF: 3, MaxFeatures: 5000, NgramMin: 1, NgramMax: 3}
}

// Validate reports option combinations that cannot describe a vocabulary.
func (o Options) Validate() error {
	switch {
	case o.MinDF < 1:
		return fmt.Errorf("%w: min_df must be >= 1, got %d", apperrors.ErrInvalidInput, o.MinDF)
	case o.MaxFeatures < 0:
		return fmt.Errorf("%w: max_features must be >= 0, got %d", apperrors.ErrInvalidInput, o.MaxFeatures)
	case o.NgramMin < 1 || o.NgramMax < o.NgramMin:
		return fmt.Errorf("%w: invalid ngram range (%d,%d)", apperrors.ErrInvalidInput, o.NgramMin, o.NgramMax)
	}
	return nil
}

// Vocabulary maps accepted terms to column indices. Columns follow the
// lexicographic order of the terms.
type Vocabulary struct {
	terms   []string
	columns map[string]int
	docFreq []int
	idf     []float64
}

// Len returns the number of terms.
func (v *Vocabulary) Len() int {
	return len(v.terms)
}

// Term returns the term stored at column col.
func (v *Vocabulary) Term(col int) string {
	return v.terms[col]
}

// Terms returns a copy of all terms in column order.
func (v *Vocabulary) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// Column looks up the column index of term.
func (v *Vocabulary) Column(term string) (int, bool) {
	col, ok := v.columns[term]
	return col, ok
}

// DocFreq returns the number of titles containing the term at col.
func (v *Vocabulary) DocFreq(col int) int {
	return v.docFreq[col]
}

// IDF returns the smoothed inverse document frequency of the term at col.
func (v *Vocabulary) IDF(col int) float64 {
	return v.idf[col]
}

// Build derives the vocabulary and TF-IDF matrix of corpus. An empty corpus
// or one where no term reaches MinDF yields an empty vocabulary and
// zero-width rows; that is a valid result. Only invalid options are an error.
func Build(corpus []string, opts Options) (*Vocabulary, *Matrix, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}
	analyzer := tokenizer.NewAnalyzer(opts.NgramMin, opts.NgramMax)

	counts := make([]map[string]int, len(corpus))
	df := make(map[string]int)
	for i, title := range corpus {
		tf := make(map[string]int)
		for _, term := range analyzer.Terms(title) {
			tf[term]++
		}
		for term := range tf {
			df[term]++
		}
		counts[i] = tf
	}

	vocab := selectVocabulary(df, opts, len(corpus))

	rows := make([]Vector, len(corpus))
	for i, tf := range counts {
		row := make(Vector, 0, len(tf))
		for term, n := range tf {
			col, ok := vocab.columns[term]
			if !ok {
				continue
			}
			row = append(row, Entry{Col: col, Weight: float64(n) * vocab.idf[col]})
		}
		sort.Slice(row, func(a, b int) bool { return row[a].Col < row[b].Col })
		row.normalize()
		rows[i] = row
	}

	return vocab, &Matrix{Rows: rows, Cols: vocab.Len()}, nil
}

func selectVocabulary(df map[string]int, opts Options, numDocs int) *Vocabulary {
	candidates := make([]string, 0, len(df))
	for term, n := range df {
		if n >= opts.MinDF {
			candidates = append(candidates, term)
		}
	}
	if opts.MaxFeatures > 0 && len(candidates) > opts.MaxFeatures {
		sort.Slice(candidates, func(i, j int) bool {
			a, b := candidates[i], candidates[j]
			if df[a] != df[b] {
				return df[a] > df[b]
			}
			return a < b
		})
		candidates = candidates[:opts.MaxFeatures]
	}
	sort.Strings(candidates)

	v := &Vocabulary{
		terms:   candidates,
		columns: make(map[string]int, len(candidates)),
		docFreq: make([]int, len(candidates)),
		idf:     make([]float64, len(candidates)),
	}
	for col, term := range candidates {
		v.columns[term] = col
		v.docFreq[col] = df[term]
		v.idf[col] = smoothIDF(numDocs, df[term])
	}
	return v
}

// smoothIDF is ln((1+n)/(1+df)) + 1, always positive for df <= n.
func smoothIDF(numDocs, docFreq int) float64 {
	return math.Log(float64(1+numDocs)/float64(1+docFreq)) + 1
}
