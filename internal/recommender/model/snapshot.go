// Package model ties the vectorizer, similarity index and query engine into
// immutable snapshots, memoizes builds by corpus and configuration, and
// holds the live snapshot that queries read.
package model

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/recommender/query"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/recommender/similarity"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/recommender/vectorizer"
)

// Snapshot is one complete build. Nothing in it is mutated after Build
// returns, so any number of goroutines may query it concurrently.
type Snapshot struct {
	Key           string
	Corpus        []string
	Options       vectorizer.Options
	Vocabulary    *vectorizer.Vocabulary
	Vectors       *vectorizer.Matrix
	Similarity    *similarity.Matrix
	Index         similarity.Index
	BuiltAt       time.Time
	BuildDuration time.Duration
}

// Stats summarizes a snapshot for status endpoints.
type Stats struct {
	Key            string    `json:"key"`
	Items          int       `json:"items"`
	VocabularySize int       `json:"vocabulary_size"`
	NonZeros       int       `json:"non_zeros"`
	MinDF          int       `json:"min_df"`
	MaxFeatures    int       `json:"max_features"`
	NgramRange     [2]int    `json:"ngram_range"`
	BuiltAt        time.Time `json:"built_at"`
	BuildMs        int64     `json:"build_ms"`
}

// Recommend ranks the k titles most similar to title.
func (s *Snapshot) Recommend(title string, k int) ([]query.Recommendation, error) {
	return query.Recommend(title, s.Index, s.Similarity, s.Corpus, k)
}

// Contains reports whether title is part of the corpus.
func (s *Snapshot) Contains(title string) bool {
	_, ok := s.Index.Lookup(title)
	return ok
}

// Size returns the number of titles.
func (s *Snapshot) Size() int {
	return len(s.Corpus)
}

// Stats returns a summary of the snapshot.
func (s *Snapshot) Stats() Stats {
	return Stats{
		Key:            s.Key,
		Items:          len(s.Corpus),
		VocabularySize: s.Vocabulary.Len(),
		NonZeros:       s.Vectors.NonZeros(),
		MinDF:          s.Options.MinDF,
		MaxFeatures:    s.Options.MaxFeatures,
		NgramRange:     [2]int{s.Options.NgramMin, s.Options.NgramMax},
		BuiltAt:        s.BuiltAt,
		BuildMs:        s.BuildDuration.Milliseconds(),
	}
}

// Key identifies a build by corpus content and vectorizer options. Titles
// are length-prefixed so that concatenation boundaries cannot collide.
func Key(corpus []string, opts vectorizer.Options) string {
	h := sha256.New()
	var buf [8]byte
	writeInt := func(n int) {
		binary.BigEndian.PutUint64(buf[:], uint64(n))
		h.Write(buf[:])
	}
	writeInt(opts.MinDF)
	writeInt(opts.MaxFeatures)
	writeInt(opts.NgramMin)
	writeInt(opts.NgramMax)
	writeInt(len(corpus))
	for _, title := range corpus {
		writeInt(len(title))
		h.Write([]byte(title))
	}
	return hex.EncodeToString(h.Sum(nil))
}
