// Package query answers "top-K titles most similar to X" against a built
// similarity matrix with deterministic ordering.
package query

import (
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/recommender/similarity"
	apperrors "github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/errors"
)

// Recommendation is one ranked neighbour of the query title.
type Recommendation struct {
	Title string  `json:"title"`
	Score float64 `json:"score"`
	Row   int     `json:"-"`
}

// Recommend returns up to k titles most similar to title, best first.
// Equal scores are ordered by ascending corpus row. The query title itself
// is never returned. An unknown title yields an empty result and no error;
// a negative k is a caller error.
func Recommend(title string, idx similarity.Index, sim *similarity.Matrix, corpus []string, k int) ([]Recommendation, error) {
	if k < 0 {
		return nil, fmt.Errorf("%w: got %d", apperrors.ErrNegativeK, k)
	}
	row, ok := idx.Lookup(title)
	if !ok || k == 0 {
		return []Recommendation{}, nil
	}

	scores := sim.Row(row)
	ranked := make([]Recommendation, 0, len(scores)-1)
	for j, s := range scores {
		if j == row {
			continue
		}
		ranked = append(ranked, Recommendation{Title: corpus[j], Score: s, Row: j})
	}
	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].Score != ranked[b].Score {
			return ranked[a].Score > ranked[b].Score
		}
		return ranked[a].Row < ranked[b].Row
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked, nil
}
