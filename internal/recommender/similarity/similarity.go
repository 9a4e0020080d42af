// Package similarity computes the all-pairs linear-kernel similarity of a
// TF-IDF matrix and the title-to-row lookup used by queries. Rows are
// L2-normalized upstream, so the kernel equals cosine similarity.
package similarity

import (
	"context"
	"fmt"
	"runtime"

	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/recommender/vectorizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Index maps each corpus title to its row.
type Index map[string]int

// Lookup returns the row of title and whether it is known.
func (idx Index) Lookup(title string) (int, bool) {
	row, ok := idx[title]
	return row, ok
}

// Matrix is a dense, symmetric N×N similarity matrix stored row-major.
type Matrix struct {
	n    int
	data []float64
}

// Size returns N.
func (m *Matrix) Size() int {
	return m.n
}

// At returns the similarity between items i and j.
func (m *Matrix) At(i, j int) float64 {
	return m.data[i*m.n+j]
}

// Row returns item i's similarities to every item. The slice aliases the
// matrix and must not be modified.
func (m *Matrix) Row(i int) []float64 {
	return m.data[i*m.n : (i+1)*m.n]
}

// BuildIndex assigns every title its corpus position. A repeated title is
// an upstream contract violation and is reported with ErrDuplicateTitle.
func BuildIndex(corpus []string) (Index, error) {
	idx := make(Index, len(corpus))
	for i, title := range corpus {
		if prev, dup := idx[title]; dup {
			return nil, fmt.Errorf("%w: %q at rows %d and %d", apperrors.ErrDuplicateTitle, title, prev, i)
		}
		idx[title] = i
	}
	return idx, nil
}

// Build computes the full similarity matrix of vectors and the identifier
// index of corpus. Rows are computed in parallel; the upper triangle is
// computed once and mirrored, so the result is exactly symmetric. ctx only
// stops an abandoned build early.
func Build(ctx context.Context, vectors *vectorizer.Matrix, corpus []string) (*Matrix, Index, error) {
	if vectors.NumRows() != len(corpus) {
		return nil, nil, fmt.Errorf("%w: %d vectors for %d titles",
			apperrors.ErrInvalidInput, vectors.NumRows(), len(corpus))
	}
	idx, err := BuildIndex(corpus)
	if err != nil {
		return nil, nil, err
	}

	n := len(corpus)
	m := &Matrix{n: n, data: make([]float64, n*n)}
	if vectors.Cols == 0 {
		return m, idx, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ri := vectors.Row(i)
			if len(ri) == 0 {
				return nil
			}
			for j := i; j < n; j++ {
				s := ri.Dot(vectors.Row(j))
				m.data[i*n+j] = s
				m.data[j*n+i] = s
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("computing similarity matrix: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("computing similarity matrix: %w", err)
	}
	return m, idx, nil
}
