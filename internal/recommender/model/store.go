package model

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	apperrors "github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/metrics"
)

// Store holds the live snapshot. Readers load it without locking; Rebuild
// builds a new snapshot off to the side and swaps it in atomically, so
// queries already holding the old snapshot finish against it unchanged.
type Store struct {
	builder *Builder
	metrics *metrics.Metrics
	current atomic.Pointer[Snapshot]
	buildMu sync.Mutex
	logger  *slog.Logger
}

// NewStore returns an empty Store. m may be nil.
func NewStore(builder *Builder, m *metrics.Metrics) *Store {
	return &Store{
		builder: builder,
		metrics: m,
		logger:  slog.Default().With("component", "model-store"),
	}
}

// Current returns the live snapshot, or nil before the first build.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Snapshot returns the live snapshot or ErrModelNotReady.
func (s *Store) Snapshot() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, apperrors.ErrModelNotReady
	}
	return snap, nil
}

// Rebuild builds a snapshot for corpus and makes it live. Rebuilds are
// serialized so an older corpus can never overwrite a newer one. On error
// the previous snapshot stays live.
func (s *Store) Rebuild(ctx context.Context, corpus []string) (*Snapshot, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	snap, memoized, err := s.builder.Build(ctx, corpus)
	if err != nil {
		s.logger.Error("model rebuild failed, keeping previous snapshot", "error", err)
		return nil, err
	}
	prev := s.current.Swap(snap)
	if s.metrics != nil {
		s.metrics.ModelCorpusSize.Set(float64(snap.Size()))
		s.metrics.ModelVocabularySize.Set(float64(snap.Vocabulary.Len()))
	}
	if prev == nil || prev.Key != snap.Key {
		s.logger.Info("snapshot swapped",
			"key", snap.Key[:12],
			"items", snap.Size(),
			"memoized", memoized,
		)
	}
	return snap, nil
}
