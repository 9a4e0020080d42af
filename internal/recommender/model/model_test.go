package model

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/recommender/vectorizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var (
	corpusA = []string{"Love Song", "Love Story", "Hate Song", "Random Title"}
	corpusB = []string{"Love Song", "Love Story", "Hate Song", "Random Title", "Song of Love"}
	opts    = vectorizer.Options{MinDF: 1, NgramMin: 1, NgramMax: 2}
)

func newBuilder(t *testing.T, cacheSize int) (*Builder, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	b, err := NewBuilder(BuilderConfig{Options: opts, CacheSize: cacheSize, Metrics: m})
	if err != nil {
		t.Fatal(err)
	}
	return b, m
}

func TestKeyDependsOnCorpusAndOptions(t *testing.T) {
	base := Key(corpusA, opts)
	if base != Key(append([]string(nil), corpusA...), opts) {
		t.Error("equal inputs should give equal keys")
	}
	if base == Key(corpusB, opts) {
		t.Error("different corpus should change key")
	}
	other := opts
	other.MinDF = 2
	if base == Key(corpusA, other) {
		t.Error("different options should change key")
	}
	if Key([]string{"ab", "c"}, opts) == Key([]string{"a", "bc"}, opts) {
		t.Error("title boundaries must be part of the key")
	}
}

func TestBuilderMemoizes(t *testing.T) {
	b, m := newBuilder(t, 2)
	ctx := context.Background()

	first, memo, err := b.Build(ctx, corpusA)
	if err != nil || memo {
		t.Fatalf("first build: memo=%v err=%v", memo, err)
	}
	second, memo, err := b.Build(ctx, corpusA)
	if err != nil || !memo || second != first {
		t.Fatalf("second build should reuse the snapshot: memo=%v err=%v", memo, err)
	}
	if got := testutil.ToFloat64(m.ModelBuildsTotal.WithLabelValues("memoized")); got != 1 {
		t.Errorf("memoized builds = %v, want 1", got)
	}

	if _, _, err := b.Build(ctx, corpusB); err != nil {
		t.Fatal(err)
	}
	changed := opts
	changed.NgramMax = 1
	b2, _ := NewBuilder(BuilderConfig{Options: changed})
	if snap, memo, _ := b2.Build(ctx, corpusA); memo || snap == first {
		t.Error("a builder with different options must not share snapshots")
	}
}

func TestBuilderIgnoresCallerCancellation(t *testing.T) {
	b, m := newBuilder(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if snap, _, err := b.Build(ctx, corpusA); err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller err = %v", err)
	} else if err == nil && snap == nil {
		t.Fatal("nil snapshot without error")
	}
	snap, _, err := b.Build(context.Background(), corpusA)
	if err != nil || snap == nil || snap.Size() != len(corpusA) {
		t.Fatalf("Build() = %v, %v", snap, err)
	}
	if got := testutil.ToFloat64(m.ModelBuildsTotal.WithLabelValues("failed")); got != 0 {
		t.Errorf("failed builds = %v, want 0", got)
	}
}

func TestBuilderEvictsLeastRecentlyUsed(t *testing.T) {
	b, _ := newBuilder(t, 1)
	ctx := context.Background()
	b.Build(ctx, corpusA)
	b.Build(ctx, corpusB)
	if _, memo, _ := b.Build(ctx, corpusA); memo {
		t.Error("corpusA should have been evicted with cache size 1")
	}
	b.Forget()
	if _, memo, _ := b.Build(ctx, corpusA); memo {
		t.Error("Forget should clear memoized snapshots")
	}
}

func TestBuilderCopiesCorpus(t *testing.T) {
	b, _ := newBuilder(t, 1)
	titles := append([]string(nil), corpusA...)
	snap, _, err := b.Build(context.Background(), titles)
	if err != nil {
		t.Fatal(err)
	}
	titles[0] = "Mutated"
	if snap.Corpus[0] != "Love Song" {
		t.Error("snapshot corpus must not alias the caller's slice")
	}
}

func TestBuilderRejectsDuplicates(t *testing.T) {
	b, m := newBuilder(t, 1)
	_, _, err := b.Build(context.Background(), []string{"Yesterday", "Yesterday"})
	if !errors.Is(err, apperrors.ErrDuplicateTitle) {
		t.Fatalf("error = %v, want ErrDuplicateTitle", err)
	}
	if got := testutil.ToFloat64(m.ModelBuildsTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed builds = %v, want 1", got)
	}
}

func TestNewBuilderValidatesOptions(t *testing.T) {
	if _, err := NewBuilder(BuilderConfig{Options: vectorizer.Options{MinDF: 0, NgramMin: 1, NgramMax: 1}}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}

func TestStoreSwapsSnapshots(t *testing.T) {
	b, m := newBuilder(t, 2)
	s := NewStore(b, m)
	if _, err := s.Snapshot(); !errors.Is(err, apperrors.ErrModelNotReady) {
		t.Fatalf("empty store error = %v, want ErrModelNotReady", err)
	}

	ctx := context.Background()
	old, err := s.Rebuild(ctx, corpusA)
	if err != nil {
		t.Fatal(err)
	}
	held := s.Current()
	if _, err := s.Rebuild(ctx, corpusB); err != nil {
		t.Fatal(err)
	}
	if s.Current().Size() != len(corpusB) {
		t.Errorf("live size = %d, want %d", s.Current().Size(), len(corpusB))
	}
	if held != old || held.Size() != len(corpusA) {
		t.Error("snapshot held by a reader changed after rebuild")
	}
	if got := testutil.ToFloat64(m.ModelCorpusSize); got != float64(len(corpusB)) {
		t.Errorf("corpus gauge = %v", got)
	}

	if _, err := s.Rebuild(ctx, []string{"Dup", "Dup"}); err == nil {
		t.Fatal("expected duplicate error")
	}
	if s.Current().Size() != len(corpusB) {
		t.Error("failed rebuild must keep the previous snapshot")
	}
}

func TestSnapshotConcurrentQueries(t *testing.T) {
	b, _ := newBuilder(t, 1)
	s := NewStore(b, nil)
	if _, err := s.Rebuild(context.Background(), corpusB); err != nil {
		t.Fatal(err)
	}
	snap := s.Current()
	want, _ := snap.Recommend("Love Song", 3)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := snap.Recommend("Love Song", 3)
			if err != nil || len(got) != len(want) {
				t.Errorf("concurrent Recommend = %v, %v", got, err)
				return
			}
			for j := range got {
				if got[j] != want[j] {
					t.Errorf("result %d differs: %v vs %v", j, got[j], want[j])
				}
			}
		}()
	}
	wg.Wait()

	stats := snap.Stats()
	if stats.Items != len(corpusB) || stats.VocabularySize == 0 || stats.NgramRange != [2]int{1, 2} {
		t.Errorf("unexpected stats %+v", stats)
	}
	if !snap.Contains("Song of Love") || snap.Contains("Unknown") {
		t.Error("Contains() mismatch")
	}
}
