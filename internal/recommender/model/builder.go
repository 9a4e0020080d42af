package model

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/recommender/similarity"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/recommender/vectorizer"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/tracing"
	"golang.org/x/sync/singleflight"
)

// BuilderConfig configures a Builder. Metrics may be nil.
type BuilderConfig struct {
	Options   vectorizer.Options
	CacheSize int
	Tracing   bool
	Metrics   *metrics.Metrics
}

// Builder produces snapshots and memoizes the most recent CacheSize of them
// by Key. Concurrent builds of the same key share one computation.
type Builder struct {
	cfg    BuilderConfig
	group  singleflight.Group
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]*Snapshot
	order []string
}

// NewBuilder validates the vectorizer options and returns a Builder.
func NewBuilder(cfg BuilderConfig) (*Builder, error) {
	if err := cfg.Options.Validate(); err != nil {
		return nil, fmt.Errorf("creating model builder: %w", err)
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1
	}
	return &Builder{
		cfg:    cfg,
		logger: slog.Default().With("component", "model-builder"),
		cache:  make(map[string]*Snapshot, cfg.CacheSize),
	}, nil
}

// Options returns the vectorizer options every snapshot is built with.
func (b *Builder) Options() vectorizer.Options {
	return b.cfg.Options
}

// Build returns the snapshot for corpus, reusing a memoized one when the
// corpus and options are unchanged. The second result reports a cache hit.
func (b *Builder) Build(ctx context.Context, corpus []string) (*Snapshot, bool, error) {
	key := Key(corpus, b.cfg.Options)
	if snap, ok := b.lookup(key); ok {
		b.observe("memoized")
		b.logger.Debug("model build memoized", "key", key[:12], "items", len(corpus))
		return snap, true, nil
	}

	// The shared build outlives any one caller; a caller that gives up
	// only stops waiting.
	buildCtx := context.WithoutCancel(ctx)
	ch := b.group.DoChan(key, func() (any, error) {
		if snap, ok := b.lookup(key); ok {
			return snap, nil
		}
		snap, err := b.build(buildCtx, key, corpus)
		if err != nil {
			return nil, err
		}
		b.store(snap)
		return snap, nil
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			b.observe("failed")
			return nil, false, res.Err
		}
		b.observe("built")
		return res.Val.(*Snapshot), false, nil
	}
}

func (b *Builder) build(ctx context.Context, key string, corpus []string) (*Snapshot, error) {
	start := time.Now()
	ctx, root := tracing.Start(ctx, "model.build")
	root.SetAttr("items", len(corpus))

	titles := make([]string, len(corpus))
	copy(titles, corpus)

	_, vecSpan := tracing.StartChild(ctx, "vectorize")
	vocab, vectors, err := vectorizer.Build(titles, b.cfg.Options)
	vecSpan.End()
	if err != nil {
		return nil, fmt.Errorf("vectorizing corpus: %w", err)
	}
	vecSpan.SetAttr("terms", vocab.Len())
	vecSpan.SetAttr("non_zeros", vectors.NonZeros())
	if vocab.Len() == 0 {
		b.logger.Warn("vocabulary is empty, every similarity will be zero",
			"items", len(titles),
			"min_df", b.cfg.Options.MinDF,
		)
	}

	simCtx, simSpan := tracing.StartChild(ctx, "similarity")
	sim, idx, err := similarity.Build(simCtx, vectors, titles)
	simSpan.End()
	if err != nil {
		return nil, fmt.Errorf("building similarity index: %w", err)
	}

	root.End()
	if b.cfg.Tracing {
		root.Log(b.logger)
	}

	snap := &Snapshot{
		Key:           key,
		Corpus:        titles,
		Options:       b.cfg.Options,
		Vocabulary:    vocab,
		Vectors:       vectors,
		Similarity:    sim,
		Index:         idx,
		BuiltAt:       time.Now().UTC(),
		BuildDuration: time.Since(start),
	}
	if b.cfg.Metrics != nil {
		b.cfg.Metrics.ModelBuildDuration.Observe(snap.BuildDuration.Seconds())
	}
	b.logger.Info("model built",
		"key", key[:12],
		"items", len(titles),
		"terms", vocab.Len(),
		"build_ms", snap.BuildDuration.Milliseconds(),
	)
	return snap, nil
}

func (b *Builder) lookup(key string) (*Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap, ok := b.cache[key]
	if ok {
		b.touch(key)
	}
	return snap, ok
}

func (b *Builder) store(snap *Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.cache[snap.Key]; ok {
		b.touch(snap.Key)
		return
	}
	b.cache[snap.Key] = snap
	b.order = append(b.order, snap.Key)
	for len(b.order) > b.cfg.CacheSize {
		evicted := b.order[0]
		b.order = b.order[1:]
		delete(b.cache, evicted)
	}
}

// touch moves key to the most-recently-used end. Caller holds mu.
func (b *Builder) touch(key string) {
	for i, k := range b.order {
		if k == key {
			b.order = append(append(b.order[:i:i], b.order[i+1:]...), key)
			return
		}
	}
}

// Forget drops every memoized snapshot.
func (b *Builder) Forget() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache = make(map[string]*Snapshot, b.cfg.CacheSize)
	b.order = nil
}

func (b *Builder) observe(status string) {
	if b.cfg.Metrics != nil {
		b.cfg.Metrics.ModelBuildsTotal.WithLabelValues(status).Inc()
	}
}
