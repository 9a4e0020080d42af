// Package refresh reloads the catalog and rebuilds the live model, either on
// demand or when a catalog-updated message arrives.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/recommender/model"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

// CatalogUpdated is the payload published on the catalog-updated topic.
type CatalogUpdated struct {
	Source    string    `json:"source"`
	Reason    string    `json:"reason,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Result describes one completed reload.
type Result struct {
	Snapshot *model.Snapshot    `json:"-"`
	Model    model.Stats        `json:"model"`
	Catalog  catalog.CleanStats `json:"catalog"`
	Source   string             `json:"source"`
	Changed  bool               `json:"changed"`
	TookMs   int64              `json:"took_ms"`
}

// Hook runs after every successful reload.
type Hook func(ctx context.Context, res *Result)

// Refresher loads titles from a Source, cleans them and rebuilds the Store.
// Concurrent Reload calls share a single run.
type Refresher struct {
	source catalog.Source
	store  *model.Store
	cfg    config.CatalogConfig
	group  singleflight.Group
	logger *slog.Logger

	mu    sync.Mutex
	hooks []Hook
}

func New(source catalog.Source, store *model.Store, cfg config.CatalogConfig) *Refresher {
	return &Refresher{
		source: source,
		store:  store,
		cfg:    cfg,
		logger: slog.Default().With("component", "refresher", "source", source.Name()),
	}
}

// OnReload registers a hook.
func (r *Refresher) OnReload(h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, h)
}

// Reload rebuilds the model from the current catalog. The whole load is
// bounded by the configured load timeout; on failure the previous model
// stays live. Cancelling ctx stops the wait, not the shared reload.
func (r *Refresher) Reload(ctx context.Context) (*Result, error) {
	reloadCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan("reload", func() (any, error) {
		return r.reload(reloadCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			r.logger.Debug("joined in-flight reload")
		}
		return res.Val.(*Result), nil
	}
}

func (r *Refresher) reload(ctx context.Context) (*Result, error) {
	start := time.Now()
	prev := r.store.Current()

	var raw []string
	err := resilience.WithTimeout(ctx, r.cfg.LoadTimeout, "catalog load", func(ctx context.Context) error {
		var err error
		raw, err = r.source.Titles(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading catalog from %s: %w", r.source.Name(), err)
	}
	corpus, cleanStats := catalog.Clean(raw, r.cfg.MaxItems, r.cfg.SampleSeed)
	r.logger.Info("catalog loaded",
		"raw", cleanStats.Raw,
		"empty", cleanStats.Empty,
		"duplicates", cleanStats.Duplicates,
		"sampled_out", cleanStats.Sampled,
		"kept", cleanStats.Kept,
	)

	snap, err := r.store.Rebuild(ctx, corpus)
	if err != nil {
		return nil, fmt.Errorf("rebuilding model: %w", err)
	}
	res := &Result{
		Snapshot: snap,
		Model:    snap.Stats(),
		Catalog:  cleanStats,
		Source:   r.source.Name(),
		Changed:  prev == nil || prev.Key != snap.Key,
		TookMs:   time.Since(start).Milliseconds(),
	}

	r.mu.Lock()
	hooks := append([]Hook(nil), r.hooks...)
	r.mu.Unlock()
	for _, h := range hooks {
		h(ctx, res)
	}
	return res, nil
}

// Handler returns the Kafka handler for the catalog-updated topic. A failed
// reload is returned so the message is redelivered.
func (r *Refresher) Handler() kafka.MessageHandler {
	return kafka.JSONHandler(r.logger, func(ctx context.Context, _ string, ev CatalogUpdated) error {
		r.logger.Info("catalog update received", "from", ev.Source, "reason", ev.Reason)
		_, err := r.Reload(ctx)
		return err
	})
}
