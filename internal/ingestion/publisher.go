package ingestion

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/refresh"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/kafka"
	"github.com/lib/pq"
)

// insertNewTitles skips titles already in the table, so replays are
// harmless.
const insertNewTitles = `
INSERT INTO songs (title)
SELECT DISTINCT t FROM unnest($1::text[]) AS t
WHERE NOT EXISTS (SELECT 1 FROM songs s WHERE s.title = t)`

// Execer is the subset of *sql.DB the publisher needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Notifier announces that the catalog changed.
type Notifier interface {
	Notify(ctx context.Context, ev refresh.CatalogUpdated) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev refresh.CatalogUpdated) error

func (f NotifierFunc) Notify(ctx context.Context, ev refresh.CatalogUpdated) error {
	return f(ctx, ev)
}

// KafkaNotifier publishes the event on the catalog-updated topic.
func KafkaNotifier(p kafka.Publisher) Notifier {
	return NotifierFunc(func(ctx context.Context, ev refresh.CatalogUpdated) error {
		return p.Publish(ctx, kafka.Event{Key: "catalog", Value: ev})
	})
}

// Publisher stores titles and notifies listeners.
type Publisher struct {
	db       Execer
	notifier Notifier
	logger   *slog.Logger
}

func NewPublisher(db Execer, notifier Notifier) *Publisher {
	return &Publisher{
		db:       db,
		notifier: notifier,
		logger:   slog.Default().With("component", "ingestion-publisher"),
	}
}

// AddTitles inserts the titles that are new and, if any were, sends a
// catalog-updated notification.
func (p *Publisher) AddTitles(ctx context.Context, req *AddTitlesRequest) (*AddTitlesResponse, error) {
	res, err := p.db.ExecContext(ctx, insertNewTitles, pq.Array(req.Titles))
	if err != nil {
		return nil, fmt.Errorf("inserting titles: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("counting inserted titles: %w", err)
	}
	resp := &AddTitlesResponse{Received: len(req.Titles), Inserted: inserted, Status: "unchanged"}
	if inserted == 0 {
		return resp, nil
	}

	ev := refresh.CatalogUpdated{Source: "api", Reason: req.Reason, UpdatedAt: time.Now().UTC()}
	if err := p.notifier.Notify(ctx, ev); err != nil {
		p.logger.Error("catalog update notification failed", "inserted", inserted, "error", err)
		resp.Status = "stored"
		return resp, nil
	}
	resp.Status = "accepted"
	p.logger.Info("titles added", "received", len(req.Titles), "inserted", inserted)
	return resp, nil
}
