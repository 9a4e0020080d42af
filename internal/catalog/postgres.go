package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/resilience"
)

const selectTitles = `SELECT COALESCE(title, '') FROM songs ORDER BY id`

// Querier is the subset of *sql.DB the Postgres source needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// PostgresSource reads titles from the songs table in id order. Transient
// failures are retried with backoff.
type PostgresSource struct {
	db    Querier
	retry resilience.RetryConfig
}

// NewPostgresSource returns a source over db using the default retry policy.
func NewPostgresSource(db Querier) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) Name() string {
	return "postgres:songs"
}

func (s *PostgresSource) Titles(ctx context.Context) ([]string, error) {
	var titles []string
	err := resilience.Retry(ctx, "catalog-load", s.retry, func() error {
		var err error
		titles, err = s.query(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return titles, nil
}

func (s *PostgresSource) query(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, selectTitles)
	if err != nil {
		return nil, fmt.Errorf("querying song titles: %w", err)
	}
	defer rows.Close()

	titles := make([]string, 0, 1024)
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scanning song title: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating song titles: %w", err)
	}
	return titles, nil
}
