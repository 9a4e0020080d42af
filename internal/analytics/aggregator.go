package analytics

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/kafka"
)

const (
	latencyWindow = 10000
	topListSize   = 10

	// maxUnknownTitles bounds the distinct free-text titles tracked for
	// unknown-title queries. When full, the map is trimmed to its heaviest
	// half.
	maxUnknownTitles = 1000
)

// Stats is the aggregated view served to dashboards.
type Stats struct {
	TotalQueries     int64        `json:"total_queries"`
	UnknownCount     int64        `json:"unknown_title_count"`
	CacheHits        int64        `json:"cache_hits"`
	CacheMisses      int64        `json:"cache_misses"`
	AvgLatencyMs     float64      `json:"avg_latency_ms"`
	P50LatencyMs     int64        `json:"p50_latency_ms"`
	P95LatencyMs     int64        `json:"p95_latency_ms"`
	P99LatencyMs     int64        `json:"p99_latency_ms"`
	AvgTopScore      float64      `json:"avg_top_score"`
	TopTitles        []TitleCount `json:"top_titles"`
	UnknownTitles    []TitleCount `json:"unknown_titles"`
	QueriesPerMinute float64      `json:"queries_per_minute"`
	Rebuilds         int64        `json:"rebuilds"`
	LastSnapshotKey  string       `json:"last_snapshot_key,omitempty"`
	LastRebuildAt    *time.Time   `json:"last_rebuild_at,omitempty"`
}

type TitleCount struct {
	Title string `json:"title"`
	Count int64  `json:"count"`
}

// Aggregator folds events into running statistics. Latency percentiles are
// computed over the most recent latencyWindow queries.
type Aggregator struct {
	mu            sync.RWMutex
	totalQueries  int64
	unknown       int64
	cacheHits     int64
	cacheMisses   int64
	topScoreSum   float64
	foundQueries  int64
	latencies     []int64
	latencyNext   int
	titleCounts   map[string]int64
	unknownCounts map[string]int64
	rebuilds      int64
	lastSnapshot  string
	lastRebuildAt time.Time
	startTime     time.Time
	logger        *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:     make([]int64, 0, latencyWindow),
		titleCounts:   make(map[string]int64),
		unknownCounts: make(map[string]int64),
		startTime:     time.Now(),
		logger:        slog.Default().With("component", "analytics-aggregator"),
	}
}

// Handler returns the Kafka handler for the analytics topic.
func (a *Aggregator) Handler() kafka.MessageHandler {
	return kafka.JSONHandler(a.logger, func(_ context.Context, _ string, event Event) error {
		a.Record(event)
		return nil
	})
}

// PublishBatch records events in process, standing in for Kafka when no
// broker is configured.
func (a *Aggregator) PublishBatch(_ context.Context, events []kafka.Event) error {
	for _, ev := range events {
		if event, ok := ev.Value.(Event); ok {
			a.Record(event)
		}
	}
	return nil
}

// Record folds a single event into the statistics.
func (a *Aggregator) Record(event Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch event.Type {
	case EventRecommend:
		a.recordQuery(event)
	case EventRebuild:
		a.rebuilds++
		a.lastSnapshot = event.SnapshotKey
		a.lastRebuildAt = event.Timestamp
	default:
		a.logger.Debug("ignoring analytics event", "type", event.Type)
	}
}

func (a *Aggregator) recordQuery(event Event) {
	a.totalQueries++
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	if event.Found {
		a.titleCounts[event.Title]++
		a.topScoreSum += event.TopScore
		a.foundQueries++
	} else {
		a.unknown++
		if _, ok := a.unknownCounts[event.Title]; !ok && len(a.unknownCounts) >= maxUnknownTitles {
			a.unknownCounts = trimCounts(a.unknownCounts, maxUnknownTitles/2)
		}
		a.unknownCounts[event.Title]++
	}
	if len(a.latencies) < latencyWindow {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.latencyNext] = event.LatencyMs
		a.latencyNext = (a.latencyNext + 1) % latencyWindow
	}
}

// Stats returns a consistent copy of the current statistics.
func (a *Aggregator) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := Stats{
		TotalQueries:    a.totalQueries,
		UnknownCount:    a.unknown,
		CacheHits:       a.cacheHits,
		CacheMisses:     a.cacheMisses,
		Rebuilds:        a.rebuilds,
		LastSnapshotKey: a.lastSnapshot,
		TopTitles:       topN(a.titleCounts, topListSize),
		UnknownTitles:   topN(a.unknownCounts, topListSize),
	}
	if !a.lastRebuildAt.IsZero() {
		at := a.lastRebuildAt
		stats.LastRebuildAt = &at
	}
	if a.foundQueries > 0 {
		stats.AvgTopScore = a.topScoreSum / float64(a.foundQueries)
	}
	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)
		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalQueries) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// trimCounts keeps the keep most frequent entries of counts.
func trimCounts(counts map[string]int64, keep int) map[string]int64 {
	kept := make(map[string]int64, keep)
	for _, tc := range topN(counts, keep) {
		kept[tc.Title] = tc.Count
	}
	return kept
}

// topN orders by count descending, then title ascending.
func topN(counts map[string]int64, n int) []TitleCount {
	result := make([]TitleCount, 0, len(counts))
	for title, count := range counts {
		result = append(result, TitleCount{Title: title, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Title < result[j].Title
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
