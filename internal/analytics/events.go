// Package analytics collects recommendation query events, ships them over
// Kafka and aggregates them into dashboard statistics.
package analytics

import "time"

type EventType string

const (
	EventRecommend EventType = "recommend"
	EventRebuild   EventType = "rebuild"
)

// Event is the envelope every analytics message shares. Type selects which
// of the payload fields are meaningful.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`

	// recommend
	Title     string  `json:"title,omitempty"`
	K         int     `json:"k,omitempty"`
	Found     bool    `json:"found,omitempty"`
	Returned  int     `json:"returned,omitempty"`
	TopScore  float64 `json:"top_score,omitempty"`
	LatencyMs int64   `json:"latency_ms,omitempty"`
	CacheHit  bool    `json:"cache_hit,omitempty"`

	// rebuild
	SnapshotKey string `json:"snapshot_key,omitempty"`
	Items       int    `json:"items,omitempty"`
	BuildMs     int64  `json:"build_ms,omitempty"`
	Unchanged   bool   `json:"unchanged,omitempty"`
}

// RecommendEvent describes one answered recommendation query.
func RecommendEvent(requestID, title string, k int, found bool, returned int, topScore float64, latency time.Duration, cacheHit bool) Event {
	return Event{
		Type:      EventRecommend,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
		Title:     title,
		K:         k,
		Found:     found,
		Returned:  returned,
		TopScore:  topScore,
		LatencyMs: latency.Milliseconds(),
		CacheHit:  cacheHit,
	}
}

// RebuildEvent describes a completed model rebuild.
func RebuildEvent(snapshotKey string, items int, build time.Duration, unchanged bool) Event {
	return Event{
		Type:        EventRebuild,
		Timestamp:   time.Now().UTC(),
		SnapshotKey: snapshotKey,
		Items:       items,
		BuildMs:     build.Milliseconds(),
		Unchanged:   unchanged,
	}
}

// partitionKey keeps events for one title on one partition.
func (e Event) partitionKey() string {
	if e.Type == EventRecommend {
		return e.Title
	}
	return string(e.Type)
}
