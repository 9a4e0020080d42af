package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/kafka"
)

const finalFlushTimeout = 5 * time.Second

// BatchPublisher receives flushed batches. The Kafka producer implements it;
// so does Aggregator, for running without a broker.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers events and flushes them when the batch is full or the
// flush interval elapses. Track never blocks the request path.
type Collector struct {
	publisher     BatchPublisher
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger

	mu      sync.Mutex
	buffer  []kafka.Event
	flushCh chan struct{}
	done    chan struct{}
}

// NewCollector returns a Collector; call Start to begin flushing.
func NewCollector(publisher BatchPublisher, batchSize int, flushInterval time.Duration) *Collector {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &Collector{
		publisher:     publisher,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		buffer:        make([]kafka.Event, 0, batchSize),
		flushCh:       make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
}

// Start launches the flush loop. It flushes once more when ctx is cancelled.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.flush(ctx)
			case <-c.flushCh:
				c.flush(ctx)
			case <-ctx.Done():
				flushCtx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
				c.flush(flushCtx)
				cancel()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "batch_size", c.batchSize, "flush_interval", c.flushInterval)
}

// Track queues an event. Once the buffer holds three batches further
// events are dropped.
func (c *Collector) Track(event Event) {
	c.mu.Lock()
	if len(c.buffer) >= c.batchSize*3 {
		c.mu.Unlock()
		c.logger.Warn("analytics event dropped (buffer full)", "type", event.Type)
		return
	}
	c.buffer = append(c.buffer, kafka.Event{Key: event.partitionKey(), Value: event})
	full := len(c.buffer) >= c.batchSize
	c.mu.Unlock()

	if full {
		select {
		case c.flushCh <- struct{}{}:
		default:
		}
	}
}

// Close waits for the flush loop to exit after its context is cancelled.
func (c *Collector) Close() {
	<-c.done
}

// BufferLen returns the number of events waiting to be flushed.
func (c *Collector) BufferLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}

func (c *Collector) flush(ctx context.Context) {
	c.mu.Lock()
	if len(c.buffer) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.buffer
	c.buffer = make([]kafka.Event, 0, c.batchSize)
	c.mu.Unlock()

	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("batch flush failed", "batch_size", len(batch), "error", err)
		c.mu.Lock()
		c.buffer = append(batch, c.buffer...)
		if limit := c.batchSize * 3; len(c.buffer) > limit {
			c.logger.Warn("buffer overflow, events dropped", "dropped", len(c.buffer)-limit)
			c.buffer = c.buffer[:limit]
		}
		c.mu.Unlock()
		return
	}
	c.logger.Debug("batch flushed", "events", len(batch))
}
