// Command loadtest drives concurrent recommendation queries against a
// running recommender and reports throughput, latency percentiles, cache
// hit rate and status codes.
//
//	go run ./cmd/loadtest -url http://localhost:8080 -concurrency 20 -duration 30s
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type config struct {
	baseURL     string
	concurrency int
	duration    time.Duration
	k           int
	titles      []string
}

type stats struct {
	total     atomic.Int64
	success   atomic.Int64
	failures  atomic.Int64
	cacheHits atomic.Int64
	unknown   atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int64
}

func newStats() *stats {
	return &stats{
		latencies: make([]time.Duration, 0, 100000),
		codes:     make(map[int]int64),
	}
}

func (s *stats) record(d time.Duration, code int, resp *recommendResponse, err error) {
	s.total.Add(1)
	if err != nil {
		s.failures.Add(1)
		return
	}
	if code == http.StatusOK {
		s.success.Add(1)
		if resp.CacheHit {
			s.cacheHits.Add(1)
		}
		if !resp.Found {
			s.unknown.Add(1)
		}
	} else {
		s.failures.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.codes[code]++
	s.mu.Unlock()
}

type recommendResponse struct {
	Found    bool `json:"found"`
	CacheHit bool `json:"cache_hit"`
}

func main() {
	cfg := config{}
	flag.StringVar(&cfg.baseURL, "url", "http://localhost:8080", "base URL of the recommender service")
	flag.IntVar(&cfg.concurrency, "concurrency", 10, "number of concurrent workers")
	flag.DurationVar(&cfg.duration, "duration", 30*time.Second, "test duration")
	flag.IntVar(&cfg.k, "k", 10, "recommendations per query")
	sample := flag.Int("titles", 200, "number of catalog titles to query")
	flag.Parse()

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.concurrency * 2,
			MaxIdleConnsPerHost: cfg.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	titles, err := fetchTitles(client, cfg.baseURL, *sample)
	if err != nil || len(titles) == 0 {
		fmt.Fprintf(os.Stderr, "could not fetch catalog titles (is the model built?): %v\n", err)
		os.Exit(1)
	}
	cfg.titles = titles

	fmt.Println("=== Recommender Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.baseURL)
	fmt.Printf("Concurrency: %d\n", cfg.concurrency)
	fmt.Printf("Duration:    %s\n", cfg.duration)
	fmt.Printf("Titles:      %d unique, k=%d\n", len(cfg.titles), cfg.k)
	fmt.Println()

	s := run(client, cfg)
	if !report(s, cfg.duration) {
		os.Exit(1)
	}
}

func fetchTitles(client *http.Client, baseURL string, limit int) ([]string, error) {
	resp, err := client.Get(fmt.Sprintf("%s/api/v1/titles?limit=%d", baseURL, limit))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("titles endpoint returned %s", resp.Status)
	}
	var body struct {
		Titles []string `json:"titles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding titles: %w", err)
	}
	return body.Titles, nil
}

func run(client *http.Client, cfg config) *stats {
	s := newStats()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.concurrency; w++ {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				title := cfg.titles[i%len(cfg.titles)]
				target := fmt.Sprintf("%s/api/v1/recommendations?title=%s&k=%d",
					cfg.baseURL, url.QueryEscape(title), cfg.k)
				start := time.Now()
				code, resp, err := query(ctx, client, target)
				if ctx.Err() != nil {
					return nil
				}
				s.record(time.Since(start), code, resp, err)
			}
			return nil
		})
	}

	fmt.Print("Running")
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	done := make(chan struct{})
	go func() {
		g.Wait()
		close(done)
	}()
	for {
		select {
		case <-done:
			fmt.Println(" done!")
			fmt.Println()
			return s
		case <-ticker.C:
			fmt.Print(".")
		}
	}
}

func query(ctx context.Context, client *http.Client, target string) (int, *recommendResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	var body recommendResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return resp.StatusCode, nil, err
		}
	}
	return resp.StatusCode, &body, nil
}

func report(s *stats, duration time.Duration) bool {
	total := s.total.Load()
	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", s.success.Load())
	fmt.Printf("Failures:        %d\n", s.failures.Load())
	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		return false
	}
	fmt.Printf("Error Rate:      %.2f%%\n", float64(s.failures.Load())/float64(total)*100)
	fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	if ok := s.success.Load(); ok > 0 {
		fmt.Printf("Cache Hit Rate:  %.1f%%\n", float64(s.cacheHits.Load())/float64(ok)*100)
		fmt.Printf("Unknown Titles:  %d\n", s.unknown.Load())
	}

	s.mu.Lock()
	latencies := slices.Clone(s.latencies)
	codes := make([]int, 0, len(s.codes))
	for code := range s.codes {
		codes = append(codes, code)
	}
	s.mu.Unlock()

	if len(latencies) > 0 {
		slices.Sort(latencies)
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))
		var sq float64
		for _, l := range latencies {
			diff := float64(l - avg)
			sq += diff * diff
		}

		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", avg)
		for _, p := range []float64{50, 90, 95, 99} {
			fmt.Printf("P%-2.0f:    %s\n", p, percentile(latencies, p))
		}
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])
		fmt.Printf("StdDev: %s\n", time.Duration(math.Sqrt(sq/float64(len(latencies)))))
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, s.codes[code])
	}
	return true
}

// percentile uses the nearest-rank method on sorted.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
