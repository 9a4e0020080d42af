// Package catalog supplies the title corpus the recommender is built from.
// Sources read raw titles from a CSV export or PostgreSQL; Clean turns them
// into a corpus of trimmed, non-empty, distinct titles of bounded size.
package catalog

import (
	"context"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/recommender/tokenizer"
)

// Source yields raw titles in catalog order. Entries may be empty or repeat;
// Clean is responsible for that.
type Source interface {
	Titles(ctx context.Context) ([]string, error)
	Name() string
}

// CleanStats reports what Clean removed.
type CleanStats struct {
	Raw        int `json:"raw"`
	Empty      int `json:"empty"`
	Duplicates int `json:"duplicates"`
	Sampled    int `json:"sampled_out"`
	Kept       int `json:"kept"`
}

// Clean trims every title, drops empty ones and repeats (the first
// occurrence wins) and, when maxItems > 0 and more remain, keeps a sample of
// maxItems titles chosen by seed. The sample keeps catalog order, and the
// same input and seed always give the same corpus.
func Clean(raw []string, maxItems int, seed int64) ([]string, CleanStats) {
	stats := CleanStats{Raw: len(raw)}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, title := range raw {
		title = strings.TrimSpace(title)
		if title == "" {
			stats.Empty++
			continue
		}
		if _, dup := seen[title]; dup {
			stats.Duplicates++
			continue
		}
		seen[title] = struct{}{}
		out = append(out, title)
	}

	if maxItems > 0 && len(out) > maxItems {
		rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
		picked := rng.Perm(len(out))[:maxItems]
		sort.Ints(picked)
		sampled := make([]string, maxItems)
		for i, idx := range picked {
			sampled[i] = out[idx]
		}
		stats.Sampled = len(out) - maxItems
		out = sampled
	}
	stats.Kept = len(out)
	return out, stats
}

// Search returns up to limit corpus titles containing q, compared without
// case or accents, in corpus order. An empty q matches every title.
func Search(corpus []string, q string, limit int) []string {
	needle := tokenizer.Normalize(strings.TrimSpace(q))
	out := make([]string, 0)
	for _, title := range corpus {
		if limit > 0 && len(out) >= limit {
			break
		}
		if needle == "" || strings.Contains(tokenizer.Normalize(title), needle) {
			out = append(out, title)
		}
	}
	return out
}
