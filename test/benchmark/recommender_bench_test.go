package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/recommender/query"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/recommender/similarity"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/recommender/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/recommender/vectorizer"
)

var sampleTitles = map[string]string{
	"short":  "Feel Good Inc.",
	"medium": "Señorita (feat. Camila Cabello) - Official Music Video",
	"long":   "Despacito (Remix) [feat. Justin Bieber] - Live from the Summer Tour 2019 Acoustic Version",
}

func BenchmarkAnalyzerTerms(b *testing.B) {
	a := tokenizer.NewAnalyzer(1, 3)
	for name, text := range sampleTitles {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = a.Terms(text)
			}
		})
	}
}

func BenchmarkAnalyzerTermsParallel(b *testing.B) {
	a := tokenizer.NewAnalyzer(1, 3)
	text := sampleTitles["medium"]
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = a.Terms(text)
		}
	})
}

func BenchmarkVectorize(b *testing.B) {
	opts := vectorizer.DefaultOptions()
	for _, n := range []int{1000, 5000} {
		corpus := syntheticTitles(n)
		b.Run(fmt.Sprintf("titles=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, _, err := vectorizer.Build(corpus, opts); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSimilarity(b *testing.B) {
	for _, n := range []int{500, 2000} {
		corpus := syntheticTitles(n)
		_, vectors, err := vectorizer.Build(corpus, vectorizer.DefaultOptions())
		if err != nil {
			b.Fatal(err)
		}
		b.Run(fmt.Sprintf("titles=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, _, err := similarity.Build(context.Background(), vectors, corpus); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRecommend(b *testing.B) {
	corpus := syntheticTitles(2000)
	_, vectors, err := vectorizer.Build(corpus, vectorizer.DefaultOptions())
	if err != nil {
		b.Fatal(err)
	}
	sim, idx, err := similarity.Build(context.Background(), vectors, corpus)
	if err != nil {
		b.Fatal(err)
	}
	for _, k := range []int{10, 100} {
		b.Run(fmt.Sprintf("k=%d", k), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := query.Recommend(corpus[i%len(corpus)], idx, sim, corpus, k); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRecommendParallel(b *testing.B) {
	corpus := syntheticTitles(2000)
	_, vectors, _ := vectorizer.Build(corpus, vectorizer.DefaultOptions())
	sim, idx, _ := similarity.Build(context.Background(), vectors, corpus)
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = query.Recommend(corpus[i%len(corpus)], idx, sim, corpus, 10)
			i++
		}
	})
}
