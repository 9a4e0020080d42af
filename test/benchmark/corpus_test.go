package benchmark

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

var vocabulary = []string{
	"love", "song", "heart", "night", "dance", "remix", "feat", "live",
	"summer", "dream", "fire", "rain", "blue", "sky", "home", "road",
	"baby", "world", "time", "light", "official", "video", "acoustic", "version",
	"corazón", "amor", "noche", "café", "mañana", "señorita",
}

// syntheticTitles returns n distinct titles of two to six words drawn
// from vocabulary with a fixed seed.
func syntheticTitles(n int) []string {
	rng := rand.New(rand.NewPCG(7, 11))
	titles := make([]string, n)
	for i := range titles {
		words := make([]string, 2+rng.IntN(5))
		for j := range words {
			words[j] = vocabulary[rng.IntN(len(vocabulary))]
		}
		titles[i] = fmt.Sprintf("%s %d", strings.Join(words, " "), i)
	}
	return titles
}
