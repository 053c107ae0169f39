package teamgen

import "math/rand"

// Team names are "<color> <noun>". The color order is shuffled uniformly
// per run so no player sticks to one color class across many draws.
var (
	teamColors = []string{
		"Red", "Blue", "Green", "Yellow", "Orange", "Purple", "White", "Black",
	}
	teamNouns = []string{
		"Lions", "Sharks", "Eagles", "Wolves", "Falcons", "Tigers", "Cobras", "Hornets",
	}
)

// MaxTeams is bounded by the color palette.
const MaxTeams = 8

func teamNames(rng *rand.Rand, count int) []string {
	colors := append([]string(nil), teamColors...)
	rng.Shuffle(len(colors), func(i, j int) {
		colors[i], colors[j] = colors[j], colors[i]
	})
	nouns := append([]string(nil), teamNouns...)
	rng.Shuffle(len(nouns), func(i, j int) {
		nouns[i], nouns[j] = nouns[j], nouns[i]
	})

	names := make([]string, count)
	for i := 0; i < count; i++ {
		names[i] = colors[i] + " " + nouns[i]
	}
	return names
}
