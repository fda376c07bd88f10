package engine

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// GeneratePool draws a uniform random sample of pairCount distinct faces
// from the catalog snapshot, duplicates each to form pairs, shuffles the
// result uniformly, and assigns board positions 1..2*pairCount in shuffled
// order. Pure function of the snapshot and the randomness source; rng may
// be nil, in which case a source seeded from the shared generator is used.
func GeneratePool(faces []CardFace, pairCount int, rng *rand.Rand) (CardPool, error) {
	if pairCount < 1 {
		return CardPool{}, fmt.Errorf("pair count must be positive, got %d", pairCount)
	}
	if len(faces) < pairCount {
		return CardPool{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientCatalog, len(faces), pairCount)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	// Sample pairCount distinct faces without replacement.
	sample := make([]CardFace, 0, pairCount)
	for _, i := range rng.Perm(len(faces))[:pairCount] {
		sample = append(sample, faces[i])
	}

	// Duplicate the sample, then apply a Fisher-Yates shuffle over the
	// whole board so every permutation is equally likely.
	cards := make([]Card, 0, 2*pairCount)
	for _, face := range sample {
		card := Card{CardID: face.CardID, ImageURL: face.ImageURL}
		cards = append(cards, card, card)
	}
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})

	for i := range cards {
		cards[i].Position = i + 1
	}

	pool := CardPool{Cards: cards, FirstDrawAt: time.Now()}
	if err := pool.Validate(); err != nil {
		return CardPool{}, err
	}
	return pool, nil
}
