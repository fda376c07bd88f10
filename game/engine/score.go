package engine

// Scoring multipliers for resolved rounds.
const (
	foundPoints  = 100
	missedPoints = 25
)

// Score derives a player's score from their historical round outcomes:
// foundCount rounds that produced a match and missedCount rounds that did
// not. The result may be negative.
func Score(foundCount, missedCount int) int {
	return foundCount*foundPoints - missedCount*missedPoints
}
