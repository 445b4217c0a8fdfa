package bracket

// Seeding and pairing rules for the 8-seed single elimination format.

// Seats per bracket
const NumSeeds = 8

// Rounds
const (
	Round1 = 1
	Round2 = 2
	Round3 = 3 // final
)

// WinsToTake is the score that decides a best-of-3 pairing.
const WinsToTake = 2

// Round1Pairs is the fixed first-round pairing table in bracket order:
// top seed faces the weakest, and so on. Round 2 pairs the winners of
// adjacent entries, which is why the order here matters.
func Round1Pairs() [4][2]int {
	return [4][2]int{{1, 8}, {4, 5}, {2, 7}, {3, 6}}
}

// NextRoundPairs pairs winners of the just-completed round in bracket
// order: winner of match A vs winner of match B, C vs D. The winners
// slice must already be in match-creation order.
func NextRoundPairs(winners []int) [][2]int {
	pairs := make([][2]int, 0, len(winners)/2)
	for i := 0; i+1 < len(winners); i += 2 {
		pairs = append(pairs, [2]int{winners[i], winners[i+1]})
	}
	return pairs
}

// LowestUnusedSeed returns the lowest seed in 1..NumSeeds not present in
// used, or 0 when the bracket is full.
func LowestUnusedSeed(used []int) int {
	taken := [NumSeeds + 1]bool{}
	for _, s := range used {
		if s >= 1 && s <= NumSeeds {
			taken[s] = true
		}
	}
	for s := 1; s <= NumSeeds; s++ {
		if !taken[s] {
			return s
		}
	}
	return 0
}
