package bracket

import "testing"

func TestRound1PairingTable(t *testing.T) {
	want := [4][2]int{{1, 8}, {4, 5}, {2, 7}, {3, 6}}
	if got := Round1Pairs(); got != want {
		t.Errorf("Round1Pairs() = %v, want %v", got, want)
	}
}

func TestNextRoundPairsKeepsBracketOrder(t *testing.T) {
	// Winners of round 1 in match order: A, B, C, D -> (A vs B), (C vs D)
	pairs := NextRoundPairs([]int{1, 5, 2, 3})
	if len(pairs) != 2 {
		t.Fatalf("expected 2 round-2 pairs, got %d", len(pairs))
	}
	if pairs[0] != [2]int{1, 5} || pairs[1] != [2]int{2, 3} {
		t.Errorf("unexpected round-2 pairing: %v", pairs)
	}

	// Two round-2 winners -> one final
	final := NextRoundPairs([]int{5, 2})
	if len(final) != 1 || final[0] != [2]int{5, 2} {
		t.Errorf("unexpected final pairing: %v", final)
	}
}

func TestWinnerIfDecided(t *testing.T) {
	cases := []struct {
		name           string
		p1Wins, p2Wins int
		wantSeed       int
		wantDecided    bool
	}{
		{"fresh match undecided", 0, 0, 0, false},
		{"one win does not decide", 1, 0, 0, false},
		{"tied at one each stays open", 1, 1, 0, false},
		{"p1 takes it at two", 2, 0, 3, true},
		{"p1 takes a full series", 2, 1, 3, true},
		{"p2 takes it at two", 1, 2, 6, true},
	}
	for _, tc := range cases {
		seed, decided := winnerIfDecided(3, 6, tc.p1Wins, tc.p2Wins)
		if decided != tc.wantDecided || seed != tc.wantSeed {
			t.Errorf("%s: winnerIfDecided(3,6,%d,%d) = (%d,%v), want (%d,%v)",
				tc.name, tc.p1Wins, tc.p2Wins, seed, decided, tc.wantSeed, tc.wantDecided)
		}
	}
}

func TestLowestUnusedSeed(t *testing.T) {
	cases := []struct {
		used []int
		want int
	}{
		{nil, 1},
		{[]int{1, 2, 3}, 4},
		{[]int{1, 3, 4}, 2},
		{[]int{2, 3, 4, 5, 6, 7, 8}, 1},
		{[]int{1, 2, 3, 4, 5, 6, 7}, 8},
		{[]int{1, 2, 3, 4, 5, 6, 7, 8}, 0},
	}
	for _, tc := range cases {
		if got := LowestUnusedSeed(tc.used); got != tc.want {
			t.Errorf("LowestUnusedSeed(%v) = %d, want %d", tc.used, got, tc.want)
		}
	}
}
