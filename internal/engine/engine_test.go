package engine

import "testing"

// place writes moves onto an empty board of the given size.
func boardWith(size int, moves map[int]byte) string {
	b := []byte(NewBoard(size))
	for idx, sym := range moves {
		b[idx] = sym
	}
	return string(b)
}

func TestRequiredRunBySize(t *testing.T) {
	cases := map[int]int{3: 3, 4: 4, 5: 4}
	for size, want := range cases {
		if got := RequiredRun(size); got != want {
			t.Errorf("RequiredRun(%d) = %d, want %d", size, got, want)
		}
	}
}

func TestWinnerRow3x3(t *testing.T) {
	b := boardWith(3, map[int]byte{3: SymbolX, 4: SymbolX, 5: SymbolX})
	if got := Winner(b, 3); got != SymbolX {
		t.Errorf("expected X row win, got %q", got)
	}
}

func TestWinnerColumn3x3(t *testing.T) {
	b := boardWith(3, map[int]byte{1: SymbolO, 4: SymbolO, 7: SymbolO})
	if got := Winner(b, 3); got != SymbolO {
		t.Errorf("expected O column win, got %q", got)
	}
}

func TestWinnerDiagonals3x3(t *testing.T) {
	down := boardWith(3, map[int]byte{0: SymbolX, 4: SymbolX, 8: SymbolX})
	if got := Winner(down, 3); got != SymbolX {
		t.Errorf("expected X down-right win, got %q", got)
	}
	up := boardWith(3, map[int]byte{6: SymbolO, 4: SymbolO, 2: SymbolO})
	if got := Winner(up, 3); got != SymbolO {
		t.Errorf("expected O up-right win, got %q", got)
	}
}

func TestThreeInARowNotEnoughOnLargerBoards(t *testing.T) {
	// Three in a row on a 4x4 / 5x5 board is not a win; four is required.
	for _, size := range []int{4, 5} {
		b := boardWith(size, map[int]byte{0: SymbolX, 1: SymbolX, 2: SymbolX})
		if got := Winner(b, size); got != Empty {
			t.Errorf("size %d: three in a row should not win, got %q", size, got)
		}
		b = boardWith(size, map[int]byte{0: SymbolX, 1: SymbolX, 2: SymbolX, 3: SymbolX})
		if got := Winner(b, size); got != SymbolX {
			t.Errorf("size %d: four in a row should win, got %q", size, got)
		}
	}
}

func TestWinnerDiagonal5x5Offset(t *testing.T) {
	// Run starting away from the edge: (1,1) .. (4,4)
	b := boardWith(5, map[int]byte{6: SymbolO, 12: SymbolO, 18: SymbolO, 24: SymbolO})
	if got := Winner(b, 5); got != SymbolO {
		t.Errorf("expected O diagonal win on 5x5, got %q", got)
	}
}

func TestNoWinner(t *testing.T) {
	b := boardWith(3, map[int]byte{0: SymbolX, 1: SymbolO, 4: SymbolX, 8: SymbolO})
	if got := Winner(b, 3); got != Empty {
		t.Errorf("expected no winner, got %q", got)
	}
}

func TestDrawDetection(t *testing.T) {
	// X O X / X O O / O X X -- full board, no run
	b := "XOXXOOOXX"
	if got := Winner(b, 3); got != Empty {
		t.Fatalf("expected no winner on drawn board, got %q", got)
	}
	if !Full(b) {
		t.Error("expected full board")
	}
	if Full(NewBoard(3)) {
		t.Error("empty board reported full")
	}
}

func TestMisereInversion(t *testing.T) {
	if got := RecordedWinner(SymbolX, true); got != SymbolO {
		t.Errorf("misère: X completing a run should record O, got %q", got)
	}
	if got := RecordedWinner(SymbolX, false); got != SymbolX {
		t.Errorf("normal rules: X completing a run should record X, got %q", got)
	}
}

func TestPlaceRejectsOccupiedAndOutOfRange(t *testing.T) {
	b := NewBoard(3)
	b, ok := Place(b, 4, SymbolX)
	if !ok || b[4] != SymbolX {
		t.Fatal("expected placement at empty cell to succeed")
	}
	if _, ok := Place(b, 4, SymbolO); ok {
		t.Error("placement on occupied cell should fail")
	}
	if _, ok := Place(b, 9, SymbolO); ok {
		t.Error("placement out of range should fail")
	}
	if _, ok := Place(b, -1, SymbolO); ok {
		t.Error("negative index should fail")
	}
}
