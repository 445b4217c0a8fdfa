package engine

//
// Generalized N-in-a-row board engine.
//
// Boards are flattened size*size strings of '.', 'X', 'O'. The engine is
// pure: it inspects boards and computes terminal states, it does not own
// match rows or turn order.
//

// Cell marks
const (
	Empty   byte = '.'
	SymbolX byte = 'X'
	SymbolO byte = 'O'
)

// Supported board sizes
const (
	MinSize = 3
	MaxSize = 5
)

// NewBoard returns an empty flattened board for the given size.
func NewBoard(size int) string {
	b := make([]byte, size*size)
	for i := range b {
		b[i] = Empty
	}
	return string(b)
}

// ValidSize reports whether size is a supported board size.
func ValidSize(size int) bool {
	return size >= MinSize && size <= MaxSize
}

// RequiredRun returns the run length needed to win on a board of the
// given size: 3 for the classic 3x3 board, 4 for the larger ones.
func RequiredRun(size int) int {
	if size == 3 {
		return 3
	}
	return 4
}

// Opponent returns the other symbol.
func Opponent(sym byte) byte {
	if sym == SymbolX {
		return SymbolO
	}
	return SymbolX
}

// directions scanned from each candidate run start: right, down,
// down-right, up-right.
var directions = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {-1, 1}}

// Winner scans the board for a completed run and returns the symbol that
// completed it, or Empty if no run exists. Every cell is tried as a run
// start in each of the four directions.
func Winner(board string, size int) byte {
	run := RequiredRun(size)
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			mark := board[r*size+c]
			if mark == Empty {
				continue
			}
			for _, d := range directions {
				// run must fit on the board from this start
				er, ec := r+d[0]*(run-1), c+d[1]*(run-1)
				if er < 0 || er >= size || ec < 0 || ec >= size {
					continue
				}
				ok := true
				for i := 1; i < run; i++ {
					if board[(r+d[0]*i)*size+c+d[1]*i] != mark {
						ok = false
						break
					}
				}
				if ok {
					return mark
				}
			}
		}
	}
	return Empty
}

// Full reports whether the board has no empty cells left.
func Full(board string) bool {
	for i := 0; i < len(board); i++ {
		if board[i] == Empty {
			return false
		}
	}
	return true
}

// RecordedWinner applies the misère rule: under misère, completing a run
// loses, so the recorded winner is the opposite symbol.
func RecordedWinner(runCompleter byte, misere bool) byte {
	if misere {
		return Opponent(runCompleter)
	}
	return runCompleter
}

// Place returns the board with sym written at index. The caller is
// responsible for legality; Place only guards the bounds and occupancy.
func Place(board string, index int, sym byte) (string, bool) {
	if index < 0 || index >= len(board) || board[index] != Empty {
		return board, false
	}
	b := []byte(board)
	b[index] = sym
	return string(b), true
}
