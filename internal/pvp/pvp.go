package pvp

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gridstake/backend/internal/engine"
	"github.com/gridstake/backend/internal/models"
)

var (
	ErrNotFound       = errors.New("match not found")
	ErrSeatTaken      = errors.New("match already has two players")
	ErrNotSeated      = errors.New("address is not seated in this match")
	ErrMatchNotActive = errors.New("match is not active")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrCellOccupied   = errors.New("cell is occupied")
	ErrConflict       = errors.New("match changed concurrently, re-read and retry")
)

const matchColumns = `id, player_x, player_o, board, size, misere, blitz, next_turn, status, winner, turn_deadline, created_at, updated_at`

// BlitzDuration maps a blitz preset to its per-turn allowance. Zero
// means untimed.
func BlitzDuration(preset string) time.Duration {
	switch preset {
	case models.Blitz7s:
		return 7 * time.Second
	case models.Blitz5s:
		return 5 * time.Second
	default:
		return 0
	}
}

// ValidBlitz reports whether the preset is one of off/7s/5s.
func ValidBlitz(preset string) bool {
	return preset == models.BlitzOff || preset == models.Blitz7s || preset == models.Blitz5s
}

// Create opens a new match, optionally pre-seating the creator as X.
func Create(db *sqlx.DB, creator string, size int, misere bool, blitz string) (*models.PvpMatch, error) {
	if !engine.ValidSize(size) {
		return nil, fmt.Errorf("unsupported board size %d", size)
	}
	if blitz == "" {
		blitz = models.BlitzOff
	}
	if !ValidBlitz(blitz) {
		return nil, fmt.Errorf("unsupported blitz preset %q", blitz)
	}

	playerX := sql.NullString{String: creator, Valid: creator != ""}
	var m models.PvpMatch
	err := db.QueryRowx(
		`INSERT INTO pvp_matches (player_x, board, size, misere, blitz, next_turn, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,'X',$6,NOW(),NOW()) RETURNING `+matchColumns,
		playerX, engine.NewBoard(size), size, misere, blitz, models.MatchOpen,
	).StructScan(&m)
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	log.Printf("[PVP] Match created: id=%d size=%d misere=%v blitz=%s creator=%s", m.ID, size, misere, blitz, creator)
	return &m, nil
}

// Join fills the empty seat and activates the match. The conditional
// update makes two racing joins for the last seat resolve to one winner.
func Join(db *sqlx.DB, id int, address string) (*models.PvpMatch, error) {
	m, err := Get(db, id)
	if err != nil {
		return nil, err
	}
	if m.Status != models.MatchOpen {
		return nil, ErrSeatTaken
	}
	if m.PlayerX.Valid && m.PlayerX.String == address {
		return nil, fmt.Errorf("%w: already seated as X", ErrSeatTaken)
	}

	deadline := firstDeadline(m.Blitz)

	var res sql.Result
	if !m.PlayerX.Valid {
		res, err = db.Exec(
			`UPDATE pvp_matches SET player_x=$1, updated_at=NOW() WHERE id=$2 AND status=$3 AND player_x IS NULL`,
			address, id, models.MatchOpen)
	} else {
		res, err = db.Exec(
			`UPDATE pvp_matches SET player_o=$1, status=$2, turn_deadline=$3, updated_at=NOW()
			 WHERE id=$4 AND status=$5 AND player_o IS NULL`,
			address, models.MatchActive, deadline, id, models.MatchOpen)
	}
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrSeatTaken
	}

	log.Printf("[PVP] Player joined match %d: %s", id, address)
	return Get(db, id)
}

// Get returns the match, applying a lazy turn-timeout check first so a
// stalled opponent cannot block a blitz match indefinitely.
func Get(db *sqlx.DB, id int) (*models.PvpMatch, error) {
	m, err := load(db, id)
	if err != nil {
		return nil, err
	}
	forfeited, err := applyTimeout(db, m)
	if err != nil {
		log.Printf("[PVP] Timeout forfeit failed for match %d: %v", m.ID, err)
		return m, nil
	}
	if forfeited {
		return load(db, id)
	}
	return m, nil
}

// Move applies one move for address at the flattened board index and
// runs terminal detection. The whole read-modify-write is guarded by a
// compare-and-swap on (status, next_turn, board): the loser of a
// concurrent duplicate request gets ErrConflict and nothing is lost.
func Move(db *sqlx.DB, id int, address string, index int) (*models.PvpMatch, error) {
	m, err := Get(db, id)
	if err != nil {
		return nil, err
	}
	if m.Status != models.MatchActive {
		return nil, ErrMatchNotActive
	}

	sym, err := symbolFor(m, address)
	if err != nil {
		return nil, err
	}
	if m.NextTurn != string(sym) {
		return nil, ErrNotYourTurn
	}

	board, ok := engine.Place(m.Board, index, sym)
	if !ok {
		if index < 0 || index >= len(m.Board) {
			return nil, fmt.Errorf("index %d out of range for size %d", index, m.Size)
		}
		return nil, ErrCellOccupied
	}

	// Terminal detection on the prospective board.
	status := models.MatchActive
	winner := sql.NullString{}
	nextTurn := string(engine.Opponent(sym))
	var deadline sql.NullTime

	if run := engine.Winner(board, m.Size); run != engine.Empty {
		status = models.MatchDone
		winner = sql.NullString{String: string(engine.RecordedWinner(run, m.Misere)), Valid: true}
	} else if engine.Full(board) {
		status = models.MatchDone
	} else {
		deadline = firstDeadline(m.Blitz)
	}

	res, err := db.Exec(
		`UPDATE pvp_matches SET board=$1, next_turn=$2, status=$3, winner=$4, turn_deadline=$5, updated_at=NOW()
		 WHERE id=$6 AND status=$7 AND next_turn=$8 AND board=$9`,
		board, nextTurn, status, winner, deadline,
		id, models.MatchActive, string(sym), m.Board)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrConflict
	}

	if status == models.MatchDone {
		log.Printf("[PVP] Match %d done: winner=%v misere=%v", id, winner.String, m.Misere)
	}
	return load(db, id)
}

func load(db *sqlx.DB, id int) (*models.PvpMatch, error) {
	var m models.PvpMatch
	err := db.Get(&m, `SELECT `+matchColumns+` FROM pvp_matches WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// timedOut reports whether the player to move has exhausted the blitz
// allowance: an active timed match whose deadline is at or behind now.
func timedOut(m *models.PvpMatch, now time.Time) bool {
	return m.Status == models.MatchActive && m.Blitz != models.BlitzOff &&
		m.TurnDeadline.Valid && !now.Before(m.TurnDeadline.Time)
}

// applyTimeout forfeits the player to move when their blitz deadline has
// passed. A timeout is not a completed run, so misère inversion does not
// apply: the opponent of the stalled player simply wins. Returns whether
// a forfeit was recorded.
func applyTimeout(db *sqlx.DB, m *models.PvpMatch) (bool, error) {
	if !timedOut(m, time.Now()) {
		return false, nil
	}

	winner := string(engine.Opponent(m.NextTurn[0]))
	res, err := db.Exec(
		`UPDATE pvp_matches SET status=$1, winner=$2, turn_deadline=NULL, updated_at=NOW()
		 WHERE id=$3 AND status=$4 AND next_turn=$5 AND turn_deadline=$6`,
		models.MatchDone, winner, m.ID, models.MatchActive, m.NextTurn, m.TurnDeadline.Time)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		log.Printf("[PVP] Match %d forfeited on timeout: stalled=%s winner=%s", m.ID, m.NextTurn, winner)
	}
	return n > 0, nil
}

func symbolFor(m *models.PvpMatch, address string) (byte, error) {
	switch {
	case m.PlayerX.Valid && m.PlayerX.String == address:
		return engine.SymbolX, nil
	case m.PlayerO.Valid && m.PlayerO.String == address:
		return engine.SymbolO, nil
	default:
		return 0, ErrNotSeated
	}
}

func firstDeadline(blitz string) sql.NullTime {
	d := BlitzDuration(blitz)
	if d == 0 {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: time.Now().Add(d), Valid: true}
}
