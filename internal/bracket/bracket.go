package bracket

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gridstake/backend/internal/models"
)

// Store-level failure reasons, mapped to HTTP statuses by the handlers.
var (
	ErrNotFound      = errors.New("bracket not found")
	ErrBracketFull   = errors.New("bracket already has 8 players")
	ErrAlreadyJoined = errors.New("address already joined this bracket")
	ErrMatchNotFound = errors.New("bracket match not found")
	ErrMatchDone     = errors.New("bracket match already decided")
	ErrInvalidSeed   = errors.New("winner seed is not seated in this match")
)

// Create inserts a new open bracket.
func Create(db *sqlx.DB, name, adminAddress string) (*models.Bracket, error) {
	var b models.Bracket
	err := db.QueryRowx(
		`INSERT INTO brackets (name, admin_address, status, created_at) VALUES ($1,$2,$3,NOW())
		 RETURNING id, name, admin_address, status, created_at`,
		name, adminAddress, models.BracketOpen,
	).StructScan(&b)
	if err != nil {
		return nil, fmt.Errorf("create bracket: %w", err)
	}
	log.Printf("[BRACKET] Created bracket id=%d name=%q admin=%s", b.ID, b.Name, b.AdminAddress)
	return &b, nil
}

// Get loads a bracket row by id.
func Get(db *sqlx.DB, id int) (*models.Bracket, error) {
	var b models.Bracket
	if err := db.Get(&b, `SELECT id, name, admin_address, status, created_at FROM brackets WHERE id=$1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Players returns the seeded entrants of a bracket ordered by seed.
func Players(db *sqlx.DB, bracketID int) ([]models.BracketPlayer, error) {
	var ps []models.BracketPlayer
	err := db.Select(&ps,
		`SELECT id, bracket_id, seed, address, display_name, created_at
		 FROM bracket_players WHERE bracket_id=$1 ORDER BY seed`, bracketID)
	return ps, err
}

// Matches returns all matches of a bracket ordered by round and creation.
func Matches(db *sqlx.DB, bracketID int) ([]models.BracketMatch, error) {
	var ms []models.BracketMatch
	err := db.Select(&ms,
		`SELECT id, bracket_id, round, p1_seed, p2_seed, p1_wins, p2_wins, status, winner_seed, created_at, updated_at
		 FROM bracket_matches WHERE bracket_id=$1 ORDER BY round, id`, bracketID)
	return ms, err
}

// Join seats an address at the lowest unused seed. Assigning seed 8
// creates the four round-1 matches and flips the bracket to in_progress
// in the same transaction. A UNIQUE(bracket_id, seed) constraint plus
// ON CONFLICT DO NOTHING makes racing joins retry on the next free seat
// instead of sharing one.
func Join(db *sqlx.DB, bracketID int, address, displayName string) (*models.BracketPlayer, error) {
	b, err := Get(db, bracketID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BracketOpen {
		return nil, ErrBracketFull
	}

	var joined int
	if err := db.Get(&joined, `SELECT COUNT(*) FROM bracket_players WHERE bracket_id=$1 AND address=$2`, bracketID, address); err != nil {
		return nil, err
	}
	if joined > 0 {
		return nil, ErrAlreadyJoined
	}

	for attempt := 0; attempt < NumSeeds; attempt++ {
		var usedSeeds []int
		if err := db.Select(&usedSeeds, `SELECT seed FROM bracket_players WHERE bracket_id=$1`, bracketID); err != nil {
			return nil, err
		}
		seed := LowestUnusedSeed(usedSeeds)
		if seed == 0 {
			return nil, ErrBracketFull
		}

		// Only the seed conflict is absorbed; a racing duplicate-address
		// join must surface as its own failure, not as a full bracket.
		var p models.BracketPlayer
		err := db.QueryRowx(
			`INSERT INTO bracket_players (bracket_id, seed, address, display_name, created_at)
			 VALUES ($1,$2,$3,$4,NOW())
			 ON CONFLICT (bracket_id, seed) DO NOTHING
			 RETURNING id, bracket_id, seed, address, display_name, created_at`,
			bracketID, seed, address, displayName,
		).StructScan(&p)
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the seat to a concurrent join; try the next free seed.
			continue
		}
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
				return nil, ErrAlreadyJoined
			}
			return nil, fmt.Errorf("join bracket: %w", err)
		}

		log.Printf("[BRACKET] Player joined: bracket=%d seed=%d address=%s", bracketID, p.Seed, p.Address)

		if p.Seed == NumSeeds {
			if err := startRound1(db, bracketID); err != nil {
				return nil, err
			}
		}
		return &p, nil
	}

	return nil, ErrBracketFull
}

// startRound1 creates the four round-1 matches from the fixed pairing
// table and moves the bracket to in_progress. The bracket row is locked
// so a racing seed-8 join cannot create the matches twice.
func startRound1(db *sqlx.DB, bracketID int) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status string
	if err := tx.Get(&status, `SELECT status FROM brackets WHERE id=$1 FOR UPDATE`, bracketID); err != nil {
		return err
	}
	if status != models.BracketOpen {
		// Another request already started the bracket.
		return nil
	}

	for _, pair := range Round1Pairs() {
		if _, err := tx.Exec(
			`INSERT INTO bracket_matches (bracket_id, round, p1_seed, p2_seed, status, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,NOW(),NOW())`,
			bracketID, Round1, pair[0], pair[1], models.BracketMatchActive,
		); err != nil {
			return fmt.Errorf("create round 1 match: %w", err)
		}
	}

	if _, err := tx.Exec(`UPDATE brackets SET status=$1 WHERE id=$2`, models.BracketInProgress, bracketID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("[BRACKET] Round 1 started: bracket=%d pairs=%v", bracketID, Round1Pairs())
	return nil
}

// winnerIfDecided returns the seed that has taken the pairing once a
// side reaches WinsToTake. Any score below that, 1-1 included, decides
// nothing.
func winnerIfDecided(p1Seed, p2Seed, p1Wins, p2Wins int) (int, bool) {
	switch {
	case p1Wins >= WinsToTake:
		return p1Seed, true
	case p2Wins >= WinsToTake:
		return p2Seed, true
	default:
		return 0, false
	}
}

func getMatch(db *sqlx.DB, matchID int) (*models.BracketMatch, error) {
	var m models.BracketMatch
	err := db.Get(&m,
		`SELECT id, bracket_id, round, p1_seed, p2_seed, p1_wins, p2_wins, status, winner_seed, created_at, updated_at
		 FROM bracket_matches WHERE id=$1`, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Report records a game win for winnerSeed on the given match. When a
// side reaches 2 wins the match is fixed as done and the round is
// checked for advancement. Reports against unknown matches or seeds not
// seated in the match are rejected without side effects.
func Report(db *sqlx.DB, matchID, winnerSeed int) (*models.BracketMatch, error) {
	m, err := getMatch(db, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != models.BracketMatchActive {
		return nil, ErrMatchDone
	}
	if winnerSeed != m.P1Seed && winnerSeed != m.P2Seed {
		return nil, ErrInvalidSeed
	}

	col := "p1_wins"
	if winnerSeed == m.P2Seed {
		col = "p2_wins"
	}

	// Conditional increment: a report racing a match completion loses.
	res, err := db.Exec(
		fmt.Sprintf(`UPDATE bracket_matches SET %s = %s + 1, updated_at=NOW() WHERE id=$1 AND status=$2`, col, col),
		matchID, models.BracketMatchActive)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrMatchDone
	}

	cur, err := getMatch(db, matchID)
	if err != nil {
		return nil, err
	}

	if _, decided := winnerIfDecided(cur.P1Seed, cur.P2Seed, cur.P1Wins, cur.P2Wins); decided {
		// Fix the winner the instant a side reaches 2. The winner is
		// derived from the counters in SQL, so a racing report cannot
		// record a seed the counters do not support; the conditional
		// update lets only one report decide the match.
		res, err = db.Exec(
			`UPDATE bracket_matches SET status=$1,
			   winner_seed = CASE WHEN p1_wins >= $4 THEN p1_seed ELSE p2_seed END,
			   updated_at=NOW()
			 WHERE id=$2 AND status=$3 AND (p1_wins >= $4 OR p2_wins >= $4)`,
			models.BracketMatchDone, matchID, models.BracketMatchActive, WinsToTake)
		if err != nil {
			return nil, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			log.Printf("[BRACKET] Match decided: match=%d round=%d score=%d-%d", matchID, cur.Round, cur.P1Wins, cur.P2Wins)
			if err := advanceIfRoundDone(db, cur.BracketID, cur.Round); err != nil {
				log.Printf("[BRACKET] Advancement check failed for bracket %d round %d: %v", cur.BracketID, cur.Round, err)
			}
		}
	}

	return getMatch(db, matchID)
}

// advanceIfRoundDone creates the next round once every match of the
// given round is done, or completes the bracket after the final. The
// bracket row lock serializes concurrent last-report races.
func advanceIfRoundDone(db *sqlx.DB, bracketID, round int) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status string
	if err := tx.Get(&status, `SELECT status FROM brackets WHERE id=$1 FOR UPDATE`, bracketID); err != nil {
		return err
	}
	if status != models.BracketInProgress {
		return nil
	}

	var pending int
	if err := tx.Get(&pending,
		`SELECT COUNT(*) FROM bracket_matches WHERE bracket_id=$1 AND round=$2 AND status != $3`,
		bracketID, round, models.BracketMatchDone); err != nil {
		return err
	}
	if pending > 0 {
		return nil
	}

	if round == Round3 {
		if _, err := tx.Exec(`UPDATE brackets SET status=$1 WHERE id=$2`, models.BracketCompleted, bracketID); err != nil {
			return err
		}
		log.Printf("[BRACKET] Bracket completed: bracket=%d", bracketID)
		return tx.Commit()
	}

	// Guard against a racing advancement having created the round already.
	var nextCount int
	if err := tx.Get(&nextCount,
		`SELECT COUNT(*) FROM bracket_matches WHERE bracket_id=$1 AND round=$2`, bracketID, round+1); err != nil {
		return err
	}
	if nextCount > 0 {
		return nil
	}

	var winners []int
	if err := tx.Select(&winners,
		`SELECT winner_seed FROM bracket_matches WHERE bracket_id=$1 AND round=$2 ORDER BY id`,
		bracketID, round); err != nil {
		return err
	}

	for _, pair := range NextRoundPairs(winners) {
		if _, err := tx.Exec(
			`INSERT INTO bracket_matches (bracket_id, round, p1_seed, p2_seed, status, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,NOW(),NOW())`,
			bracketID, round+1, pair[0], pair[1], models.BracketMatchActive,
		); err != nil {
			return fmt.Errorf("create round %d match: %w", round+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("[BRACKET] Round %d created for bracket %d", round+1, bracketID)
	return nil
}
