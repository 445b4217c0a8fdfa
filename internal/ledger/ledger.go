package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/gridstake/backend/internal/models"
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrResultSet = errors.New("session result already recorded")
)

// GateStatus reports whether the Play Gate blocks an address, along with
// the numbers the client needs to render the remediation UI.
type GateStatus struct {
	Required  bool `json:"required"`
	Count     int  `json:"count"`
	Threshold int  `json:"threshold"`
}

// GateRequired is the gate rule: an outstanding-debt count at or above
// the threshold blocks play. A threshold of zero or less falls back to 1
// so the gate cannot be configured away by accident.
func GateRequired(count, threshold int) bool {
	if threshold <= 0 {
		threshold = 1
	}
	return count >= threshold
}

// CheckGate counts the address's outstanding debt rows (settlement
// required, not yet settled) against the configured threshold.
func CheckGate(db *sqlx.DB, address string, threshold int) (GateStatus, error) {
	if threshold <= 0 {
		threshold = 1
	}
	var count int
	err := db.Get(&count,
		`SELECT COUNT(*) FROM sessions WHERE address=$1 AND requires_settlement AND NOT settled`,
		address)
	if err != nil {
		return GateStatus{}, fmt.Errorf("gate check: %w", err)
	}
	return GateStatus{Required: GateRequired(count, threshold), Count: count, Threshold: threshold}, nil
}

// Open creates a new ledger row for the address unless the Play Gate
// rejects it. A blocked open returns the gate status with a nil session.
func Open(db *sqlx.DB, address string, threshold int) (*models.GameSession, *GateStatus, error) {
	gate, err := CheckGate(db, address, threshold)
	if err != nil {
		return nil, nil, err
	}
	if gate.Required {
		log.Printf("[GATE] Session blocked for %s: outstanding=%d threshold=%d", address, gate.Count, gate.Threshold)
		return nil, &gate, nil
	}

	var s models.GameSession
	err = db.QueryRowx(
		`INSERT INTO sessions (address, result, created_at, updated_at) VALUES ($1,$2,NOW(),NOW())
		 RETURNING id, address, result, requires_settlement, settled, receipt_pending, tx_hash, created_at, updated_at`,
		address, models.ResultUnset,
	).StructScan(&s)
	if err != nil {
		return nil, nil, fmt.Errorf("open session: %w", err)
	}
	log.Printf("[GATE] Session opened: id=%d address=%s", s.ID, s.Address)
	return &s, nil, nil
}

// Get loads a single ledger row.
func Get(db *sqlx.DB, id int) (*models.GameSession, error) {
	var s models.GameSession
	err := db.Get(&s,
		`SELECT id, address, result, requires_settlement, settled, receipt_pending, tx_hash, created_at, updated_at
		 FROM sessions WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Outstanding returns the address's unsettled settlement-required rows,
// oldest first. This is the set the settlement quote is computed over.
func Outstanding(db *sqlx.DB, address string) ([]models.GameSession, error) {
	var rows []models.GameSession
	err := db.Select(&rows,
		`SELECT id, address, result, requires_settlement, settled, receipt_pending, tx_hash, created_at, updated_at
		 FROM sessions WHERE address=$1 AND requires_settlement AND NOT settled ORDER BY id`,
		address)
	return rows, err
}

// SetResult records the round outcome on an unresolved row. Losses flag
// the row as requiring settlement; the conditional WHERE keeps a racing
// double-report from overwriting a recorded result.
func SetResult(db *sqlx.DB, id int, result string) (*models.GameSession, error) {
	requires := result == models.ResultLoss
	res, err := db.Exec(
		`UPDATE sessions SET result=$1, requires_settlement=$2, updated_at=NOW() WHERE id=$3 AND result=$4`,
		result, requires, id, models.ResultUnset)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		cur, gerr := Get(db, id)
		if gerr != nil {
			return nil, gerr
		}
		if cur.Result == result {
			// Idempotent replay of the same outcome.
			return cur, nil
		}
		return nil, ErrResultSet
	}
	return Get(db, id)
}

// NeedsVerification reports whether flipping this row to settled must go
// through the chain verifier: a live debt with no recorded transaction.
// Everything else (already settled, never required settlement) settles
// trivially as the idempotent/administrative path.
func NeedsVerification(s *models.GameSession) bool {
	return s.RequiresSettlement && !s.Settled && !s.TxHash.Valid
}

// MarkSettledUnverified flips a row to settled without verification.
// This is the explicit administrative escape hatch; it succeeds even if
// the row is already settled.
func MarkSettledUnverified(db *sqlx.DB, id int) (*models.GameSession, error) {
	if _, err := db.Exec(`UPDATE sessions SET settled=TRUE, updated_at=NOW() WHERE id=$1`, id); err != nil {
		return nil, err
	}
	log.Printf("[GATE] Session %d settled without verification (admin/idempotent path)", id)
	return Get(db, id)
}
