package models

import (
	"database/sql"
	"time"
)

// GameSession is one ledger row per played round for a wallet address.
// Rows are never deleted; settlement state is flipped in place.
type GameSession struct {
	ID                 int            `db:"id" json:"id"`
	Address            string         `db:"address" json:"address"`
	Result             string         `db:"result" json:"result"`
	RequiresSettlement bool           `db:"requires_settlement" json:"requires_settlement"`
	Settled            bool           `db:"settled" json:"settled"`
	ReceiptPending     bool           `db:"receipt_pending" json:"receipt_pending"`
	TxHash             sql.NullString `db:"tx_hash" json:"tx_hash,omitempty"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// Session results
const (
	ResultUnset = "unset"
	ResultWin   = "win"
	ResultLoss  = "loss"
	ResultDraw  = "draw"
)

// PvpMatch is a head-to-head board game between two addresses.
// The board is a flattened size*size string of '.', 'X', 'O'.
type PvpMatch struct {
	ID           int            `db:"id" json:"id"`
	PlayerX      sql.NullString `db:"player_x" json:"player_x,omitempty"`
	PlayerO      sql.NullString `db:"player_o" json:"player_o,omitempty"`
	Board        string         `db:"board" json:"board"`
	Size         int            `db:"size" json:"size"`
	Misere       bool           `db:"misere" json:"misere"`
	Blitz        string         `db:"blitz" json:"blitz"`
	NextTurn     string         `db:"next_turn" json:"next_turn"`
	Status       string         `db:"status" json:"status"`
	Winner       sql.NullString `db:"winner" json:"winner,omitempty"`
	TurnDeadline sql.NullTime   `db:"turn_deadline" json:"turn_deadline,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Match statuses
const (
	MatchOpen   = "open"
	MatchActive = "active"
	MatchDone   = "done"
)

// Blitz presets (client-side countdown; server enforces the deadline lazily)
const (
	BlitzOff = "off"
	Blitz7s  = "7s"
	Blitz5s  = "5s"
)

// Bracket is an 8-seed single elimination tournament
type Bracket struct {
	ID           int       `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	AdminAddress string    `db:"admin_address" json:"admin_address"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Bracket statuses
const (
	BracketOpen       = "open"
	BracketInProgress = "in_progress"
	BracketCompleted  = "completed"
)

// BracketPlayer is one seeded entrant (seed 1..8, unique per bracket)
type BracketPlayer struct {
	ID          int       `db:"id" json:"id"`
	BracketID   int       `db:"bracket_id" json:"bracket_id"`
	Seed        int       `db:"seed" json:"seed"`
	Address     string    `db:"address" json:"address"`
	DisplayName string    `db:"display_name" json:"display_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// BracketMatch is a best-of-3 pairing inside a bracket round
type BracketMatch struct {
	ID         int           `db:"id" json:"id"`
	BracketID  int           `db:"bracket_id" json:"bracket_id"`
	Round      int           `db:"round" json:"round"`
	P1Seed     int           `db:"p1_seed" json:"p1_seed"`
	P2Seed     int           `db:"p2_seed" json:"p2_seed"`
	P1Wins     int           `db:"p1_wins" json:"p1_wins"`
	P2Wins     int           `db:"p2_wins" json:"p2_wins"`
	Status     string        `db:"status" json:"status"`
	WinnerSeed sql.NullInt64 `db:"winner_seed" json:"winner_seed,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// Bracket match statuses
const (
	BracketMatchActive = "active"
	BracketMatchDone   = "done"
)

// ChargeLog is a per-address per-day settlement aggregate for accounting.
// Wei totals are kept as decimal strings to avoid float drift.
type ChargeLog struct {
	ID          int       `db:"id" json:"id"`
	Address     string    `db:"address" json:"address"`
	Day         time.Time `db:"day" json:"day"`
	ChargeCount int       `db:"charge_count" json:"charge_count"`
	TotalWei    string    `db:"total_wei" json:"total_wei"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
