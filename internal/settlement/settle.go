package settlement

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gridstake/backend/internal/economics"
	"github.com/gridstake/backend/internal/ledger"
)

// OutstandingQuote is the authoritative payment quote for an address's
// unsettled debt. Wei amounts are decimal strings.
type OutstandingQuote struct {
	Count      int     `json:"count"`
	SessionIDs []int   `json:"sessionIds"`
	PerWei     string  `json:"perWei"`
	TotalWei   string  `json:"totalWei"`
	To         string  `json:"to"`
	ChainID    int64   `json:"chainId"`
	PayoutEth  float64 `json:"payoutEth"`
	ChargeEth  float64 `json:"chargeEth"`
}

// Result reports a completed settlement.
type Result struct {
	SettledIDs []int  `json:"settledIds"`
	TxHash     string `json:"txHash"`
	Pending    bool   `json:"pending"`
}

// Quote aggregates an address's outstanding sessions into the count,
// total owed and destination the client must honor when paying.
func Quote(ctx context.Context, db *sqlx.DB, calc *economics.Calculator, v *Verifier, address string) (OutstandingQuote, error) {
	snap := calc.Quote(ctx)
	q := OutstandingQuote{
		SessionIDs: []int{},
		PerWei:     "0",
		TotalWei:   "0",
		PayoutEth:  snap.PayoutEth,
		ChargeEth:  snap.ChargeEth,
	}
	if v != nil {
		q.To = strings.ToLower(v.Treasury().Hex())
		q.ChainID = v.ChainID()
	}

	rows, err := ledger.Outstanding(db, address)
	if err != nil {
		return q, err
	}
	if len(rows) == 0 {
		return q, nil
	}

	per := economics.EthToWei(snap.ChargeEth)
	total := new(big.Int).Mul(per, big.NewInt(int64(len(rows))))

	q.Count = len(rows)
	for _, r := range rows {
		q.SessionIDs = append(q.SessionIDs, r.ID)
	}
	q.PerWei = per.String()
	q.TotalWei = total.String()
	return q, nil
}

// Complete verifies one transaction against the combined expected amount
// for all listed sessions and, if valid, settles them atomically under
// the shared hash and updates the per-day charge log. Verification
// failures leave the ledger untouched.
func Complete(ctx context.Context, db *sqlx.DB, calc *economics.Calculator, v *Verifier, address string, sessionIDs []int, txHash string) (*Result, error) {
	if v == nil {
		return nil, ErrNotConfigured
	}
	if len(sessionIDs) == 0 {
		return nil, fmt.Errorf("%w: no sessions listed", ErrTxVerificationFailed)
	}

	// Every listed session must be this address's live debt.
	var eligible int
	err := db.Get(&eligible,
		`SELECT COUNT(*) FROM sessions WHERE id = ANY($1) AND address=$2 AND requires_settlement AND NOT settled`,
		pq.Array(sessionIDs), address)
	if err != nil {
		return nil, err
	}
	if eligible != len(sessionIDs) {
		return nil, fmt.Errorf("%w: %d of %d sessions are not outstanding for %s",
			ErrTxVerificationFailed, len(sessionIDs)-eligible, len(sessionIDs), address)
	}

	snap := calc.Quote(ctx)
	per := economics.EthToWei(snap.ChargeEth)
	expected := new(big.Int).Mul(per, big.NewInt(int64(len(sessionIDs))))

	pending, err := v.VerifyPayment(ctx, address, txHash, expected)
	if err != nil {
		return nil, err
	}

	tx, err := db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE sessions SET settled=TRUE, tx_hash=$1, receipt_pending=$2, updated_at=NOW()
		 WHERE id = ANY($3) AND address=$4 AND requires_settlement AND NOT settled`,
		txHash, pending, pq.Array(sessionIDs), address)
	if err != nil {
		return nil, err
	}
	n, _ := res.RowsAffected()
	if int(n) != len(sessionIDs) {
		// A concurrent settlement won the race on some row.
		return nil, fmt.Errorf("%w: sessions changed during settlement", ErrTxVerificationFailed)
	}

	total := new(big.Int).Mul(per, big.NewInt(n))
	if _, err := tx.Exec(
		`INSERT INTO charge_log (address, day, charge_count, total_wei, updated_at)
		 VALUES ($1, CURRENT_DATE, $2, $3, NOW())
		 ON CONFLICT (address, day) DO UPDATE SET
		   charge_count = charge_log.charge_count + EXCLUDED.charge_count,
		   total_wei = (charge_log.total_wei::numeric + EXCLUDED.total_wei::numeric)::text,
		   updated_at = NOW()`,
		address, n, total.String()); err != nil {
		return nil, fmt.Errorf("charge log update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("[SETTLE] Settled %d session(s) for %s tx=%s pending_receipt=%v total_wei=%s",
		n, address, txHash, pending, total.String())
	return &Result{SettledIDs: sessionIDs, TxHash: txHash, Pending: pending}, nil
}
