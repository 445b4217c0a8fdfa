package settlement

import (
	"context"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
)

// StartReceiptChecker runs a background job that re-verifies sessions
// settled on a provisionally accepted (still-pending) receipt. A receipt
// that lands successfully confirms the rows; a reverted transaction
// puts the debt back.
func StartReceiptChecker(ctx context.Context, db *sqlx.DB, v *Verifier, intervalMinutes int) {
	if v == nil {
		log.Printf("[SETTLE-CHECK] Verifier not configured, receipt checker not started")
		return
	}
	if intervalMinutes <= 0 {
		intervalMinutes = 2
	}
	ticker := time.NewTicker(time.Duration(intervalMinutes) * time.Minute)
	defer ticker.Stop()

	log.Printf("[SETTLE-CHECK] Starting receipt checker (check every %d min)", intervalMinutes)

	// Run once immediately on startup
	checkPendingReceipts(ctx, db, v)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[SETTLE-CHECK] Receipt checker stopped")
			return
		case <-ticker.C:
			checkPendingReceipts(ctx, db, v)
		}
	}
}

func checkPendingReceipts(ctx context.Context, db *sqlx.DB, v *Verifier) {
	var rows []struct {
		TxHash string `db:"tx_hash"`
		Count  int    `db:"count"`
	}
	err := db.Select(&rows,
		`SELECT tx_hash, COUNT(*) AS count FROM sessions
		 WHERE receipt_pending AND settled AND tx_hash IS NOT NULL
		 GROUP BY tx_hash ORDER BY MIN(id)`)
	if err != nil {
		log.Printf("[SETTLE-CHECK] Failed to fetch pending receipts: %v", err)
		return
	}
	if len(rows) == 0 {
		return
	}

	log.Printf("[SETTLE-CHECK] Checking %d provisional transaction(s)", len(rows))

	for _, row := range rows {
		confirmed, failed, err := v.CheckReceipt(ctx, row.TxHash)
		if err != nil {
			log.Printf("[SETTLE-CHECK] Receipt check failed for %s: %v", row.TxHash, err)
			continue
		}

		switch {
		case confirmed:
			if _, err := db.Exec(
				`UPDATE sessions SET receipt_pending=FALSE, updated_at=NOW() WHERE tx_hash=$1 AND receipt_pending`,
				row.TxHash); err != nil {
				log.Printf("[SETTLE-CHECK] Failed to confirm %s: %v", row.TxHash, err)
				continue
			}
			log.Printf("[SETTLE-CHECK] Confirmed %d session(s) on tx %s", row.Count, row.TxHash)
		case failed:
			// The transaction reverted after provisional acceptance: the
			// debt stands again and the gate re-engages.
			if _, err := db.Exec(
				`UPDATE sessions SET settled=FALSE, receipt_pending=FALSE, tx_hash=NULL, updated_at=NOW()
				 WHERE tx_hash=$1 AND receipt_pending`,
				row.TxHash); err != nil {
				log.Printf("[SETTLE-CHECK] Failed to revert %s: %v", row.TxHash, err)
				continue
			}
			log.Printf("[SETTLE-CHECK] Reverted %d session(s): tx %s failed on chain", row.Count, row.TxHash)
		default:
			log.Printf("[SETTLE-CHECK] Tx %s still pending, will check again later", row.TxHash)
		}
	}
}
