package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/gridstake/backend/internal/economics"
	"github.com/gridstake/backend/internal/settlement"
)

// GetOutstanding handles GET /api/v1/settlement/outstanding. Returns
// the sessions the address still owes for and a priced payment quote.
func GetOutstanding(db *sqlx.DB, calc *economics.Calculator, verifier *settlement.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		address := normalizeAddress(c.Query("address"))
		if address == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
			return
		}

		quote, err := settlement.Quote(c.Request.Context(), db, calc, verifier, address)
		if err != nil {
			log.Printf("[SETTLE] Quote failed for %s: %v", address, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build quote"})
			return
		}

		c.JSON(http.StatusOK, quote)
	}
}

// CompleteSettlement handles POST /api/v1/settlement/complete. Verifies
// the supplied transaction against chain state and marks the sessions
// settled.
func CompleteSettlement(db *sqlx.DB, calc *economics.Calculator, verifier *settlement.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Address    string `json:"address" binding:"required"`
			SessionIDs []int  `json:"sessionIds" binding:"required"`
			TxHash     string `json:"txHash" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "address, sessionIds and txHash are required"})
			return
		}
		address := normalizeAddress(req.Address)
		if address == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
			return
		}

		result, err := settlement.Complete(c.Request.Context(), db, calc, verifier, address, req.SessionIDs, req.TxHash)
		if err != nil {
			writeSettlementError(c, 0, err)
			return
		}

		log.Printf("[SETTLE] %s settled %d sessions via tx %s (pending=%v)", address, len(result.SettledIDs), result.TxHash, result.Pending)
		c.JSON(http.StatusOK, gin.H{
			"settledIds": result.SettledIDs,
			"txHash":     result.TxHash,
			"pending":    result.Pending,
		})
	}
}

// writeSettlementError maps settlement failures onto HTTP responses.
func writeSettlementError(c *gin.Context, sessionID int, err error) {
	switch {
	case errors.Is(err, settlement.ErrTxVerificationFailed):
		c.JSON(http.StatusBadRequest, gin.H{"error": "tx_verification_failed"})
	case errors.Is(err, settlement.ErrTxLookupFailed):
		c.JSON(http.StatusNotFound, gin.H{"error": "tx_lookup_failed"})
	case errors.Is(err, settlement.ErrNotConfigured):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "settlement is not configured"})
	default:
		log.Printf("[SETTLE] Settlement failed (session=%d): %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "settlement failed"})
	}
}
