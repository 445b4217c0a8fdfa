package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/gridstake/backend/internal/admin"
	"github.com/gridstake/backend/internal/config"
	"github.com/gridstake/backend/internal/economics"
	"github.com/gridstake/backend/internal/ledger"
	"github.com/gridstake/backend/internal/models"
	"github.com/gridstake/backend/internal/settlement"
)

// OpenSession handles POST /api/v1/session. Opens a new ledger row for
// the address unless the play gate blocks it.
func OpenSession(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Address string `json:"address" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "address is required"})
			return
		}
		address := normalizeAddress(req.Address)
		if address == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
			return
		}

		session, gate, err := ledger.Open(db, address, cfg.DebtThreshold)
		if err != nil {
			log.Printf("[SESSION] Failed to open session for %s: %v", address, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open session"})
			return
		}
		if gate != nil {
			c.JSON(http.StatusConflict, gin.H{
				"error":     "unsettled sessions outstanding",
				"required":  gate.Required,
				"count":     gate.Count,
				"threshold": gate.Threshold,
			})
			return
		}

		token, err := issueSessionToken(cfg.JWTSecret, address, session.ID)
		if err != nil {
			log.Printf("[SESSION] Failed to sign token for %s: %v", address, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open session"})
			return
		}

		log.Printf("[SESSION] Opened session %d for %s", session.ID, address)
		c.JSON(http.StatusCreated, gin.H{
			"id":      session.ID,
			"token":   token,
			"session": session,
		})
	}
}

// CheckSession handles GET /api/v1/session/check. Reports whether the
// address may open a new session.
func CheckSession(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		address := normalizeAddress(c.Query("address"))
		if address == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
			return
		}

		gate, err := ledger.CheckGate(db, address, cfg.DebtThreshold)
		if err != nil {
			log.Printf("[SESSION] Gate check failed for %s: %v", address, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "gate check failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"required":  gate.Required,
			"count":     gate.Count,
			"threshold": gate.Threshold,
		})
	}
}

// UpdateSession handles PUT /api/v1/session/:id. Records a result
// and/or settles the session. Callers authenticate with the session
// token issued at open, or with the admin override key.
func UpdateSession(db *sqlx.DB, rdb *redis.Client, cfg *config.Config, calc *economics.Calculator, verifier *settlement.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
			return
		}

		var req struct {
			Result  *string `json:"result"`
			Settled *bool   `json:"settled"`
			TxHash  *string `json:"tx_hash"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		session, err := ledger.Get(db, id)
		if err == ledger.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		if err != nil {
			log.Printf("[SESSION] Failed to load session %d: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
			return
		}

		isAdmin := admin.VerifyOverrideKey(cfg.AdminKeyHash, c.GetHeader("X-Admin-Key"))
		if !isAdmin {
			token := bearerToken(c.GetHeader("Authorization"))
			addr, sid, err := verifySessionToken(cfg.JWTSecret, token)
			if err != nil || sid != session.ID || addr != session.Address {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
		}

		if req.Result != nil {
			switch *req.Result {
			case "win", "loss", "draw":
			default:
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid result"})
				return
			}
			session, err = ledger.SetResult(db, id, *req.Result)
			if err != nil {
				if err == ledger.ErrResultSet {
					c.JSON(http.StatusConflict, gin.H{"error": "result already recorded"})
					return
				}
				log.Printf("[SESSION] Failed to set result on %d: %v", id, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record result"})
				return
			}
			log.Printf("[SESSION] Session %d result=%s", id, *req.Result)
		}

		if req.Settled != nil && *req.Settled {
			txHash := ""
			if req.TxHash != nil {
				txHash = *req.TxHash
			}
			switch settleDisposition(session, isAdmin, txHash) {
			case settleUnverified:
				session, err = ledger.MarkSettledUnverified(db, id)
				if err != nil {
					log.Printf("[SESSION] Failed to settle %d: %v", id, err)
					c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to settle"})
					return
				}
				log.Printf("[SESSION] Session %d settled (unverified path, admin=%v)", id, isAdmin)
			case settleRejectMissingTx:
				c.JSON(http.StatusBadRequest, gin.H{"error": "tx_hash is required to settle"})
				return
			case settleVerify:
				result, err := settlement.Complete(c.Request.Context(), db, calc, verifier, session.Address, []int{id}, txHash)
				if err != nil {
					writeSettlementError(c, id, err)
					return
				}
				log.Printf("[SESSION] Session %d settled via tx %s (pending=%v)", id, result.TxHash, result.Pending)
			}
		}

		session, err = ledger.Get(db, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": session})
	}
}

type settleMode int

const (
	// settleUnverified marks the row settled without touching the chain:
	// wins and draws, rows already settled (idempotent replay), and the
	// admin override. The mark is always written.
	settleUnverified settleMode = iota
	// settleRejectMissingTx is live debt with no transaction to verify.
	settleRejectMissingTx
	// settleVerify is live debt that must pass chain verification.
	settleVerify
)

// settleDisposition decides how a settle request applies to a row. Only
// unrecorded live debt goes through the chain verifier; everything else
// settles trivially.
func settleDisposition(s *models.GameSession, isAdmin bool, txHash string) settleMode {
	if !ledger.NeedsVerification(s) {
		return settleUnverified
	}
	if isAdmin && txHash == "" {
		return settleUnverified
	}
	if txHash == "" {
		return settleRejectMissingTx
	}
	return settleVerify
}
