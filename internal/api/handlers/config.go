package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gridstake/backend/internal/config"
	"github.com/gridstake/backend/internal/economics"
	"github.com/gridstake/backend/internal/settlement"
)

// GetConfig handles GET /api/v1/config: the current economics snapshot
// plus the chain parameters clients need to construct payments.
func GetConfig(cfg *config.Config, calc *economics.Calculator, verifier *settlement.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := calc.Quote(c.Request.Context())

		treasury := ""
		var chainID int64
		if verifier != nil {
			treasury = strings.ToLower(verifier.Treasury().Hex())
			chainID = verifier.ChainID()
		}

		c.JSON(http.StatusOK, gin.H{
			"economics":     snap,
			"treasury":      treasury,
			"chainId":       chainID,
			"debtThreshold": cfg.DebtThreshold,
			"chargeWei":     economics.EthToWei(snap.ChargeEth).String(),
		})
	}
}
