package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/gridstake/backend/internal/bracket"
)

// CreateBracket handles POST /api/v1/bracket/create.
func CreateBracket(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name         string `json:"name" binding:"required"`
			AdminAddress string `json:"admin_address" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and admin_address are required"})
			return
		}
		adminAddress := normalizeAddress(req.AdminAddress)
		if adminAddress == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid admin address"})
			return
		}

		b, err := bracket.Create(db, req.Name, adminAddress)
		if err != nil {
			log.Printf("[BRACKET] Create failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create bracket"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"bracket": b})
	}
}

// JoinBracket handles POST /api/v1/bracket/join. Seats the address at
// the lowest free seed; the eighth join starts round 1.
func JoinBracket(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			BracketID   int    `json:"bracket_id" binding:"required"`
			Address     string `json:"address" binding:"required"`
			DisplayName string `json:"display_name"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bracket_id and address are required"})
			return
		}
		address := normalizeAddress(req.Address)
		if address == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
			return
		}

		p, err := bracket.Join(db, req.BracketID, address, req.DisplayName)
		if err != nil {
			writeBracketError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"player": p})
	}
}

// ReportBracketMatch handles POST /api/v1/bracket/report.
func ReportBracketMatch(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			MatchID    int `json:"match_id" binding:"required"`
			WinnerSeed int `json:"winner_seed" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "match_id and winner_seed are required"})
			return
		}

		m, err := bracket.Report(db, req.MatchID, req.WinnerSeed)
		if err != nil {
			writeBracketError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"match": m})
	}
}

// GetBracket handles GET /api/v1/bracket/:id, returning the bracket
// with its players and matches.
func GetBracket(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bracket id"})
			return
		}

		b, err := bracket.Get(db, id)
		if err != nil {
			writeBracketError(c, err)
			return
		}
		players, err := bracket.Players(db, id)
		if err != nil {
			log.Printf("[BRACKET] Failed to load players for %d: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load bracket"})
			return
		}
		matches, err := bracket.Matches(db, id)
		if err != nil {
			log.Printf("[BRACKET] Failed to load matches for %d: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load bracket"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"bracket": b,
			"players": players,
			"matches": matches,
		})
	}
}

func writeBracketError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, bracket.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "bracket not found"})
	case errors.Is(err, bracket.ErrMatchNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "bracket match not found"})
	case errors.Is(err, bracket.ErrBracketFull),
		errors.Is(err, bracket.ErrAlreadyJoined),
		errors.Is(err, bracket.ErrMatchDone):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, bracket.ErrInvalidSeed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("[BRACKET] Request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
