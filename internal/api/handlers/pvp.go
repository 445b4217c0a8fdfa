package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/gridstake/backend/internal/pvp"
	"github.com/gridstake/backend/internal/ws"
)

// CreateMatch handles POST /api/v1/pvp/create.
func CreateMatch(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Address string `json:"address"`
			Size    int    `json:"size"`
			Misere  bool   `json:"misere"`
			Blitz   string `json:"blitz"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		creator := ""
		if req.Address != "" {
			creator = normalizeAddress(req.Address)
			if creator == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
				return
			}
		}
		if req.Size == 0 {
			req.Size = 3
		}

		match, err := pvp.Create(db, creator, req.Size, req.Misere, req.Blitz)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"match": match})
	}
}

// JoinMatch handles POST /api/v1/pvp/join.
func JoinMatch(db *sqlx.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ID      int    `json:"id" binding:"required"`
			Address string `json:"address" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id and address are required"})
			return
		}
		address := normalizeAddress(req.Address)
		if address == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
			return
		}

		match, err := pvp.Join(db, req.ID, address)
		if err != nil {
			writePvpError(c, err)
			return
		}

		ws.PublishMatchUpdate(c.Request.Context(), rdb, match)
		c.JSON(http.StatusOK, gin.H{"match": match})
	}
}

// MoveMatch handles POST /api/v1/pvp/move.
func MoveMatch(db *sqlx.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ID      int    `json:"id" binding:"required"`
			Address string `json:"address" binding:"required"`
			Index   *int   `json:"index" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id, address and index are required"})
			return
		}
		address := normalizeAddress(req.Address)
		if address == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
			return
		}

		match, err := pvp.Move(db, req.ID, address, *req.Index)
		if err != nil {
			writePvpError(c, err)
			return
		}

		ws.PublishMatchUpdate(c.Request.Context(), rdb, match)
		c.JSON(http.StatusOK, gin.H{"match": match})
	}
}

// GetMatch handles GET /api/v1/pvp/:id. The read applies lazy blitz
// forfeits, so a poll alone is enough to finalize a stalled match.
func GetMatch(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match id"})
			return
		}

		match, err := pvp.Get(db, id)
		if err != nil {
			writePvpError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"match": match})
	}
}

// WatchMatch handles GET /api/v1/pvp/:id/ws, a read-only stream of
// match updates.
func WatchMatch(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := ws.ParseMatchID(c.Param("id"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match id"})
			return
		}
		if _, err := pvp.Get(db, id); err != nil {
			writePvpError(c, err)
			return
		}
		ws.ServeMatchWatch(c.Writer, c.Request, id)
	}
}

func writePvpError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pvp.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
	case errors.Is(err, pvp.ErrSeatTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "match already has two players"})
	case errors.Is(err, pvp.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "match changed, re-read and retry"})
	case errors.Is(err, pvp.ErrNotSeated),
		errors.Is(err, pvp.ErrMatchNotActive),
		errors.Is(err, pvp.ErrNotYourTurn),
		errors.Is(err, pvp.ErrCellOccupied):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("[PVP] Request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
