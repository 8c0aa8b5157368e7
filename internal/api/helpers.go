package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/chat"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/database"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/tasks"
)

const (
	defaultLimit  = 50
	defaultOffset = 0
)

// parseLimitOffset parses limit and offset query params with defaults.
func parseLimitOffset(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", strconv.Itoa(defaultOffset)))
	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = defaultOffset
	}
	return limit, offset
}

// respondError sends a JSON error response.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondServiceError translates service errors to the status taxonomy:
// missing records 404, terminal-task conflicts 409, rejected input 400,
// everything else 500 with the detail kept out of the response body.
func respondServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(c, http.StatusNotFound, "not found")
	case errors.Is(err, tasks.ErrTaskTerminal):
		respondError(c, http.StatusConflict, "task is already terminal")
	case errors.Is(err, chat.ErrEmptyMessage):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, fallback)
	}
}
