package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Counter exposes record counts for the stats endpoint.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Pinger reports database liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AppHandler handles the health endpoints
type AppHandler struct {
	db       Pinger
	sessions Sessions
	users    Counter
	files    Counter
}

// NewAppHandler creates a new app handler
func NewAppHandler(db Pinger, sessions Sessions, users, files Counter) *AppHandler {
	return &AppHandler{
		db:       db,
		sessions: sessions,
		users:    users,
		files:    files,
	}
}

// Status handles GET /status. The field names predate this service and are
// kept for wire compatibility.
func (h *AppHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"redis": h.sessions.Alive(),
		"db":    h.db.Ping(c.Request.Context()) == nil,
	})
}

// Stats handles GET /stats
func (h *AppHandler) Stats(c *gin.Context) {
	users, err := h.users.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	files, err := h.files.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users, "files": files})
}
