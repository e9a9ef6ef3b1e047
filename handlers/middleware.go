package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TokenHeader carries the session token on every authorized request.
const TokenHeader = "X-Token"

// ctxUserID is the gin context key holding the resolved user id.
const ctxUserID = "userID"

// Sessions is the session-store surface the handlers need.
type Sessions interface {
	Set(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error
	Get(ctx context.Context, token string) (uuid.UUID, error)
	Delete(ctx context.Context, token string) error
	Alive() bool
}

// RequireAuth resolves the request token to a user id and aborts with 401
// otherwise. A missing header, an unknown token, and an expired one all
// produce the same response; callers learn nothing about why.
func RequireAuth(sessions Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := resolveUser(c, sessions)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(ctxUserID, userID)
		c.Next()
	}
}

// resolveUser resolves the request token without aborting, for endpoints
// where authentication is optional.
func resolveUser(c *gin.Context, sessions Sessions) (uuid.UUID, bool) {
	token := c.GetHeader(TokenHeader)
	if token == "" {
		return uuid.Nil, false
	}
	userID, err := sessions.Get(c.Request.Context(), token)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

// currentUser returns the user id stored by RequireAuth.
func currentUser(c *gin.Context) uuid.UUID {
	return c.MustGet(ctxUserID).(uuid.UUID)
}
