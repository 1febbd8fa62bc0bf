package api

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// In-memory session tokens. A restart logs everyone out, which is acceptable
// for a research tool; anything multi-node would move this into the database.
var (
	tokenMu sync.RWMutex
	tokens  = make(map[string]int64)
)

func issueToken(userID int64) string {
	token := uuid.NewString()
	tokenMu.Lock()
	tokens[token] = userID
	tokenMu.Unlock()
	return token
}

func lookupToken(token string) (int64, bool) {
	tokenMu.RLock()
	defer tokenMu.RUnlock()
	userID, ok := tokens[token]
	return userID, ok
}

// AuthMiddleware guards the backtest endpoints with a bearer token issued at
// login.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		userID, ok := lookupToken(token)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
