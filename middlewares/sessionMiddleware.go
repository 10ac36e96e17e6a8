package middlewares

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/maintcost_backend/config"
	"github.com/mmdatafocus/maintcost_backend/models"
	"github.com/mmdatafocus/maintcost_backend/utils"
)

const SessionKeyPrefix = "Session:"

// SessionLookup resolves a session token to its user.
type SessionLookup func(ctx context.Context, token string) (models.CurrentUser, bool, error)

// RedisSessionLookup reads the JSON user stored under Session:<token>.
func RedisSessionLookup(ctx context.Context, token string) (models.CurrentUser, bool, error) {
	var user models.CurrentUser
	exists, err := config.GetRedisObject(ctx, SessionKeyPrefix+token, &user)
	return user, exists, err
}

// SessionMiddleware resolves the "token" header into the current user.
// A bearer user already in the context wins.
func SessionMiddleware(lookup SessionLookup) gin.HandlerFunc {
	if lookup == nil {
		lookup = RedisSessionLookup
	}
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		if _, ok := utils.GetCurrentUserFromContext(c.Request.Context()); ok {
			c.Next()
			return
		}
		user, exists, err := lookup(c.Request.Context(), token)
		if err != nil || !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetCurrentUserInContext(ctx, user)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
