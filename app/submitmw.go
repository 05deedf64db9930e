package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// GuardDoubleSubmit rejects a repeat of the same write by the same actor
// within window. Upload forms are prone to double clicks, and each
// duplicate would store an attachment only to have it refused. With a nil
// client the guard is disabled.
func GuardDoubleSubmit(rdb *redis.Client, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if rdb == nil || !ok {
			c.Next()
			return
		}
		key := "guild:submit:" + actor.UserID + ":" + c.Request.Method + ":" + c.Request.URL.Path
		first, err := rdb.SetNX(c.Request.Context(), key, "1", window).Result()
		if err == nil && !first {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, H{"error": "duplicate submission"})
			return
		}
		// a redis failure must not block the request
		c.Next()
	}
}
