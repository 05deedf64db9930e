package app

import (
	"errors"
	"net/http"

	"github.com/lescriminels/guild/lending"
	"github.com/lescriminels/guild/session"

	"github.com/gin-gonic/gin"
)

const SessionCookie = "guild_session"

const actorKey = "actor"

// AuthRequired resolves the session cookie to an actor and stores it on
// the context. Sessions of deleted users are dropped.
func AuthRequired(sessions *session.Store, svc *lending.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ck, err := c.Request.Cookie(SessionCookie)
		if err != nil || ck.Value == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		sess, err := sessions.Get(c.Request.Context(), ck.Value)
		if errors.Is(err, session.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid session"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, H{"error": "session store unavailable"})
			return
		}

		actor, err := svc.Actor(c.Request.Context(), sess.UserID)
		if lending.IsCode(err, lending.CodeNotFound) {
			_ = sessions.Delete(c.Request.Context(), ck.Value)
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, H{"error": "record store unavailable"})
			return
		}
		c.Set(actorKey, actor)
		c.Set("sessionID", ck.Value)
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		if !actor.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// CurrentActor returns the actor set by AuthRequired.
func CurrentActor(c *gin.Context) (lending.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return lending.Actor{}, false
	}
	actor, ok := v.(lending.Actor)
	return actor, ok
}

// WithActor stores actor on the context. Used by handlers that log a user
// in and by tests.
func WithActor(c *gin.Context, actor lending.Actor) { c.Set(actorKey, actor) }
