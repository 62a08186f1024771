package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"marketplace-service/internal/auth"
	"marketplace-service/internal/service"
	"marketplace-service/internal/util"

	"github.com/gin-gonic/gin"
)

const actorContextKey = "actor"

// AuthMiddleware validates the bearer token and stores the actor on the
// request context
func AuthMiddleware(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Missing bearer token",
			})
			return
		}

		claims, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid or expired token",
			})
			return
		}

		c.Set(actorContextKey, service.Actor{
			ID:   claims.ActorID,
			Type: claims.ActorType,
			Role: claims.Role,
		})
		c.Next()
	}
}

// requireActorType rejects requests whose actor is not one of the given
// types
func requireActorType(types ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFromContext(c)
		for _, t := range types {
			if actor.Type == t {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Not permitted for this account type",
		})
	}
}

func actorFromContext(c *gin.Context) service.Actor {
	if v, ok := c.Get(actorContextKey); ok {
		if actor, ok := v.(service.Actor); ok {
			return actor
		}
	}
	return service.Actor{}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
