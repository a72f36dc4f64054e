package http

import (
	"net/http"
	"strings"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// Authenticate resolves the bearer token into a domain.Actor. Browsers cannot
// set headers on websocket upgrades, so a token query parameter is accepted too.
func Authenticate(verifier app.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			raw = c.Query("token")
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("missing bearer token"))
			return
		}
		actor, err := verifier.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("invalid or expired token"))
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func actorFrom(c *gin.Context) domain.Actor {
	actor, _ := c.MustGet(actorKey).(domain.Actor)
	return actor
}
