package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"carva/internal/auth"
	"carva/internal/domain"
)

const (
	contextUsername = "username"
	contextRole     = "role"

	// tokenQueryParam carries the token on websocket upgrades, where
	// browsers cannot set an Authorization header.
	tokenQueryParam = "access_token"
)

// Auth returns middleware that requires a valid bearer token and stores the
// caller's username and role on the context.
func Auth(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		claims, err := tokens.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(contextUsername, claims.Username)
		c.Set(contextRole, claims.Role)
		c.Next()
	}
}

// CurrentUser returns the caller set by Auth.
func CurrentUser(c *gin.Context) (username string, role domain.Role, ok bool) {
	username = c.GetString(contextUsername)
	if v, exists := c.Get(contextRole); exists {
		role, _ = v.(domain.Role)
	}
	return username, role, username != "" && role != ""
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return c.Query(tokenQueryParam)
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return ""
	}
	return strings.TrimSpace(token)
}
