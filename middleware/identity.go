package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"knowledgeagent/internal/config"
	"knowledgeagent/internal/identity"
	"knowledgeagent/internal/models"
)

const contextKeyUser = "delegated_user"

// RequireIdentity reads the upstream gateway's trusted identity headers off
// the request and the delegated bearer token from Authorization, and
// stores both as a models.DelegatedUser in context. Signature verification
// already happened upstream; this middleware only extracts and passes
// through, never validates.
func RequireIdentity(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(cfg.UserIDHeader)
		userName := c.GetHeader(cfg.UserNameHeader)
		userEmail := c.GetHeader(cfg.UserEmailHeader)
		bearer := extractBearer(c.GetHeader("Authorization"))

		if userID == "" || bearer == "" {
			if assertion := bearer; assertion != "" {
				if claims, err := identity.ParseUnverified(assertion); err == nil {
					if userID == "" {
						userID = claims.OID
					}
					if userName == "" {
						userName = claims.Name
					}
					if userEmail == "" {
						userEmail = claims.Email
					}
				}
			}
		}

		if userID == "" || bearer == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error_code": "unauthorized",
				"message":    "missing identity headers or delegated bearer token",
			})
			c.Abort()
			return
		}

		c.Set(contextKeyUser, models.DelegatedUser{
			ID:              userID,
			Name:            userName,
			Email:           userEmail,
			DelegatedBearer: bearer,
		})
		c.Next()
	}
}

// CurrentUser retrieves the DelegatedUser set by RequireIdentity.
func CurrentUser(c *gin.Context) (models.DelegatedUser, bool) {
	v, exists := c.Get(contextKeyUser)
	if !exists {
		return models.DelegatedUser{}, false
	}
	user, ok := v.(models.DelegatedUser)
	return user, ok
}

func extractBearer(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}
