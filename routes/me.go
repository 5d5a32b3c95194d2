package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"knowledgeagent/internal/config"
	"knowledgeagent/internal/provider"
	"knowledgeagent/middleware"
	"knowledgeagent/utils"
)

// SetupMeRoutes wires GET /api/me: the delegated user's directory profile,
// fetched live under their own credential rather than echoed from the
// trusted-upstream identity headers.
func SetupMeRoutes(router *gin.Engine, cfg *config.Config, prov provider.Provider) {
	group := router.Group("/api")
	group.Use(middleware.RequireIdentity(cfg))

	group.GET("/me", func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			utils.RespondWithUnauthorized(c, "missing delegated user")
			return
		}

		profile, err := prov.GetUserProfile(c.Request.Context(), user.DelegatedBearer)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{
				"id":    user.ID,
				"name":  user.Name,
				"email": user.Email,
			})
			return
		}

		c.JSON(http.StatusOK, profile)
	})
}
