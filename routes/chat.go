package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"knowledgeagent/internal/chat"
	"knowledgeagent/internal/config"
	"knowledgeagent/internal/embedder"
	"knowledgeagent/internal/extractor"
	"knowledgeagent/internal/models"
	"knowledgeagent/internal/provider"
	"knowledgeagent/internal/telemetry"
	"knowledgeagent/internal/vectorstore"
	"knowledgeagent/middleware"
	"knowledgeagent/utils"
)

// SetupChatRoutes wires POST /api/chat. Every request builds its own
// chat.Deps and chat.PermissionCache — neither is shared across requests.
func SetupChatRoutes(
	router *gin.Engine,
	cfg *config.Config,
	prov provider.Provider,
	emb embedder.Embedder,
	store vectorstore.Store,
	ext *extractor.Extractor,
	agent *chat.Agent,
	metrics *telemetry.Metrics,
) {
	group := router.Group("/api")
	group.Use(middleware.RequireIdentity(cfg))

	group.POST("/chat", func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "invalid chat request body", gin.H{"error": err.Error()})
			return
		}
		if len(req.Messages) == 0 {
			utils.RespondWithBadRequest(c, "messages must not be empty", nil)
			return
		}
		if req.Context.SiteURL == "" {
			utils.RespondWithBadRequest(c, "context.siteUrl is required", nil)
			return
		}

		user, ok := middleware.CurrentUser(c)
		if !ok {
			utils.RespondWithUnauthorized(c, "missing delegated user")
			return
		}

		mode := req.Context.SearchMode
		if mode == "" {
			mode = models.SearchMode(cfg.DefaultSearchMode)
		}
		req.Context.SearchMode = mode

		permissions := chat.NewPermissionCache(prov, user.DelegatedBearer, metrics)
		deps := &chat.Deps{
			Provider:    prov,
			Embedder:    emb,
			Store:       store,
			Extractor:   ext,
			Permissions: permissions,
			Cfg:         cfg,
			Metrics:     metrics,
			User:        user,
			ChatContext: req.Context,
			Token:       user.DelegatedBearer,
		}

		resp, err := agent.Run(c.Request.Context(), deps, req.Messages)
		if err != nil {
			utils.RespondWithInternalError(c, "chat agent failed", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, resp)
	})
}
