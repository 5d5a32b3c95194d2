package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"knowledgeagent/internal/audit"
	"knowledgeagent/internal/config"
	"knowledgeagent/internal/identity"
	"knowledgeagent/internal/indexer"
	"knowledgeagent/internal/models"
	"knowledgeagent/internal/provider"
	"knowledgeagent/middleware"
	"knowledgeagent/utils"
)

// SetupAdminRoutes wires the knowledge-indexer admin surface: manual
// trigger, no-embeddings test run, candidate preview, index stats, and run
// history.
func SetupAdminRoutes(
	router *gin.Engine,
	cfg *config.Config,
	scheduler *indexer.Scheduler,
	prov provider.Provider,
	exchanger *identity.Exchanger,
	auditLog *audit.Log,
) {
	group := router.Group("/api/admin/knowledge-indexer")
	group.Use(middleware.RequireIdentity(cfg))

	group.POST("/run", func(c *gin.Context) {
		opts := parseRunOptions(c, "manual-run")
		user, _ := middleware.CurrentUser(c)

		result, err := scheduler.TriggerManual(c.Request.Context(), opts)
		if err != nil {
			utils.RespondWithInternalError(c, "failed to trigger indexer run", gin.H{"error": err.Error()})
			return
		}
		if auditLog != nil {
			auditLog.RecordAction(c.Request.Context(), "knowledge-indexer-run", user.ID, user.Name, opts.SiteURL)
		}
		c.JSON(http.StatusOK, result)
	})

	group.POST("/test", func(c *gin.Context) {
		opts := parseRunOptions(c, "manual-test")
		opts.SkipEmbeddings = true
		user, _ := middleware.CurrentUser(c)

		result, err := scheduler.TriggerManual(c.Request.Context(), opts)
		if err != nil {
			utils.RespondWithInternalError(c, "failed to trigger indexer test run", gin.H{"error": err.Error()})
			return
		}
		if auditLog != nil {
			auditLog.RecordAction(c.Request.Context(), "knowledge-indexer-test", user.ID, user.Name, opts.SiteURL)
		}
		c.JSON(http.StatusOK, result)
	})

	group.GET("/preview", func(c *gin.Context) {
		siteURL := c.Query("siteUrl")
		days, _ := strconv.Atoi(c.Query("days"))
		limit, _ := strconv.Atoi(c.Query("limit"))
		if limit <= 0 {
			limit = 25
		}

		var token string
		if exchanger != nil {
			var err error
			token, err = exchanger.AppOnlyToken(c.Request.Context())
			if err != nil {
				utils.RespondWithInternalError(c, "failed to acquire app-only token", gin.H{"error": err.Error()})
				return
			}
		}

		docs, err := prov.Search(c.Request.Context(), token, provider.SearchRequest{SiteURL: siteURL, DaysBack: days})
		if err != nil {
			utils.RespondWithInternalError(c, "failed to preview indexer candidates", gin.H{"error": err.Error()})
			return
		}
		if len(docs) > limit {
			docs = docs[:limit]
		}

		c.JSON(http.StatusOK, gin.H{"candidates": docs, "count": len(docs)})
	})

	group.GET("/stats", func(c *gin.Context) {
		stats, err := scheduler.StoreStats(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "failed to fetch index stats", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	group.GET("/history", func(c *gin.Context) {
		if auditLog == nil {
			c.JSON(http.StatusOK, gin.H{"runs": []models.IndexerRunRecord{}})
			return
		}

		limit, _ := strconv.ParseInt(c.Query("limit"), 10, 64)
		if limit <= 0 {
			limit = 20
		}

		runs, err := auditLog.RecentRuns(c.Request.Context(), limit)
		if err != nil {
			utils.RespondWithInternalError(c, "failed to fetch indexer run history", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"runs": runs})
	})
}

func parseRunOptions(c *gin.Context, trigger string) models.IndexerRunOptions {
	days, _ := strconv.Atoi(c.Query("days"))
	return models.IndexerRunOptions{
		SiteURL:  c.Query("siteUrl"),
		DaysBack: days,
		Trigger:  trigger,
	}
}
