package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"knowledgeagent/internal/audit"
	"knowledgeagent/internal/chat"
	"knowledgeagent/internal/config"
	"knowledgeagent/internal/embedder"
	"knowledgeagent/internal/extractor"
	"knowledgeagent/internal/identity"
	"knowledgeagent/internal/indexer"
	"knowledgeagent/internal/logger"
	"knowledgeagent/internal/provider"
	"knowledgeagent/internal/telemetry"
	"knowledgeagent/internal/vectorstore"
	"knowledgeagent/middleware"
	"knowledgeagent/routes"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer("knowledgeagent")
	if err != nil {
		log.Fatal("Failed to init tracer:", err)
	}
	defer shutdownTracer()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to init metrics:", err)
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	redisClient, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	exchanger := identity.NewExchanger(cfg, redisClient)
	auditLog := audit.New(mongoClient, cfg.DBName)

	provClient := provider.NewClient(cfg, exchanger, metrics)
	embClient, err := embedder.New(context.Background(), cfg, metrics)
	if err != nil {
		log.Fatal("Failed to init embedder:", err)
	}
	storeClient := vectorstore.NewClient(cfg, metrics)
	if err := storeClient.EnsureSchema(context.Background()); err != nil {
		log.Fatal("Failed to ensure vector store schema:", err)
	}
	extractorClient := extractor.New(metrics)

	pipeline := indexer.New(cfg, provClient, extractorClient, embClient, storeClient, exchanger, metrics)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	scheduler := indexer.NewScheduler(cfg, pipeline, auditLog, redisOpt)
	if err := scheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start indexer scheduler:", err)
	}
	defer scheduler.Stop()

	llmClient, err := chat.NewClient(context.Background(), cfg, metrics)
	if err != nil {
		log.Fatal("Failed to init chat llm client:", err)
	}
	agent := chat.NewAgent(llmClient, metrics)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":           "healthy",
			"timestamp":        time.Now(),
			"indexerRunning":   scheduler.IsRunning(),
			"indexerScheduled": cfg.KnowledgeIndexerEnabled,
			"circuitBreakers": gin.H{
				"documentProvider": provClient.BreakerState(),
				"embedder":         embClient.BreakerState(),
				"vectorStore":      storeClient.BreakerState(),
				"chatLLM":          llmClient.BreakerState(),
			},
		})
	})

	routes.SetupMeRoutes(router, cfg, provClient)
	routes.SetupChatRoutes(router, cfg, provClient, embClient, storeClient, extractorClient, agent, metrics)
	routes.SetupAdminRoutes(router, cfg, scheduler, provClient, exchanger, auditLog)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
