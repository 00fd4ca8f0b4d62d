package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arko007/chexray-api/internal/chat"
	"github.com/arko007/chexray-api/internal/config"
	"github.com/arko007/chexray-api/internal/handlers"
	"github.com/arko007/chexray-api/internal/llm/groq"
	"github.com/arko007/chexray-api/internal/metrics"
	"github.com/arko007/chexray-api/internal/model"
	"github.com/arko007/chexray-api/internal/preprocess"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	metrics.Register()

	log.WithField("model", cfg.ModelPath).Info("loading classifier")
	modelServer, err := model.NewServer(cfg.ModelPath, cfg.MetadataPath, cfg.InferenceDevice, cfg.SessionPoolSize)
	if err != nil {
		log.Fatalf("failed to initialize classifier: %v", err)
	}
	defer modelServer.Close()
	metrics.ModelLoaded.Set(1)

	normalizer := preprocess.NewNormalizer(cfg.MaxImageBytes)
	interpreter := groq.NewClient(cfg.GroqAPIKey, cfg.GroqModel, cfg.LLMTimeout)
	orchestrator := chat.NewOrchestrator(normalizer, modelServer, interpreter, cfg.Thresholds())
	handler := handlers.NewHandler(orchestrator, modelServer, cfg.MaxImageBytes)

	log.WithFields(log.Fields{
		"provider": interpreter.SourceName(),
		"llm":      cfg.GroqModel,
	}).Info("interpretation provider configured")

	router := gin.Default()
	router.Use(corsMiddleware(cfg.AllowedOrigins))

	router.GET("/health", handler.Health)
	router.HEAD("/health", handler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/chat", handler.Chat)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")
	metrics.ModelLoaded.Set(0)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Info("server exited")
}

func corsMiddleware(allowedOrigins string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
