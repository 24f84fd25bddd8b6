package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mantonx/sonar/internal/config"
	"github.com/mantonx/sonar/internal/database"
	"github.com/mantonx/sonar/internal/logger"
	"github.com/mantonx/sonar/internal/server"
)

func main() {
	configPath := os.Getenv("SONAR_CONFIG")
	if configPath == "" {
		configPath = "sonar.yaml"
	}
	if err := config.Load(configPath); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := config.Get()
	logger.SetLevel(cfg.Logging.Level)

	stopWatching, err := config.GetConfigManager().WatchForChanges()
	if err != nil {
		logger.Warn("Config hot reload unavailable: %v", err)
	} else {
		defer stopWatching()
	}

	if err := database.Initialize(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	r := server.SetupRouter()

	port := os.Getenv("PORT")
	if port == "" {
		port = strconv.Itoa(cfg.Server.Port)
	}

	srv := &http.Server{
		Addr:    cfg.Server.Host + ":" + port,
		Handler: r,
	}

	go func() {
		log.Printf("🚀 Starting Sonar server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error: %v", err)
	}
	if err := server.ShutdownEventBus(); err != nil {
		logger.Error("Event bus shutdown error: %v", err)
	}
}
