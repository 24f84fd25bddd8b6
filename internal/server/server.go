package server

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/mantonx/sonar/internal/database"
	"github.com/mantonx/sonar/internal/events"
	"github.com/mantonx/sonar/internal/logger"
	"github.com/mantonx/sonar/internal/modules/modulemanager"

	// Import all modules to trigger their registration
	_ "github.com/mantonx/sonar/internal/modules/catalogmodule"
	_ "github.com/mantonx/sonar/internal/modules/historymodule"
	_ "github.com/mantonx/sonar/internal/modules/publicmodule"
	_ "github.com/mantonx/sonar/internal/modules/shelfmodule"
	_ "github.com/mantonx/sonar/internal/modules/statsmodule"
)

var systemEventBus events.EventBus
var moduleInitialized bool

// SetupRouter configures and returns the main router
func SetupRouter() *gin.Engine {
	r := gin.Default()

	r.Use(corsMiddleware())

	if err := initializeEventBus(); err != nil {
		log.Printf("Failed to initialize event bus: %v", err)
	}

	if err := initializeModules(); err != nil {
		log.Printf("Failed to initialize modules: %v", err)
	}

	setupRoutes(r)
	modulemanager.RegisterRoutes(r)

	return r
}

// corsMiddleware allows browser clients on other origins during development
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Sonar-User")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// initializeEventBus sets up the system-wide event bus
func initializeEventBus() error {
	config := events.DefaultEventBusConfig()

	db := database.GetDB()
	if err := events.Migrate(db); err != nil {
		return err
	}
	storage := events.NewDatabaseEventStorage(db)
	metrics := events.NewBasicEventMetrics()

	systemEventBus = events.NewEventBus(config, &eventLogger{}, storage, metrics)

	ctx := context.Background()
	if err := systemEventBus.Start(ctx); err != nil {
		return err
	}

	events.SetGlobalEventBus(systemEventBus)
	log.Printf("✅ Event bus initialized and started")

	startupEvent := events.NewSystemEvent(
		events.EventSystemStarted,
		"System Started",
		"Sonar backend system has started successfully",
	)
	return systemEventBus.PublishAsync(startupEvent)
}

// initializeModules sets up the module system and loads all modules
func initializeModules() error {
	if moduleInitialized {
		return nil
	}

	db := database.GetDB()

	if err := modulemanager.LoadAll(db); err != nil {
		return err
	}

	moduleInitialized = true
	logModuleStatus()
	return nil
}

// logModuleStatus logs the loaded modules
func logModuleStatus() {
	modules := modulemanager.ListModules()

	log.Printf("✅ Module system initialized with %d modules", len(modules))

	log.Printf("┌────────────────────────────────────────────────────────────────┐")
	log.Printf("│ %-20s │ %-25s │ %-8s │", "MODULE NAME", "MODULE ID", "CORE")
	log.Printf("├────────────────────────────────────────────────────────────────┤")

	for _, module := range modules {
		coreStatus := "No"
		if module.Core() {
			coreStatus = "Yes"
		}
		log.Printf("│ %-20s │ %-25s │ %-8s │",
			truncate(module.Name(), 20),
			truncate(module.ID(), 25),
			coreStatus)
	}

	log.Printf("└────────────────────────────────────────────────────────────────┘")
}

// truncate shortens a string to the given length, adding ... if needed
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// GetEventBus returns the global event bus instance
func GetEventBus() events.EventBus {
	return systemEventBus
}

// ShutdownEventBus gracefully shuts down the event bus
func ShutdownEventBus() error {
	if systemEventBus == nil {
		return nil
	}

	shutdownEvent := events.NewSystemEvent(
		events.EventSystemStopped,
		"System Stopped",
		"Sonar backend system is shutting down",
	)
	ctx := context.Background()
	if err := systemEventBus.Publish(ctx, shutdownEvent); err != nil {
		logger.Warn("Failed to publish shutdown event: %v", err)
	}

	return systemEventBus.Stop(ctx)
}

// eventLogger adapts the application logger to the event bus. The bus
// logs hclog-style key-value pairs, so it delegates to a named sub-logger
// rather than the printf helpers.
type eventLogger struct{}

func (l *eventLogger) Debug(msg string, fields ...interface{}) {
	logger.Named("events").Debug(msg, fields...)
}

func (l *eventLogger) Info(msg string, fields ...interface{}) {
	logger.Named("events").Info(msg, fields...)
}

func (l *eventLogger) Warn(msg string, fields ...interface{}) {
	logger.Named("events").Warn(msg, fields...)
}

func (l *eventLogger) Error(msg string, fields ...interface{}) {
	logger.Named("events").Error(msg, fields...)
}
