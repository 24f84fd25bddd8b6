package historymodule

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mantonx/sonar/internal/apiroutes"
	"github.com/mantonx/sonar/internal/config"
	"github.com/mantonx/sonar/internal/database"
	"github.com/mantonx/sonar/internal/events"
	"github.com/mantonx/sonar/internal/logger"
	"github.com/mantonx/sonar/internal/modules/modulemanager"
	"github.com/mantonx/sonar/internal/modules/shelfmodule"
)

const (
	ModuleID   = "system.history"
	ModuleName = "Listen History"
)

func init() {
	modulemanager.Register(&Module{})
}

// Module owns the listen log.
type Module struct {
	db      *gorm.DB
	manager *HistoryManager
}

// NewModule creates a history module with explicit dependencies, for tests.
func NewModule(db *gorm.DB, eventBus events.EventBus) *Module {
	return &Module{
		db:      db,
		manager: NewHistoryManager(db, eventBus),
	}
}

// ID returns the module ID
func (m *Module) ID() string {
	return ModuleID
}

// Name returns the module name
func (m *Module) Name() string {
	return ModuleName
}

// Core returns whether this is a core module
func (m *Module) Core() bool {
	return true
}

// Migrate runs database migrations
func (m *Module) Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&shelfmodule.HistoryEntry{})
}

// Init initializes the history module
func (m *Module) Init() error {
	logger.Info("Initializing history module")
	if m.db == nil {
		m.db = database.GetDB()
	}
	if m.manager == nil {
		m.manager = NewHistoryManager(m.db, events.GetGlobalEventBus())
	}
	return nil
}

// Manager exposes the history manager to sibling modules.
func (m *Module) Manager() *HistoryManager {
	return m.manager
}

// RegisterRoutes sets up the history API endpoints
func (m *Module) RegisterRoutes(router *gin.Engine) {
	history := router.Group("/api/history")
	{
		history.GET("", m.handleRecent)
		history.POST("", m.handleLogListen)
		history.GET("/album/:albumId", m.handleForAlbum)
		history.DELETE("/:id", m.handleDeleteEntry)
	}

	apiroutes.Register("/api/history", "GET", "List recent listens, newest first")
	apiroutes.Register("/api/history", "POST", "Log a listen of an album")
	apiroutes.Register("/api/history/album/:albumId", "GET", "List all listens of one album")
	apiroutes.Register("/api/history/:id", "DELETE", "Delete a listen entry and recompute lastListened")
}

func (m *Module) handleRecent(c *gin.Context) {
	limit := config.Get().History.DefaultLimit
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	entries, err := m.manager.Recent(shelfmodule.OwnerID(c), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

type logListenRequest struct {
	AlbumID    string `json:"albumId" binding:"required"`
	ListenedAt int64  `json:"listenedAt"`
	Note       string `json:"note"`
}

func (m *Module) handleLogListen(c *gin.Context) {
	var req logListenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "albumId is required"})
		return
	}

	entry, err := m.manager.LogListen(shelfmodule.OwnerID(c), req.AlbumID, req.ListenedAt, req.Note)
	if errors.Is(err, shelfmodule.ErrAlbumNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "album not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (m *Module) handleForAlbum(c *gin.Context) {
	entries, err := m.manager.ForAlbum(shelfmodule.OwnerID(c), c.Param("albumId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

func (m *Module) handleDeleteEntry(c *gin.Context) {
	err := m.manager.DeleteEntry(shelfmodule.OwnerID(c), c.Param("id"))
	if errors.Is(err, ErrEntryNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "history entry not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "history entry deleted"})
}
