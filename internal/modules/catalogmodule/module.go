package catalogmodule

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mantonx/sonar/internal/apiroutes"
	"github.com/mantonx/sonar/internal/config"
	"github.com/mantonx/sonar/internal/database"
	"github.com/mantonx/sonar/internal/events"
	"github.com/mantonx/sonar/internal/logger"
	"github.com/mantonx/sonar/internal/modules/modulemanager"
)

const (
	ModuleID   = "system.catalog"
	ModuleName = "Music Catalog"
)

func init() {
	modulemanager.Register(&Module{})
}

// Module proxies album metadata lookups to the external catalog so the
// add-album flow can prefill title, artists, release date and cover art.
type Module struct {
	db       *gorm.DB
	client   *Client
	eventBus events.EventBus
}

// NewModule creates a catalog module with explicit dependencies, for tests.
func NewModule(db *gorm.DB, client *Client, eventBus events.EventBus) *Module {
	return &Module{
		db:       db,
		client:   client,
		eventBus: eventBus,
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
	return false
}

// Migrate runs database migrations
func (m *Module) Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&CachedResponse{})
}

// Init initializes the catalog module
func (m *Module) Init() error {
	cfg := config.Get().Catalog
	if !cfg.Enabled {
		logger.Info("Catalog module disabled by configuration")
		return nil
	}

	logger.Info("Initializing catalog module (base URL %s)", cfg.BaseURL)
	if m.db == nil {
		m.db = database.GetDB()
	}
	if m.client == nil {
		m.client = NewClient(cfg, NewResponseCache(m.db))
	}
	if m.eventBus == nil {
		m.eventBus = events.GetGlobalEventBus()
	}

	if !m.client.Configured() {
		logger.Warn("Catalog credentials not set, lookups will be rejected")
	}

	if purged, err := NewResponseCache(m.db).PurgeExpired(); err == nil && purged > 0 {
		logger.Info("Purged %d expired catalog cache entries", purged)
	}
	return nil
}

// RegisterRoutes sets up the catalog API endpoints
func (m *Module) RegisterRoutes(router *gin.Engine) {
	catalog := router.Group("/api/catalog")
	{
		catalog.GET("/search", m.handleSearch)
		catalog.GET("/albums/:id", m.handleGetAlbum)
		catalog.POST("/lookup", m.handleLookupURL)
	}

	apiroutes.Register("/api/catalog/search", "GET", "Search the catalog for albums")
	apiroutes.Register("/api/catalog/albums/:id", "GET", "Fetch catalog album metadata by id")
	apiroutes.Register("/api/catalog/lookup", "POST", "Resolve an album share link to metadata")
}

// requireClient rejects lookups when the module is disabled. Routes are
// registered unconditionally, so a disabled module still answers with 503
// instead of dropping the path.
func (m *Module) requireClient(c *gin.Context) bool {
	if m.client == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog lookups are disabled"})
		return false
	}
	return true
}

func (m *Module) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog lookups are not configured"})
	case errors.Is(err, ErrAlbumNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "album not found in catalog"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

func (m *Module) handleSearch(c *gin.Context) {
	if !m.requireClient(c) {
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	results, err := m.client.SearchAlbums(c.Request.Context(), query)
	if err != nil {
		m.respondError(c, err)
		return
	}

	m.publishLookup("search", query)
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

func (m *Module) handleGetAlbum(c *gin.Context) {
	if !m.requireClient(c) {
		return
	}

	album, err := m.client.GetAlbum(c.Request.Context(), c.Param("id"))
	if err != nil {
		m.respondError(c, err)
		return
	}

	m.publishLookup("album", c.Param("id"))
	c.JSON(http.StatusOK, album)
}

type lookupRequest struct {
	URL string `json:"url" binding:"required"`
}

func (m *Module) handleLookupURL(c *gin.Context) {
	if !m.requireClient(c) {
		return
	}

	var req lookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	album, err := m.client.LookupByURL(c.Request.Context(), req.URL)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrAlbumNotFound) {
			m.respondError(c, err)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m.publishLookup("url", req.URL)
	c.JSON(http.StatusOK, album)
}

func (m *Module) publishLookup(kind, subject string) {
	if m.eventBus == nil {
		return
	}
	event := events.NewEvent(events.EventCatalogLookup, "module:catalog", "Catalog lookup", kind)
	event.Data["kind"] = kind
	event.Data["subject"] = subject
	m.eventBus.PublishAsync(event)
}
