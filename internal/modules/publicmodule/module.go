package publicmodule

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mantonx/sonar/internal/apiroutes"
	"github.com/mantonx/sonar/internal/config"
	"github.com/mantonx/sonar/internal/database"
	"github.com/mantonx/sonar/internal/events"
	"github.com/mantonx/sonar/internal/logger"
	"github.com/mantonx/sonar/internal/modules/modulemanager"
	"github.com/mantonx/sonar/internal/modules/shelfmodule"
	"github.com/mantonx/sonar/internal/modules/statsmodule"
)

const (
	ModuleID   = "system.public"
	ModuleName = "Public Shelf"
)

func init() {
	modulemanager.Register(&Module{})
}

// Module serves read-only shelf views to anonymous visitors. Snapshots
// are cached per owner with a TTL, invalidated by shelf events, and
// pushed live to websocket viewers.
type Module struct {
	db       *gorm.DB
	shelf    *shelfmodule.ShelfManager
	cache    *ShelfCache
	hub      *Hub
	eventBus events.EventBus
	sub      *events.Subscription
}

// NewModule creates a public module with explicit dependencies, for tests.
func NewModule(db *gorm.DB, eventBus events.EventBus, cache *ShelfCache) *Module {
	return &Module{
		db:       db,
		shelf:    shelfmodule.NewShelfManager(db, eventBus),
		cache:    cache,
		hub:      NewHub(),
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
	return nil
}

// Init wires the cache, hub and event subscription.
func (m *Module) Init() error {
	logger.Info("Initializing public shelf module")

	if m.db == nil {
		m.db = database.GetDB()
	}
	if m.shelf == nil {
		m.shelf = shelfmodule.NewShelfManager(m.db, events.GetGlobalEventBus())
	}
	if m.cache == nil {
		cfg := config.Get().PublicShelf
		m.cache = NewShelfCache(cfg.CacheTTL, cfg.MaxCachedOwners)
	}
	if m.hub == nil {
		m.hub = NewHub()
	}
	if m.eventBus == nil {
		m.eventBus = events.GetGlobalEventBus()
	}

	return m.subscribeShelfEvents()
}

// subscribeShelfEvents invalidates the cache and refreshes websocket
// viewers whenever a shelf mutation fires.
func (m *Module) subscribeShelfEvents() error {
	if m.eventBus == nil {
		return nil
	}

	filter := events.EventFilter{
		Types: []events.EventType{
			events.EventShelfAlbumCreated,
			events.EventShelfAlbumUpdated,
			events.EventShelfAlbumDeleted,
			events.EventShelfReordered,
			events.EventShelfRenumbered,
			events.EventListenLogged,
			events.EventHistoryEntryDeleted,
		},
	}

	sub, err := m.eventBus.Subscribe(context.Background(), filter, m.onShelfEvent)
	if err != nil {
		return err
	}
	m.sub = sub
	return nil
}

func (m *Module) onShelfEvent(event events.Event) error {
	ownerID := event.Target
	if ownerID == "" {
		return nil
	}

	m.cache.Invalidate(ownerID)

	if m.hub.ViewerCount(ownerID) == 0 {
		return nil
	}

	albums, err := m.loadShelf(ownerID)
	if err != nil {
		logger.Error("Failed to refresh public shelf for owner %s: %v", ownerID, err)
		return err
	}
	m.hub.BroadcastShelf(ownerID, albums)
	return nil
}

// loadShelf returns the owner's shelf, serving from cache when fresh.
func (m *Module) loadShelf(ownerID string) ([]shelfmodule.Album, error) {
	if albums, ok := m.cache.Get(ownerID); ok {
		return albums, nil
	}
	albums, err := m.shelf.Snapshot(ownerID)
	if err != nil {
		return nil, err
	}
	m.cache.Put(ownerID, albums)
	return albums, nil
}

// RegisterRoutes sets up the public shelf endpoints
func (m *Module) RegisterRoutes(router *gin.Engine) {
	public := router.Group("/api/public/:owner")
	{
		public.GET("/shelf", m.handlePublicShelf)
		public.GET("/shelf/ws", m.handlePublicShelfSocket)
		public.GET("/stats", m.handlePublicStats)
		public.GET("/cache", m.handlePublicCacheStats)
	}

	apiroutes.Register("/api/public/:owner/shelf", "GET", "Read-only view of an owner's shelf")
	apiroutes.Register("/api/public/:owner/shelf/ws", "GET", "Live shelf updates over websocket")
	apiroutes.Register("/api/public/:owner/stats", "GET", "Collection statistics for an owner's public shelf")
	apiroutes.Register("/api/public/:owner/cache", "GET", "Cache and viewer counters for debugging")
}

func (m *Module) handlePublicShelf(c *gin.Context) {
	ownerID := c.Param("owner")

	albums, err := m.loadShelf(ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	params := shelfmodule.ViewParamsFromQuery(c)
	view, err := shelfmodule.DeriveView(albums, params)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ownerId": ownerID, "view": view})
}

func (m *Module) handlePublicShelfSocket(c *gin.Context) {
	ownerID := c.Param("owner")

	albums, err := m.loadShelf(ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := m.hub.Serve(c.Writer, c.Request, ownerID, albums); err != nil {
		logger.Error("Websocket upgrade failed for owner %s: %v", ownerID, err)
	}
}

func (m *Module) handlePublicStats(c *gin.Context) {
	ownerID := c.Param("owner")

	albums, err := m.loadShelf(ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ownerId": ownerID,
		"stats":   statsmodule.Compute(albums),
	})
}

func (m *Module) handlePublicCacheStats(c *gin.Context) {
	hits, misses := m.cache.Stats()
	c.JSON(http.StatusOK, gin.H{
		"ownerId": c.Param("owner"),
		"viewers": m.hub.ViewerCount(c.Param("owner")),
		"cache": gin.H{
			"entries": m.cache.Len(),
			"hits":    hits,
			"misses":  misses,
		},
	})
}
