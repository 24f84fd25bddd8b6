package statsmodule

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mantonx/sonar/internal/apiroutes"
	"github.com/mantonx/sonar/internal/database"
	"github.com/mantonx/sonar/internal/events"
	"github.com/mantonx/sonar/internal/logger"
	"github.com/mantonx/sonar/internal/modules/modulemanager"
	"github.com/mantonx/sonar/internal/modules/shelfmodule"
)

const (
	ModuleID   = "system.stats"
	ModuleName = "Collection Stats"
)

func init() {
	modulemanager.Register(&Module{})
}

// Module serves collection statistics. All figures derive from the shelf
// snapshot on each request; nothing is cached or persisted.
type Module struct {
	db    *gorm.DB
	shelf *shelfmodule.ShelfManager
}

// NewModule creates a stats module with explicit dependencies, for tests.
func NewModule(db *gorm.DB, eventBus events.EventBus) *Module {
	return &Module{
		db:    db,
		shelf: shelfmodule.NewShelfManager(db, eventBus),
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

// Init initializes the stats module
func (m *Module) Init() error {
	logger.Info("Initializing stats module")
	if m.db == nil {
		m.db = database.GetDB()
	}
	if m.shelf == nil {
		m.shelf = shelfmodule.NewShelfManager(m.db, events.GetGlobalEventBus())
	}
	return nil
}

// RegisterRoutes sets up the stats API endpoints
func (m *Module) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/stats", m.handleStats)
	apiroutes.Register("/api/stats", "GET", "Collection statistics: formats, artists, decades, ratings")
}

func (m *Module) handleStats(c *gin.Context) {
	albums, err := m.shelf.Snapshot(shelfmodule.OwnerID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, Compute(albums))
}
