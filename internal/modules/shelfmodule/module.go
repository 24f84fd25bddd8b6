package shelfmodule

import (
	"gorm.io/gorm"

	"github.com/mantonx/sonar/internal/database"
	"github.com/mantonx/sonar/internal/events"
	"github.com/mantonx/sonar/internal/logger"
	"github.com/mantonx/sonar/internal/modules/modulemanager"
)

const (
	ModuleID   = "system.shelf"
	ModuleName = "Shelf Manager"
)

func init() {
	modulemanager.Register(&Module{})
}

// Module owns the album shelf: the collection store, the view pipeline
// and manual ordering.
type Module struct {
	db      *gorm.DB
	manager *ShelfManager
}

// NewModule creates a shelf module with explicit dependencies, for tests.
func NewModule(db *gorm.DB, eventBus events.EventBus) *Module {
	return &Module{
		db:      db,
		manager: NewShelfManager(db, eventBus),
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

// Migrate runs database migrations and the one-time legacy field pass.
func (m *Module) Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Album{}, &HistoryEntry{}); err != nil {
		return err
	}
	return MigrateLegacyFields(db)
}

// Init initializes the shelf module
func (m *Module) Init() error {
	logger.Info("Initializing shelf module")
	if m.db == nil {
		m.db = database.GetDB()
	}
	if m.manager == nil {
		m.manager = NewShelfManager(m.db, events.GetGlobalEventBus())
	}
	return nil
}

// Manager exposes the shelf manager to sibling modules.
func (m *Module) Manager() *ShelfManager {
	return m.manager
}
