package shelfmodule

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mantonx/sonar/internal/events"
	"github.com/mantonx/sonar/internal/logger"
)

// ErrAlbumNotFound is returned when an album id does not exist for the
// requesting owner.
var ErrAlbumNotFound = errors.New("album not found")

// ShelfManager owns all reads and writes of the albums table. Every
// record leaving the manager is normalized; every mutation publishes a
// shelf event so snapshot subscribers can refresh.
type ShelfManager struct {
	db       *gorm.DB
	eventBus events.EventBus
}

// NewShelfManager creates a shelf manager.
func NewShelfManager(db *gorm.DB, eventBus events.EventBus) *ShelfManager {
	return &ShelfManager{
		db:       db,
		eventBus: eventBus,
	}
}

// Snapshot returns the owner's full shelf, normalized, newest first by
// addedAt. View derivation and ordering work from this slice.
func (m *ShelfManager) Snapshot(ownerID string) ([]Album, error) {
	var albums []Album
	if err := m.db.Where("owner_id = ?", ownerID).
		Order("added_at DESC").
		Find(&albums).Error; err != nil {
		return nil, fmt.Errorf("failed to load shelf: %w", err)
	}
	for i := range albums {
		NormalizeAlbum(&albums[i])
	}
	return albums, nil
}

// Get returns a single album by id, scoped to the owner.
func (m *ShelfManager) Get(ownerID, albumID string) (*Album, error) {
	var album Album
	err := m.db.Where("id = ? AND owner_id = ?", albumID, ownerID).First(&album).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAlbumNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load album: %w", err)
	}
	NormalizeAlbum(&album)
	return &album, nil
}

// Create stores a new album for the owner. The store assigns the id and
// the addedAt timestamp; callers cannot supply either.
func (m *ShelfManager) Create(ownerID string, album *Album) (*Album, error) {
	if album.Title == "" {
		return nil, errors.New("album title is required")
	}

	album.ID = uuid.New().String()
	album.OwnerID = ownerID
	album.AddedAt = nowMillis()
	album.CustomOrder = nil
	NormalizeAlbum(album)

	if err := m.db.Create(album).Error; err != nil {
		return nil, fmt.Errorf("failed to create album: %w", err)
	}

	logger.Info("Album added: %s by %s (owner %s)", album.Title, album.PrimaryArtist(), ownerID)
	m.publishShelfEvent(events.EventShelfAlbumCreated, ownerID, "album created")
	return album, nil
}

// Update applies a partial edit to an album. Only fields set in the
// update are touched; addedAt is immutable after creation.
func (m *ShelfManager) Update(ownerID, albumID string, update *AlbumUpdate) (*Album, error) {
	album, err := m.Get(ownerID, albumID)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		album.Title = *update.Title
	}
	if update.Artists != nil {
		album.Artists = *update.Artists
	}
	if update.Formats != nil {
		album.Formats = *update.Formats
	}
	if update.Genres != nil {
		album.Genres = *update.Genres
	}
	if update.ReleaseDate != nil {
		album.ReleaseDate = *update.ReleaseDate
	}
	if update.Status != nil {
		album.Status = *update.Status
	}
	if update.Rating != nil {
		album.Rating = *update.Rating
	}
	if update.CoverURL != nil {
		album.CoverURL = *update.CoverURL
	}
	if update.Notes != nil {
		album.Notes = *update.Notes
	}
	NormalizeAlbum(album)

	if album.Title == "" {
		return nil, errors.New("album title is required")
	}

	if err := m.db.Save(album).Error; err != nil {
		return nil, fmt.Errorf("failed to update album: %w", err)
	}

	m.publishShelfEvent(events.EventShelfAlbumUpdated, ownerID, "album updated")
	return album, nil
}

// Delete removes an album. Listen history referencing the album is kept;
// entries carry their own title and artist snapshots and stay renderable
// after the album is gone.
func (m *ShelfManager) Delete(ownerID, albumID string) error {
	result := m.db.Where("id = ? AND owner_id = ?", albumID, ownerID).Delete(&Album{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete album: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlbumNotFound
	}

	m.publishShelfEvent(events.EventShelfAlbumDeleted, ownerID, "album deleted")
	return nil
}

// Reorder moves an album to targetIndex within the owner's custom-ordered
// shelf and persists the single changed customOrder key. When neighbor
// keys are too close to bisect, the whole shelf is renumbered once and
// the move retried.
func (m *ShelfManager) Reorder(ownerID, albumID string, targetIndex int) (*Album, error) {
	ordered, err := m.orderedShelf(ownerID)
	if err != nil {
		return nil, err
	}
	if !containsID(ordered, albumID) {
		return nil, ErrAlbumNotFound
	}

	key, err := ComputeOrder(ordered, albumID, targetIndex)
	if errors.Is(err, ErrNoMove) {
		return m.Get(ownerID, albumID)
	}
	if errors.Is(err, ErrPrecisionExhausted) {
		logger.Warn("Custom order precision exhausted for owner %s, renumbering shelf", ownerID)
		if err := m.RenumberShelf(ownerID); err != nil {
			return nil, err
		}
		if ordered, err = m.orderedShelf(ownerID); err != nil {
			return nil, err
		}
		if key, err = ComputeOrder(ordered, albumID, targetIndex); err != nil {
			return nil, fmt.Errorf("reorder failed after renumbering: %w", err)
		}
	} else if err != nil {
		return nil, err
	}

	if err := m.setCustomOrder(ownerID, albumID, key); err != nil {
		return nil, err
	}

	m.publishShelfEvent(events.EventShelfReordered, ownerID, "album reordered")
	return m.Get(ownerID, albumID)
}

// setCustomOrder writes exactly one column of one row. The single-field
// write is the point of the fractional key scheme.
func (m *ShelfManager) setCustomOrder(ownerID, albumID string, key float64) error {
	result := m.db.Model(&Album{}).
		Where("id = ? AND owner_id = ?", albumID, ownerID).
		Update("custom_order", key)
	if result.Error != nil {
		return fmt.Errorf("failed to persist custom order: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlbumNotFound
	}
	return nil
}

// RenumberShelf reassigns every album's customOrder to integer multiples
// of OrderGap in the current effective order, restoring full midpoint
// headroom between all neighbors.
func (m *ShelfManager) RenumberShelf(ownerID string) error {
	ordered, err := m.orderedShelf(ownerID)
	if err != nil {
		return err
	}

	keys := RenumberKeys(len(ordered))
	err = m.db.Transaction(func(tx *gorm.DB) error {
		for i := range ordered {
			if err := tx.Model(&Album{}).
				Where("id = ?", ordered[i].ID).
				Update("custom_order", keys[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to renumber shelf: %w", err)
	}

	logger.Info("Renumbered %d albums for owner %s", len(ordered), ownerID)
	m.publishShelfEvent(events.EventShelfRenumbered, ownerID, "shelf renumbered")
	return nil
}

// orderedShelf returns the shelf sorted by effective custom order.
func (m *ShelfManager) orderedShelf(ownerID string) ([]Album, error) {
	albums, err := m.Snapshot(ownerID)
	if err != nil {
		return nil, err
	}
	sortAlbums(albums, SortCustom)
	return albums, nil
}

func containsID(albums []Album, id string) bool {
	for i := range albums {
		if albums[i].ID == id {
			return true
		}
	}
	return false
}

func (m *ShelfManager) publishShelfEvent(eventType events.EventType, ownerID, reason string) {
	if m.eventBus == nil {
		return
	}
	var count int64
	m.db.Model(&Album{}).Where("owner_id = ?", ownerID).Count(&count)

	event := events.NewShelfEvent(eventType, ownerID, "Shelf changed", reason)
	event.Data["owner_id"] = ownerID
	event.Data["album_count"] = int(count)
	event.Data["reason"] = reason
	m.eventBus.PublishAsync(event)
}
