package historymodule

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mantonx/sonar/internal/events"
	"github.com/mantonx/sonar/internal/logger"
	"github.com/mantonx/sonar/internal/modules/shelfmodule"
)

// ErrEntryNotFound is returned when a history entry id does not exist for
// the requesting owner.
var ErrEntryNotFound = errors.New("history entry not found")

// HistoryManager owns the listen log and keeps each album's lastListened
// field consistent with its surviving entries.
type HistoryManager struct {
	db       *gorm.DB
	eventBus events.EventBus
}

// NewHistoryManager creates a history manager.
func NewHistoryManager(db *gorm.DB, eventBus events.EventBus) *HistoryManager {
	return &HistoryManager{
		db:       db,
		eventBus: eventBus,
	}
}

// LogListen records a listen of the album. When listenedAt is zero the
// current time is used. The album's lastListened advances only when the
// new entry is the most recent one, so backdated listens never move it
// backwards.
func (m *HistoryManager) LogListen(ownerID, albumID string, listenedAt int64, note string) (*shelfmodule.HistoryEntry, error) {
	var album shelfmodule.Album
	err := m.db.Where("id = ? AND owner_id = ?", albumID, ownerID).First(&album).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shelfmodule.ErrAlbumNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load album: %w", err)
	}
	shelfmodule.NormalizeAlbum(&album)

	if listenedAt == 0 {
		listenedAt = time.Now().UnixMilli()
	}

	entry := &shelfmodule.HistoryEntry{
		ID:         uuid.New().String(),
		OwnerID:    ownerID,
		AlbumID:    albumID,
		Title:      album.Title,
		Artists:    album.Artists,
		CoverURL:   album.CoverURL,
		ListenedAt: listenedAt,
		Note:       note,
	}

	err = m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		if album.LastListened == nil || listenedAt > *album.LastListened {
			return tx.Model(&shelfmodule.Album{}).
				Where("id = ?", albumID).
				Update("last_listened", listenedAt).Error
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to log listen: %w", err)
	}

	logger.Info("Listen logged for album %s (owner %s)", albumID, ownerID)
	m.publish(events.EventListenLogged, ownerID, album.Title, entry)
	return entry, nil
}

// DeleteEntry removes a history entry and recomputes the album's
// lastListened from the remaining entries, clearing it when none survive.
func (m *HistoryManager) DeleteEntry(ownerID, entryID string) error {
	var entry shelfmodule.HistoryEntry
	err := m.db.Where("id = ? AND owner_id = ?", entryID, ownerID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrEntryNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load history entry: %w", err)
	}

	err = m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&entry).Error; err != nil {
			return err
		}

		var latest shelfmodule.HistoryEntry
		err := tx.Where("album_id = ? AND owner_id = ?", entry.AlbumID, ownerID).
			Order("listened_at DESC").
			First(&latest).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Model(&shelfmodule.Album{}).
				Where("id = ?", entry.AlbumID).
				Update("last_listened", nil).Error
		case err != nil:
			return err
		default:
			return tx.Model(&shelfmodule.Album{}).
				Where("id = ?", entry.AlbumID).
				Update("last_listened", latest.ListenedAt).Error
		}
	})
	if err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}

	m.publish(events.EventHistoryEntryDeleted, ownerID, "", &entry)
	return nil
}

// Recent returns the owner's most recent listens, newest first.
func (m *HistoryManager) Recent(ownerID string, limit int) ([]shelfmodule.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []shelfmodule.HistoryEntry
	err := m.db.Where("owner_id = ?", ownerID).
		Order("listened_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load listen history: %w", err)
	}
	return entries, nil
}

// ForAlbum returns the full listen log of a single album, newest first.
func (m *HistoryManager) ForAlbum(ownerID, albumID string) ([]shelfmodule.HistoryEntry, error) {
	var entries []shelfmodule.HistoryEntry
	err := m.db.Where("owner_id = ? AND album_id = ?", ownerID, albumID).
		Order("listened_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load album history: %w", err)
	}
	return entries, nil
}

func (m *HistoryManager) publish(eventType events.EventType, ownerID, albumTitle string, entry *shelfmodule.HistoryEntry) {
	if m.eventBus == nil {
		return
	}
	event := events.NewShelfEvent(eventType, ownerID, "Listen history changed", albumTitle)
	event.Data["owner_id"] = ownerID
	event.Data["album_id"] = entry.AlbumID
	event.Data["entry_id"] = entry.ID
	event.Data["timestamp"] = entry.ListenedAt
	m.eventBus.PublishAsync(event)
}
