package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// StoredEvent is the database representation of an Event
type StoredEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   string    `gorm:"uniqueIndex;not null" json:"event_id"`
	Type      string    `gorm:"not null;index" json:"type"`
	Source    string    `gorm:"not null;index" json:"source"`
	Target    string    `gorm:"index" json:"target"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Data      string    `gorm:"type:text" json:"data"` // JSON-encoded event data
	Priority  int       `gorm:"not null" json:"priority"`
	Tags      string    `gorm:"type:text" json:"tags"` // JSON-encoded tags
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName returns the table name for StoredEvent
func (StoredEvent) TableName() string {
	return "system_events"
}

// ToEvent converts a StoredEvent to an Event
func (se *StoredEvent) ToEvent() (Event, error) {
	event := Event{
		ID:        se.EventID,
		Type:      EventType(se.Type),
		Source:    se.Source,
		Target:    se.Target,
		Title:     se.Title,
		Message:   se.Message,
		Priority:  EventPriority(se.Priority),
		Timestamp: se.CreatedAt,
	}

	if se.Data != "" {
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(se.Data), &data); err != nil {
			return event, fmt.Errorf("failed to unmarshal event data: %w", err)
		}
		event.Data = data
	} else {
		event.Data = make(map[string]interface{})
	}

	if se.Tags != "" {
		var tags []string
		if err := json.Unmarshal([]byte(se.Tags), &tags); err != nil {
			return event, fmt.Errorf("failed to unmarshal event tags: %w", err)
		}
		event.Tags = tags
	} else {
		event.Tags = []string{}
	}

	return event, nil
}

// FromEvent populates a StoredEvent from an Event
func (se *StoredEvent) FromEvent(event Event) error {
	se.EventID = event.ID
	se.Type = string(event.Type)
	se.Source = event.Source
	se.Target = event.Target
	se.Title = event.Title
	se.Message = event.Message
	se.Priority = int(event.Priority)
	se.CreatedAt = event.Timestamp

	if event.Data != nil {
		dataBytes, err := json.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal event data: %w", err)
		}
		se.Data = string(dataBytes)
	}

	if event.Tags != nil {
		tagBytes, err := json.Marshal(event.Tags)
		if err != nil {
			return fmt.Errorf("failed to marshal event tags: %w", err)
		}
		se.Tags = string(tagBytes)
	}

	return nil
}

// databaseEventStorage implements EventStorage backed by gorm
type databaseEventStorage struct {
	db *gorm.DB
}

// NewDatabaseEventStorage creates a gorm-backed event storage. The caller
// is responsible for having run the StoredEvent migration.
func NewDatabaseEventStorage(db *gorm.DB) EventStorage {
	return &databaseEventStorage{db: db}
}

// Migrate runs the schema migration for event storage
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&StoredEvent{})
}

// Store stores an event
func (s *databaseEventStorage) Store(ctx context.Context, event Event) error {
	var stored StoredEvent
	if err := stored.FromEvent(event); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(&stored).Error
}

// Get retrieves events based on filter
func (s *databaseEventStorage) Get(ctx context.Context, filter EventFilter, limit, offset int) ([]Event, int64, error) {
	query := s.db.WithContext(ctx).Model(&StoredEvent{})

	if len(filter.Types) > 0 {
		types := make([]string, 0, len(filter.Types))
		for _, t := range filter.Types {
			types = append(types, string(t))
		}
		query = query.Where("type IN ?", types)
	}
	if len(filter.Sources) > 0 {
		query = query.Where("source IN ?", filter.Sources)
	}
	if len(filter.Targets) > 0 {
		query = query.Where("target IN ?", filter.Targets)
	}
	if filter.Priority != nil {
		query = query.Where("priority >= ?", int(*filter.Priority))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	var stored []StoredEvent
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&stored).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to query events: %w", err)
	}

	result := make([]Event, 0, len(stored))
	for i := range stored {
		event, err := stored[i].ToEvent()
		if err != nil {
			// A single corrupt row must not hide the rest
			continue
		}
		result = append(result, event)
	}

	return result, total, nil
}

// Delete removes events older than the specified duration
func (s *databaseEventStorage) Delete(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	return s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&StoredEvent{}).Error
}

// Count returns the total number of stored events
func (s *databaseEventStorage) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&StoredEvent{}).Count(&count).Error
	return count, err
}

// Close closes the storage
func (s *databaseEventStorage) Close() error {
	// Connection lifecycle belongs to the database package
	return nil
}
