// Package events provides the system-wide event bus for Sonar.
// Every shelf mutation ends up here; subscribers (the public shelf hub,
// auditing, metrics) react to the resulting snapshot pushes.
package events

import (
	"time"
)

// EventType represents the type of event
type EventType string

// System-wide event types
const (
	// Shelf events
	EventShelfSnapshot       EventType = "shelf.snapshot"
	EventShelfAlbumCreated   EventType = "shelf.album.created"
	EventShelfAlbumUpdated   EventType = "shelf.album.updated"
	EventShelfAlbumDeleted   EventType = "shelf.album.deleted"
	EventShelfReordered      EventType = "shelf.album.reordered"
	EventShelfRenumbered     EventType = "shelf.renumbered"

	// History events
	EventListenLogged        EventType = "history.listen.logged"
	EventHistoryEntryDeleted EventType = "history.entry.deleted"

	// Catalog events
	EventCatalogLookup EventType = "catalog.lookup"

	// System events
	EventSystemStarted EventType = "system.started"
	EventSystemStopped EventType = "system.stopped"

	// General events
	EventError   EventType = "error"
	EventWarning EventType = "warning"
	EventInfo    EventType = "info"
)

// EventPriority represents the priority level of an event
type EventPriority int

const (
	PriorityLow      EventPriority = 1
	PriorityNormal   EventPriority = 5
	PriorityHigh     EventPriority = 10
	PriorityCritical EventPriority = 20
)

// Event represents a system event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Source    string                 `json:"source"` // system, module:id, owner:id
	Target    string                 `json:"target"` // specific target if applicable
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data"`
	Priority  EventPriority          `json:"priority"`
	Tags      []string               `json:"tags"`
	Timestamp time.Time              `json:"timestamp"`
}

// EventHandler represents a function that handles events
type EventHandler func(event Event) error

// EventFilter represents filters for event subscriptions
type EventFilter struct {
	Types    []EventType    `json:"types,omitempty"`
	Sources  []string       `json:"sources,omitempty"`
	Targets  []string       `json:"targets,omitempty"`
	Priority *EventPriority `json:"priority,omitempty"`
}

// Subscription represents an event subscription
type Subscription struct {
	ID            string       `json:"id"`
	Filter        EventFilter  `json:"filter"`
	Handler       EventHandler `json:"-"`
	Subscriber    string       `json:"subscriber"`
	Created       time.Time    `json:"created"`
	LastTriggered *time.Time   `json:"last_triggered,omitempty"`
	TriggerCount  int64        `json:"trigger_count"`
}

// EventStats represents statistics about events
type EventStats struct {
	TotalEvents         int64            `json:"total_events"`
	EventsByType        map[string]int64 `json:"events_by_type"`
	EventsBySource      map[string]int64 `json:"events_by_source"`
	RecentEvents        []Event          `json:"recent_events"`
	ActiveSubscriptions int              `json:"active_subscriptions"`
}

// EventBusConfig represents configuration for the event bus
type EventBusConfig struct {
	BufferSize        int           `json:"buffer_size"`
	MaxEventAge       time.Duration `json:"max_event_age"`
	EnablePersistence bool          `json:"enable_persistence"`
	EnableMetrics     bool          `json:"enable_metrics"`
}

// DefaultEventBusConfig returns default configuration
func DefaultEventBusConfig() EventBusConfig {
	return EventBusConfig{
		BufferSize:        1000,
		MaxEventAge:       24 * time.Hour,
		EnablePersistence: true,
		EnableMetrics:     true,
	}
}

// ShelfSnapshotData represents data for shelf.snapshot events. The album
// list itself travels out of band (subscribers re-read from the store);
// the event carries only identity and size.
type ShelfSnapshotData struct {
	OwnerID    string `json:"owner_id"`
	AlbumCount int    `json:"album_count"`
	Reason     string `json:"reason"` // created, updated, deleted, reordered, renumbered
}

// ListenLoggedData represents data for history.listen.logged events
type ListenLoggedData struct {
	OwnerID   string `json:"owner_id"`
	AlbumID   string `json:"album_id"`
	EntryID   string `json:"entry_id"`
	Timestamp int64  `json:"timestamp"`
}
