package events

import (
	"context"
	"time"
)

// EventBus defines the interface for the event bus system
type EventBus interface {
	// Publish publishes an event to the event bus
	Publish(ctx context.Context, event Event) error

	// PublishAsync publishes an event asynchronously (non-blocking)
	PublishAsync(event Event) error

	// Subscribe subscribes to events matching the filter
	Subscribe(ctx context.Context, filter EventFilter, handler EventHandler) (*Subscription, error)

	// Unsubscribe removes a subscription
	Unsubscribe(subscriptionID string) error

	// GetSubscriptions returns all active subscriptions
	GetSubscriptions() []*Subscription

	// GetEvents returns stored events based on filter and pagination
	GetEvents(filter EventFilter, limit, offset int) ([]Event, int64, error)

	// GetStats returns event bus statistics
	GetStats() EventStats

	// Start starts the event bus
	Start(ctx context.Context) error

	// Stop stops the event bus gracefully
	Stop(ctx context.Context) error

	// Health returns the health status of the event bus
	Health() error
}

// EventLogger defines the logging interface for events
type EventLogger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// EventStorage defines the interface for persisting events
type EventStorage interface {
	// Store stores an event
	Store(ctx context.Context, event Event) error

	// Get retrieves events based on filter
	Get(ctx context.Context, filter EventFilter, limit, offset int) ([]Event, int64, error)

	// Delete removes events older than the specified duration
	Delete(ctx context.Context, olderThan time.Duration) error

	// Count returns the total number of stored events
	Count(ctx context.Context) (int64, error)

	// Close closes the storage
	Close() error
}

// EventMetrics defines the interface for event metrics collection
type EventMetrics interface {
	// RecordEvent records an event for metrics
	RecordEvent(event Event)

	// RecordSubscription records a subscription event
	RecordSubscription(subscription *Subscription)

	// RecordUnsubscription records an unsubscription event
	RecordUnsubscription(subscriptionID string)

	// GetMetrics returns current metrics
	GetMetrics() EventStats
}

// NewEvent creates a new event with default values
func NewEvent(eventType EventType, source string, title string, message string) Event {
	return Event{
		Type:      eventType,
		Source:    source,
		Title:     title,
		Message:   message,
		Data:      make(map[string]interface{}),
		Priority:  PriorityNormal,
		Tags:      []string{},
		Timestamp: time.Now(),
	}
}

// NewSystemEvent creates a system event
func NewSystemEvent(eventType EventType, title string, message string) Event {
	return NewEvent(eventType, "system", title, message)
}

// NewShelfEvent creates an event scoped to a shelf owner. The owner id is
// carried as the event target so subscribers can filter per shelf.
func NewShelfEvent(eventType EventType, ownerID string, title string, message string) Event {
	event := NewEvent(eventType, "module:shelf", title, message)
	event.Target = ownerID
	return event
}

// MatchesFilter checks if an event matches the given filter
func MatchesFilter(event Event, filter EventFilter) bool {
	if len(filter.Types) > 0 {
		found := false
		for _, t := range filter.Types {
			if event.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(filter.Sources) > 0 {
		found := false
		for _, s := range filter.Sources {
			if event.Source == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(filter.Targets) > 0 {
		found := false
		for _, t := range filter.Targets {
			if event.Target == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if filter.Priority != nil && event.Priority < *filter.Priority {
		return false
	}

	return true
}

// FilterEvents filters a slice of events based on the filter
func FilterEvents(events []Event, filter EventFilter) []Event {
	var filtered []Event
	for _, event := range events {
		if MatchesFilter(event, filter) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}
