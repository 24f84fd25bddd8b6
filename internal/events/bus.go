package events

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// eventBus implements the EventBus interface
type eventBus struct {
	config  EventBusConfig
	logger  EventLogger
	storage EventStorage
	metrics EventMetrics

	mu            sync.RWMutex
	subscriptions map[string]*Subscription
	eventChannel  chan Event
	running       bool
	stopCh        chan struct{}
	wg            sync.WaitGroup

	// Last events kept in memory for stats and storage-less operation
	recentEvents []Event
	eventStats   EventStats
}

const recentEventBuffer = 100

// NewEventBus creates a new event bus instance
func NewEventBus(config EventBusConfig, logger EventLogger, storage EventStorage, metrics EventMetrics) EventBus {
	return &eventBus{
		config:        config,
		logger:        logger,
		storage:       storage,
		metrics:       metrics,
		subscriptions: make(map[string]*Subscription),
		eventChannel:  make(chan Event, config.BufferSize),
		recentEvents:  make([]Event, 0, recentEventBuffer),
		stopCh:        make(chan struct{}),
	}
}

// Start starts the event bus
func (eb *eventBus) Start(ctx context.Context) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.running {
		return fmt.Errorf("event bus is already running")
	}

	eb.running = true
	eb.stopCh = make(chan struct{})

	eb.wg.Add(1)
	go eb.processEvents(ctx)

	if eb.config.EnablePersistence && eb.config.MaxEventAge > 0 {
		eb.wg.Add(1)
		go eb.cleanupEvents(ctx)
	}

	eb.logger.Info("Event bus started", "buffer_size", eb.config.BufferSize)
	return nil
}

// Stop stops the event bus gracefully
func (eb *eventBus) Stop(ctx context.Context) error {
	eb.mu.Lock()
	if !eb.running {
		eb.mu.Unlock()
		return nil
	}
	eb.running = false
	eb.mu.Unlock()

	// The publish channel is never closed. A publisher that passed the
	// running check may still be sending; the processor drains what made it
	// in and later sends simply queue into the abandoned buffer.
	close(eb.stopCh)

	done := make(chan struct{})
	go func() {
		eb.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		eb.logger.Info("Event bus stopped gracefully")
	case <-ctx.Done():
		eb.logger.Warn("Event bus stop timed out")
		return ctx.Err()
	}

	if eb.storage != nil {
		return eb.storage.Close()
	}

	return nil
}

// Publish publishes an event to the event bus
func (eb *eventBus) Publish(ctx context.Context, event Event) error {
	if err := eb.prepare(&event); err != nil {
		return err
	}

	select {
	case eb.eventChannel <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		eb.logger.Warn("Event channel full, dropping event", "event_type", event.Type, "event_id", event.ID)
		return fmt.Errorf("event channel full")
	}
}

// PublishAsync publishes an event asynchronously (non-blocking)
func (eb *eventBus) PublishAsync(event Event) error {
	if err := eb.prepare(&event); err != nil {
		return err
	}

	select {
	case eb.eventChannel <- event:
		return nil
	default:
		eb.logger.Warn("Event channel full, dropping event (async)", "event_type", event.Type, "event_id", event.ID)
		return fmt.Errorf("event channel full")
	}
}

// prepare validates an event and fills defaults before queueing it
func (eb *eventBus) prepare(event *Event) error {
	eb.mu.RLock()
	running := eb.running
	eb.mu.RUnlock()
	if !running {
		return fmt.Errorf("event bus is not running")
	}

	if event.ID == "" {
		event.ID = generateID("evt")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Type == "" {
		return fmt.Errorf("invalid event: event type is required")
	}
	if event.Source == "" {
		return fmt.Errorf("invalid event: event source is required")
	}
	return nil
}

// Subscribe subscribes to events matching the filter
func (eb *eventBus) Subscribe(ctx context.Context, filter EventFilter, handler EventHandler) (*Subscription, error) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subscription := &Subscription{
		ID:         generateID("sub"),
		Filter:     filter,
		Handler:    handler,
		Subscriber: "system",
		Created:    time.Now(),
	}

	eb.subscriptions[subscription.ID] = subscription

	if eb.metrics != nil {
		eb.metrics.RecordSubscription(subscription)
	}

	eb.logger.Debug("New subscription created", "subscription_id", subscription.ID, "types", filter.Types)
	return subscription, nil
}

// Unsubscribe removes a subscription
func (eb *eventBus) Unsubscribe(subscriptionID string) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if _, exists := eb.subscriptions[subscriptionID]; !exists {
		return fmt.Errorf("subscription not found: %s", subscriptionID)
	}

	delete(eb.subscriptions, subscriptionID)

	if eb.metrics != nil {
		eb.metrics.RecordUnsubscription(subscriptionID)
	}

	eb.logger.Debug("Subscription removed", "subscription_id", subscriptionID)
	return nil
}

// GetSubscriptions returns all active subscriptions
func (eb *eventBus) GetSubscriptions() []*Subscription {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	subscriptions := make([]*Subscription, 0, len(eb.subscriptions))
	for _, sub := range eb.subscriptions {
		subscriptions = append(subscriptions, sub)
	}
	return subscriptions
}

// GetEvents returns stored events based on filter and pagination
func (eb *eventBus) GetEvents(filter EventFilter, limit, offset int) ([]Event, int64, error) {
	if eb.storage != nil {
		return eb.storage.Get(context.Background(), filter, limit, offset)
	}

	// Fall back to in-memory events
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	filtered := FilterEvents(eb.recentEvents, filter)

	total := int64(len(filtered))
	start := offset
	end := offset + limit
	if start >= len(filtered) {
		return []Event{}, total, nil
	}
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], total, nil
}

// GetStats returns event bus statistics
func (eb *eventBus) GetStats() EventStats {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.metrics != nil {
		stats := eb.metrics.GetMetrics()
		stats.ActiveSubscriptions = len(eb.subscriptions)
		return stats
	}

	stats := eb.eventStats
	stats.ActiveSubscriptions = len(eb.subscriptions)
	stats.RecentEvents = eb.recentEvents
	return stats
}

// Health returns the health status of the event bus
func (eb *eventBus) Health() error {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if !eb.running {
		return fmt.Errorf("event bus is not running")
	}

	channelUsage := float64(len(eb.eventChannel)) / float64(cap(eb.eventChannel))
	if channelUsage > 0.9 {
		return fmt.Errorf("event channel is %d%% full", int(channelUsage*100))
	}

	return nil
}

// processEvents processes events from the channel
func (eb *eventBus) processEvents(ctx context.Context) {
	defer eb.wg.Done()

	for {
		select {
		case <-eb.stopCh:
			eb.drainEvents()
			eb.logger.Debug("Event processor stopping")
			return
		case <-ctx.Done():
			eb.logger.Debug("Event processor stopping due to context cancellation")
			return
		case event := <-eb.eventChannel:
			eb.handleEvent(event)
		}
	}
}

// drainEvents handles whatever was queued before the stop signal.
func (eb *eventBus) drainEvents() {
	for {
		select {
		case event := <-eb.eventChannel:
			eb.handleEvent(event)
		default:
			return
		}
	}
}

// handleEvent processes a single event
func (eb *eventBus) handleEvent(event Event) {
	eb.logger.Debug("Processing event", "type", event.Type, "id", event.ID, "source", event.Source)

	if eb.config.EnablePersistence && eb.storage != nil {
		if err := eb.storage.Store(context.Background(), event); err != nil {
			eb.logger.Error("Failed to store event", "error", err, "event_id", event.ID)
		}
	}

	eb.mu.Lock()
	eb.recentEvents = append(eb.recentEvents, event)
	if len(eb.recentEvents) > recentEventBuffer {
		eb.recentEvents = eb.recentEvents[1:]
	}

	eb.eventStats.TotalEvents++
	if eb.eventStats.EventsByType == nil {
		eb.eventStats.EventsByType = make(map[string]int64)
	}
	eb.eventStats.EventsByType[string(event.Type)]++
	if eb.eventStats.EventsBySource == nil {
		eb.eventStats.EventsBySource = make(map[string]int64)
	}
	eb.eventStats.EventsBySource[event.Source]++

	var matching []*Subscription
	for _, sub := range eb.subscriptions {
		if MatchesFilter(event, sub.Filter) {
			matching = append(matching, sub)
		}
	}
	eb.mu.Unlock()

	if eb.metrics != nil {
		eb.metrics.RecordEvent(event)
	}

	for _, sub := range matching {
		eb.notifySubscriber(sub, event)
	}
}

// notifySubscriber notifies a subscriber about an event
func (eb *eventBus) notifySubscriber(subscription *Subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			eb.logger.Error("Panic in event handler", "subscription_id", subscription.ID, "error", r, "event_id", event.ID)
		}
	}()

	if err := subscription.Handler(event); err != nil {
		eb.logger.Error("Event handler error", "subscription_id", subscription.ID, "error", err, "event_id", event.ID)
		return
	}

	eb.mu.Lock()
	subscription.TriggerCount++
	now := time.Now()
	subscription.LastTriggered = &now
	eb.mu.Unlock()
}

// cleanupEvents removes old events periodically
func (eb *eventBus) cleanupEvents(ctx context.Context) {
	defer eb.wg.Done()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-eb.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if eb.storage != nil {
				if err := eb.storage.Delete(ctx, eb.config.MaxEventAge); err != nil {
					eb.logger.Error("Failed to cleanup old events", "error", err)
				} else {
					eb.logger.Debug("Cleaned up old events", "max_age", eb.config.MaxEventAge)
				}
			}
		}
	}
}

// generateID generates a unique prefixed ID
func generateID(prefix string) string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(bytes))
}
