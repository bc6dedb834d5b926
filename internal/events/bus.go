package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventRecalcStarted        EventType = "RECALC_STARTED"
	EventRecalcMonthCompleted EventType = "RECALC_MONTH_COMPLETED"
	EventRecalcFinished       EventType = "RECALC_FINISHED"
	EventTransactionRecorded  EventType = "TRANSACTION_RECORDED"
	EventTransactionEdited    EventType = "TRANSACTION_EDITED"
	EventTransactionCancelled EventType = "TRANSACTION_CANCELLED"
	EventPlatformUpdated      EventType = "PLATFORM_UPDATED"
	EventWeeksInterpolated    EventType = "WEEKS_INTERPOLATED"
	EventError                EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber // Subscribers to all events
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	// Set timestamp if not provided
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Notify specific subscribers
	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event) // Run in goroutine to avoid blocking
		}
	}

	// Notify all-event subscribers
	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishRecalcStarted publishes a recalculation started event
func (eb *EventBus) PublishRecalcStarted(fromMonth, throughMonth time.Time) {
	eb.Publish(Event{
		Type: EventRecalcStarted,
		Data: map[string]interface{}{
			"from_month":    fromMonth.Format("2006-01"),
			"through_month": throughMonth.Format("2006-01"),
		},
	})
}

// PublishRecalcMonthCompleted publishes a per-month completion event
func (eb *EventBus) PublishRecalcMonthCompleted(month time.Time, returnPct string, totalCorpus string) {
	eb.Publish(Event{
		Type: EventRecalcMonthCompleted,
		Data: map[string]interface{}{
			"month":        month.Format("2006-01"),
			"return_pct":   returnPct,
			"total_corpus": totalCorpus,
		},
	})
}

// PublishRecalcFinished publishes a recalculation finished event
func (eb *EventBus) PublishRecalcFinished(monthsRecalculated int) {
	eb.Publish(Event{
		Type: EventRecalcFinished,
		Data: map[string]interface{}{
			"months_recalculated": monthsRecalculated,
		},
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(source string, err error) {
	data := map[string]interface{}{
		"source": source,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	eb.Publish(Event{
		Type: EventError,
		Data: data,
	})
}
