package events

import (
	"sync"
	"testing"
	"time"
)

func TestSubscribeReceivesMatchingEvents(t *testing.T) {
	bus := NewEventBus()

	var wg sync.WaitGroup
	wg.Add(1)

	var mu sync.Mutex
	var received []Event
	bus.Subscribe(EventRecalcFinished, func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
		wg.Done()
	})

	bus.PublishRecalcFinished(3)
	bus.PublishError("test", nil) // different type, must not be delivered

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber never received the event")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].Type != EventRecalcFinished {
		t.Errorf("expected %s, got %s", EventRecalcFinished, received[0].Type)
	}
	if received[0].Data["months_recalculated"] != 3 {
		t.Errorf("expected months_recalculated=3, got %v", received[0].Data["months_recalculated"])
	}
	if received[0].Timestamp.IsZero() {
		t.Error("timestamp was not set on publish")
	}
}

func TestSubscribeAllReceivesEveryEvent(t *testing.T) {
	bus := NewEventBus()

	var wg sync.WaitGroup
	wg.Add(2)

	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
		wg.Done()
	})

	bus.PublishRecalcStarted(time.Now(), time.Now())
	bus.PublishRecalcMonthCompleted(time.Now(), "5", "1000")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("all-events subscriber missed events")
	}

	mu.Lock()
	defer mu.Unlock()
	if count != 2 {
		t.Errorf("expected 2 events, got %d", count)
	}
}
