package pipeline

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	b := NewBus()
	ch1, cancel1 := b.Subscribe()
	defer cancel1()
	ch2, cancel2 := b.Subscribe()
	defer cancel2()

	b.Publish(EventTaskCreated, map[string]string{"id": "t1"})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != EventTaskCreated {
				t.Errorf("Type = %q", ev.Type)
			}
			var data map[string]string
			if err := json.Unmarshal(ev.Data, &data); err != nil {
				t.Fatalf("Data: %v", err)
			}
			if data["id"] != "t1" {
				t.Errorf("Data = %v", data)
			}
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe()
	cancel()

	b.Publish(EventTaskDeleted, nil)

	select {
	case ev := <-ch:
		t.Errorf("received %q after unsubscribe", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBusDropsForSlowSubscriber(t *testing.T) {
	b := NewBus()
	slow, cancelSlow := b.Subscribe()
	defer cancelSlow()

	// Overfill the slow subscriber's buffer; Publish must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(slow)+16; i++ {
			b.Publish(EventStateChanged, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on slow subscriber")
	}
}

func TestBusEventIDsAreUnique(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe()
	defer cancel()

	const n = 10
	for i := 0; i < n; i++ {
		b.Publish(EventTaskUpdated, i)
	}

	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		ev := <-ch
		if seen[ev.ID] {
			t.Fatalf("duplicate event id %q", ev.ID)
		}
		seen[ev.ID] = true
	}
}
