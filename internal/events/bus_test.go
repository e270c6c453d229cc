package events

import (
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan CaptureFaultEvent, 1)

	unsub := bus.Subscribe(func(e CaptureFaultEvent) {
		received <- e
	})
	defer unsub()

	event := CaptureFaultEvent{
		Stage:     "transfer",
		Error:     "chunk timeout",
		Seq:       42,
		Timestamp: "2025-01-27T10:30:00Z",
	}
	bus.Publish(event)

	got := <-received
	if got.Stage != event.Stage {
		t.Errorf("Expected stage %s, got %s", event.Stage, got.Stage)
	}
	if got.Seq != event.Seq {
		t.Errorf("Expected seq %d, got %d", event.Seq, got.Seq)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan StatsSnapshotEvent, 1)
	received2 := make(chan StatsSnapshotEvent, 1)

	unsub1 := bus.Subscribe(func(e StatsSnapshotEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e StatsSnapshotEvent) {
		received2 <- e
	})
	defer unsub2()

	bus.Publish(StatsSnapshotEvent{Captured: 10, Pushed: 9})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan PipelineStateEvent, 1)

	unsub := bus.Subscribe(func(e PipelineStateEvent) {
		received <- e
	})

	bus.Publish(PipelineStateEvent{State: "running"})
	<-received

	unsub()

	bus.Publish(PipelineStateEvent{State: "faulted"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected - no event
	}
}

func TestBus_UnknownHandlerIsNoOp(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(int) {})
	if unsub == nil {
		t.Fatal("Subscribe must always return an unsubscribe func")
	}
	unsub()
}
