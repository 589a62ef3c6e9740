package events

import (
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan GroupRestartedEvent, 1)

	unsub := bus.Subscribe(func(e GroupRestartedEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(GroupRestartedEvent{GroupID: "track.mp3:128k", Restarts: 2, ExitCode: 1})

	select {
	case got := <-received:
		if got.GroupID != "track.mp3:128k" || got.Restarts != 2 {
			t.Errorf("unexpected event: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("event never delivered")
	}
}

func TestBusMultipleSubscribers(t *testing.T) {
	bus := New()
	received1 := make(chan GroupStateChangedEvent, 1)
	received2 := make(chan GroupStateChangedEvent, 1)

	unsub1 := bus.Subscribe(func(e GroupStateChangedEvent) { received1 <- e })
	defer unsub1()
	unsub2 := bus.Subscribe(func(e GroupStateChangedEvent) { received2 <- e })
	defer unsub2()

	bus.Publish(GroupStateChangedEvent{GroupID: "g", NewState: "running"})

	for i, ch := range []chan GroupStateChangedEvent{received1, received2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received event", i+1)
		}
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := New()
	received := make(chan ConfigReloadedEvent, 2)

	unsub := bus.Subscribe(func(e ConfigReloadedEvent) { received <- e })

	bus.Publish(ConfigReloadedEvent{Path: "endpoints.toml"})
	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("event never delivered")
	}

	unsub()
	bus.Publish(ConfigReloadedEvent{Path: "endpoints.toml"})

	select {
	case <-received:
		t.Error("received event after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBusUnknownHandlerIsNoop(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(int) {})
	unsub()
}
