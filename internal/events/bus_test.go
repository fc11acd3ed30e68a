package events

import (
	"testing"
	"time"
)

func TestBusPublishToOrgSubscribers(t *testing.T) {
	bus := NewBus()

	ch, cancel := bus.Subscribe("org-1")
	defer cancel()

	otherCh, otherCancel := bus.Subscribe("org-2")
	defer otherCancel()

	bus.Publish(Envelope{OrgID: "org-1", Topic: TopicAppointmentsReloaded})

	select {
	case env := <-ch:
		if env.Topic != TopicAppointmentsReloaded {
			t.Errorf("unexpected topic %s", env.Topic)
		}
	case <-time.After(time.Second):
		t.Fatal("expected envelope for org-1 subscriber")
	}

	select {
	case <-otherCh:
		t.Fatal("org-2 subscriber must not see org-1 events")
	default:
	}
}

func TestBusCancelClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe("org-1")

	cancel()
	if _, open := <-ch; open {
		t.Error("expected channel closed after cancel")
	}
	if got := bus.SubscriberCount("org-1"); got != 0 {
		t.Errorf("expected 0 subscribers, got %d", got)
	}

	// double cancel is a no-op
	cancel()
}

func TestBusFullSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus()
	_, cancel := bus.Subscribe("org-1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(Envelope{OrgID: "org-1", Topic: TopicAppointmentsUpserted})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestBusNilSafePublish(t *testing.T) {
	var bus *Bus
	bus.Publish(Envelope{OrgID: "org-1"})
}
