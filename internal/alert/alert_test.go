package alert

import (
	"testing"
	"time"
)

func TestPostAndActive(t *testing.T) {
	c := NewCenter(0)
	a := c.Post("Property updated successfully", Success)
	if a.Title == "" || a.Severity != Success {
		t.Fatalf("unexpected alert %+v", a)
	}
	if got := len(c.Active()); got != 1 {
		t.Fatalf("active = %d, want 1", got)
	}
	c.Dismiss(a.ID)
	if got := len(c.Active()); got != 0 {
		t.Fatalf("active after dismiss = %d, want 0", got)
	}
	// Dismissing twice is harmless.
	c.Dismiss(a.ID)
}

func TestSubscribeReceivesLifecycle(t *testing.T) {
	c := NewCenter(0)
	ch, cancel := c.Subscribe(4)
	defer cancel()

	a := c.Post("Failed to update property", Danger)
	evt := <-ch
	if evt.Kind != "posted" || evt.Alert.ID != a.ID {
		t.Fatalf("unexpected event %+v", evt)
	}

	c.Dismiss(a.ID)
	evt = <-ch
	if evt.Kind != "dismissed" {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestAutoDismiss(t *testing.T) {
	c := NewCenter(10 * time.Millisecond)
	ch, cancel := c.Subscribe(4)
	defer cancel()

	c.Post("transient", Info)
	<-ch // posted

	select {
	case evt := <-ch:
		if evt.Kind != "dismissed" {
			t.Fatalf("unexpected event %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("alert never auto-dismissed")
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	c := NewCenter(0)
	_, cancel := c.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			c.Post("burst", Info)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publishing blocked on a full subscriber")
	}
}
