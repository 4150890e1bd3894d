package hub

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/evlog/evlog/internal/enrich"
)

func entry(id int64, msg string) enrich.Entry {
	var e enrich.Entry
	e.ID = id
	e.Message = msg
	return e
}

func TestHub_PublishReachesAllSubscribers(t *testing.T) {
	h := New(8)
	a := h.Subscribe()
	b := h.Subscribe()
	t.Cleanup(h.Close)

	h.Publish(entry(1, "hello"))

	for _, sub := range []*Subscriber{a, b} {
		select {
		case e := <-sub.C:
			if e.ID != 1 || e.Message != "hello" {
				t.Fatalf("entry: got %+v", e)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %s did not receive", sub.ID)
		}
	}
}

func TestHub_SlowSubscriberIsDropped(t *testing.T) {
	h := New(2)
	slow := h.Subscribe()
	fast := h.Subscribe()
	t.Cleanup(h.Close)

	// Fill slow's buffer without draining it, then one more publish
	// overflows it. fast drains as it goes and must survive.
	for i := 0; i < 3; i++ {
		h.Publish(entry(int64(i+1), fmt.Sprintf("m%d", i)))
		select {
		case <-fast.C:
		case <-time.After(time.Second):
			t.Fatalf("fast subscriber missed entry %d", i)
		}
	}

	if n := h.SubscriberCount(); n != 1 {
		t.Fatalf("subscribers: got %d, want 1", n)
	}

	// Evicted channel is closed after the buffered entries drain.
	for i := 0; i < 2; i++ {
		if _, ok := <-slow.C; !ok {
			t.Fatalf("buffered entry %d lost", i)
		}
	}
	if _, ok := <-slow.C; ok {
		t.Fatalf("slow channel not closed after eviction")
	}

	// Later publishes still reach the survivor.
	h.Publish(entry(9, "after"))
	select {
	case e := <-fast.C:
		if e.ID != 9 {
			t.Fatalf("entry: got %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatalf("fast subscriber missed post-eviction entry")
	}
}

// Unsubscribe races against Publish constantly in production: every
// SSE disconnect closes a subscriber while the ingestion loop is
// fanning out. Neither side may panic or stall the other.
func TestHub_ConcurrentPublishAndUnsubscribe(t *testing.T) {
	h := New(1)
	t.Cleanup(h.Close)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					h.Publish(entry(1, "racing"))
				}
			}
		}()
	}

	for i := 0; i < 500; i++ {
		sub := h.Subscribe()
		go func() {
			for range sub.C {
			}
		}()
		h.Unsubscribe(sub)
	}

	close(stop)
	wg.Wait()

	if n := h.SubscriberCount(); n != 0 {
		t.Fatalf("subscribers after churn: got %d, want 0", n)
	}
}

func TestHub_UnsubscribeIdempotent(t *testing.T) {
	h := New(4)
	sub := h.Subscribe()
	if n := h.SubscriberCount(); n != 1 {
		t.Fatalf("subscribers: got %d, want 1", n)
	}

	h.Unsubscribe(sub)
	h.Unsubscribe(sub)
	if n := h.SubscriberCount(); n != 0 {
		t.Fatalf("subscribers after unsubscribe: got %d, want 0", n)
	}

	// Publishing with no subscribers is a no-op.
	h.Publish(entry(1, "nobody home"))
}
