package stream

import (
	"testing"

	"github.com/yourorg/stockledger/internal/domain"
)

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	h := NewHub()

	ch1, cancel1 := h.Subscribe()
	defer cancel1()
	ch2, cancel2 := h.Subscribe()
	defer cancel2()

	h.Publish(domain.AuditLog{ID: 1, Action: domain.ActionCreate})

	for i, ch := range []<-chan domain.AuditLog{ch1, ch2} {
		select {
		case entry := <-ch:
			if entry.ID != 1 {
				t.Errorf("subscriber %d: got entry %d, want 1", i, entry.ID)
			}
		default:
			t.Errorf("subscriber %d: no entry delivered", i)
		}
	}
}

func TestCancelClosesChannel(t *testing.T) {
	h := NewHub()

	ch, cancel := h.Subscribe()
	cancel()

	if _, open := <-ch; open {
		t.Fatal("channel still open after cancel")
	}

	// cancel is idempotent and publishing after it must not panic
	cancel()
	h.Publish(domain.AuditLog{ID: 2, Action: domain.ActionDelete})
}

func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	h := NewHub()

	_, cancel := h.Subscribe() // never drained
	defer cancel()

	// More entries than the subscriber buffer holds; extras are dropped
	// instead of stalling the publisher.
	for i := 0; i < subscriberBuffer*2; i++ {
		h.Publish(domain.AuditLog{ID: int64(i), Action: domain.ActionUpdate})
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	h := NewHub()
	h.Publish(domain.AuditLog{ID: 1, Action: domain.ActionCreate})
}
