package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/mlgate/internal/domain/model"
)

func auditEvent(id string) model.AuditEvent {
	return model.AuditEvent{ID: id, Category: "registry", Action: "approved", Details: "run_id=" + id}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, auditEvent("event1")) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	event := <-q.Dequeue(ctx)
	if event.ID != "event1" {
		t.Errorf("expected event1, got %v", event.ID)
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, auditEvent("event1")) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, auditEvent("event2")) {
		t.Error("expected enqueue to succeed")
	}

	if q.Enqueue(ctx, auditEvent("event3")) {
		t.Error("expected enqueue to fail when full")
	}

	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_DefaultCapacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(0))
	if q.capacity != defaultQueueCapacity {
		t.Errorf("expected default capacity %d, got %d", defaultQueueCapacity, q.capacity)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	ctx := context.Background()
	const producers, perProducer = 10, 100

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				if !q.Enqueue(ctx, auditEvent(fmt.Sprintf("e-%d-%d", id, j))) {
					t.Errorf("enqueue failed for producer %d", id)
				}
			}
		}(i)
	}
	wg.Wait()

	if l := q.Len(ctx); l != producers*perProducer {
		t.Errorf("expected length %d, got %d", producers*perProducer, l)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	q.Enqueue(ctx, auditEvent("before"))
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if q.Enqueue(ctx, auditEvent("after")) {
		t.Error("expected enqueue to fail after close")
	}

	// queued events drain, then the channel closes
	var got []string
	for e := range q.Dequeue(ctx) {
		got = append(got, e.ID)
	}
	if len(got) != 1 || got[0] != "before" {
		t.Errorf("expected [before], got %v", got)
	}
}

func TestInMemoryQueue_ContextCancellation(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if q.Enqueue(cancelled, auditEvent("x")) {
		t.Error("expected enqueue to fail on cancelled context")
	}

	ctx, stop := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer stop()
	select {
	case _, ok := <-q.Dequeue(ctx):
		if ok {
			t.Error("expected no event from an empty queue")
		}
	case <-time.After(time.Second):
		t.Error("dequeue channel was not closed after context expiry")
	}
}
