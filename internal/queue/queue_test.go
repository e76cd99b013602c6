package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestEvent_RoundTrip(t *testing.T) {
	event := NewBlobOrphanedEvent(7, "/uploads/a.jpg")

	values, err := event.ToMap()
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	if values["type"] != EventBlobOrphaned {
		t.Errorf("type field = %v, want %s", values["type"], EventBlobOrphaned)
	}

	got, err := ParseEvent(values)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if got != event {
		t.Errorf("ParseEvent = %+v, want %+v", got, event)
	}

	if _, err := ParseEvent(map[string]interface{}{"type": "x"}); err == nil {
		t.Error("expected error for missing data field")
	}
}

func TestPublishReadAck(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	consumer := NewConsumer(client)
	if err := consumer.EnsureGroup(ctx, StreamGraph, ConsumerGroupGraph); err != nil {
		t.Fatalf("EnsureGroup: %v", err)
	}
	// second call must be a no-op
	if err := consumer.EnsureGroup(ctx, StreamGraph, ConsumerGroupGraph); err != nil {
		t.Fatalf("EnsureGroup again: %v", err)
	}

	publisher := NewPublisher(client, 1000)
	if _, err := publisher.Publish(ctx, StreamGraph, NewRelationshipChangedEvent(1, 2)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	messages, err := consumer.Read(ctx, StreamGraph, ConsumerGroupGraph, "worker-1", 10, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
	ev := messages[0].Event
	if ev.Type != EventRelationshipChanged || ev.ActorID != 1 || ev.TargetID != 2 {
		t.Errorf("event = %+v", ev)
	}

	pending, err := consumer.Pending(ctx, StreamGraph, ConsumerGroupGraph)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if pending != 1 {
		t.Errorf("pending = %d, want 1", pending)
	}

	// unacked messages are redelivered through ReadPending
	redelivered, err := consumer.ReadPending(ctx, StreamGraph, ConsumerGroupGraph, "worker-1", 10)
	if err != nil {
		t.Fatalf("ReadPending: %v", err)
	}
	if len(redelivered) != 1 || redelivered[0].ID != messages[0].ID {
		t.Fatalf("ReadPending = %+v", redelivered)
	}

	if err := consumer.Ack(ctx, StreamGraph, ConsumerGroupGraph, messages[0].ID); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	pending, err = consumer.Pending(ctx, StreamGraph, ConsumerGroupGraph)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if pending != 0 {
		t.Errorf("pending after ack = %d, want 0", pending)
	}
}
