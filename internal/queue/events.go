package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the graph stream
const (
	// EventRelationshipChanged asks a worker to reconcile the follower mirror of a pair.
	EventRelationshipChanged = "relationship_changed"
	// EventPhotoRemoved records a removed photo; informational.
	EventPhotoRemoved = "photo_removed"
	// EventBlobOrphaned asks a worker to retry deleting stored bytes whose metadata is gone.
	EventBlobOrphaned = "blob_orphaned"
)

const (
	StreamGraph = "stream:graph"

	ConsumerGroupGraph = "graph_workers"
)

// Event is the single payload shape published to the graph stream.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // Unix timestamp when event occurred

	// Relationship events
	ActorID  int64 `json:"actor_id,omitempty"`
	TargetID int64 `json:"target_id,omitempty"`

	// Content events
	OwnerID int64  `json:"owner_id,omitempty"`
	URI     string `json:"uri,omitempty"`
}

func NewRelationshipChangedEvent(actorID, targetID int64) Event {
	return Event{
		Type:      EventRelationshipChanged,
		Timestamp: time.Now().Unix(),
		ActorID:   actorID,
		TargetID:  targetID,
	}
}

func NewPhotoRemovedEvent(ownerID int64, uri string) Event {
	return Event{
		Type:      EventPhotoRemoved,
		Timestamp: time.Now().Unix(),
		OwnerID:   ownerID,
		URI:       uri,
	}
}

func NewBlobOrphanedEvent(ownerID int64, uri string) Event {
	return Event{
		Type:      EventBlobOrphaned,
		Timestamp: time.Now().Unix(),
		OwnerID:   ownerID,
		URI:       uri,
	}
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e Event) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseEvent parses an Event from Redis stream message values.
func ParseEvent(values map[string]interface{}) (Event, error) {
	data, ok := values["data"].(string)
	if !ok {
		return Event{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
