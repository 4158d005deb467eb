package queue

import (
	"context"
	"encoding/json"
	"time"
)

type EventType string

const (
	EventDocumentScanned    EventType = "document.scanned"
	EventDocumentDeleted    EventType = "document.deleted"
	EventArtifactDispatched EventType = "artifact.dispatched"
)

// Event is a pipeline notification. Events of one document share a partition key.
type Event struct {
	Type       EventType         `json:"type"`
	DocumentID string            `json:"documentId"`
	Timestamp  int64             `json:"timestamp"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func NewEvent(t EventType, documentID string, attrs map[string]string) Event {
	return Event{
		Type:       t,
		DocumentID: documentID,
		Timestamp:  time.Now().UnixMilli(),
		Attributes: attrs,
	}
}

func (e Event) MarshalBinary() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events to the document event queue.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

var _ Publisher = Nop{}

type Nop struct{}

func NewNop() Nop {
	return Nop{}
}

func (Nop) Publish(ctx context.Context, event Event) error {
	return nil
}

func (Nop) Close() error {
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	events chan Event
}

func NewRecorder(size int) *Recorder {
	return &Recorder{events: make(chan Event, size)}
}

func (r *Recorder) Publish(ctx context.Context, event Event) error {
	select {
	case r.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) Events() <-chan Event {
	return r.events
}

func (r *Recorder) Close() error {
	return nil
}
