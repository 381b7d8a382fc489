package amqp

import (
	"encoding/json"
	"time"
)

// EventKind names a ledger mutation.
type EventKind string

const (
	EventCreated  EventKind = "created"
	EventUpdated  EventKind = "updated"
	EventDeleted  EventKind = "deleted"
	EventImported EventKind = "imported"
	EventCleared  EventKind = "cleared"
)

// LedgerEvent announces a committed change. Single-record events carry the
// transaction ID; bulk events carry the resulting record count.
type LedgerEvent struct {
	Kind      EventKind `json:"kind"`
	ID        int64     `json:"id,omitempty"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEvent stamps an event with the current time.
func NewLedgerEvent(kind EventKind, id int64, count int) *LedgerEvent {
	return &LedgerEvent{Kind: kind, ID: id, Count: count, Timestamp: time.Now()}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
