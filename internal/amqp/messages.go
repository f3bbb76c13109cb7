package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names what happened to a transaction.
type EventType string

const (
	EventUpserted EventType = "transaction.upserted"
	EventDeleted  EventType = "transaction.deleted"
)

// TransactionEvent is a lightweight change notification. It carries only
// identifiers; the consumer reads the current row from the store.
type TransactionEvent struct {
	Type      EventType `json:"type"`
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Version   int64     `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEvent(typ EventType, userID, id string, version int64) *TransactionEvent {
	return &TransactionEvent{
		Type:      typ,
		ID:        id,
		UserID:    userID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes and validates an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case EventUpserted, EventDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.ID == "" || msg.UserID == "" {
		return nil, fmt.Errorf("event missing id or user id")
	}
	return &msg, nil
}
