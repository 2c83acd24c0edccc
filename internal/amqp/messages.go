package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ChangeMessage announces a ledger mutation. It carries ids only; the
// transactions themselves stay in the local store.
type ChangeMessage struct {
	EventID   uuid.UUID `json:"event_id"`
	Op        string    `json:"op"`
	IDs       []int64   `json:"ids,omitempty"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeMessage creates a message with a fresh event id.
func NewChangeMessage(op string, ids []int64, count int, at time.Time) *ChangeMessage {
	if at.IsZero() {
		at = time.Now()
	}
	return &ChangeMessage{
		EventID:   uuid.New(),
		Op:        op,
		IDs:       ids,
		Count:     count,
		Timestamp: at,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON creates a message from JSON bytes
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
