package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"financas/internal/storage"
)

// ChangeMessage tells other processes that an owner's transactions changed.
// It carries no record data; receivers re-read their own view.
type ChangeMessage struct {
	OwnerID       string    `json:"ownerId"`
	TransactionID string    `json:"transactionId"`
	Op            string    `json:"op"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewChangeMessage builds the message for a committed write.
func NewChangeMessage(c storage.Change) *ChangeMessage {
	ts := c.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &ChangeMessage{
		OwnerID:       c.OwnerID,
		TransactionID: c.TransactionID,
		Op:            c.Op,
		Timestamp:     ts,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message and rejects one without an owner.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.OwnerID == "" {
		return nil, errors.New("change message without owner")
	}
	return &msg, nil
}
