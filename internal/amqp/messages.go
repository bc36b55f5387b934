package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ExpenseRecordedMessage announces a newly persisted expense. It carries
// only the ID; the worker reads the full record from the database.
type ExpenseRecordedMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

var ErrMalformedMessage = errors.New("malformed expense message")

// NewExpenseRecordedMessage creates a message for the given expense ID.
func NewExpenseRecordedMessage(id string) *ExpenseRecordedMessage {
	return &ExpenseRecordedMessage{
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseRecordedMessageFromJSON decodes a message. Bodies that do not
// decode or lack an ID wrap ErrMalformedMessage.
func ExpenseRecordedMessageFromJSON(data []byte) (*ExpenseRecordedMessage, error) {
	var msg ExpenseRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errors.Join(ErrMalformedMessage, err)
	}
	if strings.TrimSpace(msg.ID) == "" {
		return nil, ErrMalformedMessage
	}
	return &msg, nil
}
