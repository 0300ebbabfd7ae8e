package discord

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message represents a single channel message.
//
// The API returns messages with a large and evolving set of fields. Only the
// ID is needed to drive pagination, so the decoded payload is kept verbatim
// and written back out unchanged. Nothing the server sent is lost, including
// fields this tool knows nothing about.
type Message struct {
	// ID is the message snowflake, used as the pagination cursor
	ID string

	raw json.RawMessage
}

// UnmarshalJSON decodes a message, keeping the raw payload intact.
// A message without an id cannot act as a pagination cursor, so its
// absence is treated as a malformed response.
func (m *Message) UnmarshalJSON(data []byte) error {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.ID == "" {
		return errors.New("message missing id field")
	}

	m.ID = probe.ID
	m.raw = make(json.RawMessage, len(data))
	copy(m.raw, data)
	return nil
}

// MarshalJSON returns the message exactly as the server sent it
func (m Message) MarshalJSON() ([]byte, error) {
	if len(m.raw) == 0 {
		return nil, fmt.Errorf("message %s has no payload", m.ID)
	}
	return m.raw, nil
}

// Raw returns the verbatim message payload
func (m Message) Raw() json.RawMessage {
	return m.raw
}

// NewMessage builds a message from a raw payload. Intended for tests and
// for re-hydrating messages loaded from an existing export file.
func NewMessage(id string, raw json.RawMessage) Message {
	return Message{ID: id, raw: raw}
}

// Channel represents the subset of channel metadata the exporter cares
// about. Used for the pre-flight check before an export starts.
type Channel struct {
	ID            string `json:"id"`
	Type          int    `json:"type"`
	Name          string `json:"name"`
	GuildID       string `json:"guild_id"`
	LastMessageID string `json:"last_message_id"`
}

// APIError is the error body the API returns alongside 4xx responses
type APIError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// rateLimitBody is the JSON body of a 429 response
type rateLimitBody struct {
	Message    string  `json:"message"`
	RetryAfter float64 `json:"retry_after"`
	Global     bool    `json:"global"`
}
