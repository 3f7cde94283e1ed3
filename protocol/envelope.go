package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrMalformedStrength = errors.New("malformed strength report")
	ErrMalformedFeedback = errors.New("malformed feedback report")
	ErrUnknownFeedback   = errors.New("unknown feedback code")
)

// Envelope is the four-field record exchanged over the WebSocket connection.
// Field order matches the wire format.
type Envelope struct {
	Type     MessageType `json:"type"`
	ClientID string      `json:"clientId"`
	TargetID string      `json:"targetId"`
	Message  string      `json:"message"`
}

// Encode returns the JSON text of e.
func (e Envelope) Encode() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}

	return string(data), nil
}

// Decode parses an inbound envelope. Unknown fields are ignored and missing
// fields decode as empty strings. Any JSON error is wrapped in
// ErrMalformedEnvelope.
func Decode(raw string) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	return e, nil
}
