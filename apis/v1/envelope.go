package v1

import "encoding/json"

// Envelope frames a call sent to a backend over the exec or http boundary.
type Envelope struct {
	Command string          `json:"command" validate:"required,oneof=start_compression"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// Message is one newline-delimited line of backend output. Exactly one field is set.
type Message struct {
	Event  *CompressionEvent    `json:"event,omitempty"`
	Result *CompressionResponse `json:"result,omitempty"`
	Error  *RemoteError         `json:"error,omitempty"`
}

// RemoteError is a failure reported by the backend.
type RemoteError struct {
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	return e.Message
}
