package invoke

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	v1 "github.com/presskit/presskit/apis/v1"
)

// EventHandler receives backend events while a call is in flight.
type EventHandler func(v1.CompressionEvent)

// errNoResult is returned when the backend stream ends before a result or error line.
var errNoResult = errors.New("backend closed the stream without a result")

// maxMessageSize bounds a single NDJSON line. Error messages carry the
// backend's full stderr, so this is larger than bufio's default.
const maxMessageSize = 4 << 20

// readMessages consumes newline-delimited messages until a result or error
// arrives. The result payload is returned verbatim.
func readMessages(r io.Reader, onEvent EventHandler) (json.RawMessage, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg struct {
			Event  *v1.CompressionEvent `json:"event"`
			Result json.RawMessage      `json:"result"`
			Error  *v1.RemoteError      `json:"error"`
		}
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, fmt.Errorf("failed to decode backend message: %w", err)
		}

		switch {
		case msg.Error != nil:
			return nil, msg.Error
		case msg.Result != nil:
			return append(json.RawMessage(nil), msg.Result...), nil
		case msg.Event != nil:
			if onEvent != nil {
				onEvent(*msg.Event)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read backend stream: %w", err)
	}
	return nil, errNoResult
}

func encodeEnvelope(command string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	body, err := json.Marshal(v1.Envelope{Command: command, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return body, nil
}
