package v1

import "encoding/json"

// StartCompressionCommand is the logical name of the one call the front-end
// makes across the backend boundary.
const StartCompressionCommand = "start_compression"

// CompressionRequest is the payload of a start_compression call. The JSON keys
// are part of the boundary contract and must not change.
type CompressionRequest struct {
	// Algorithm selects the compression method. Nil lets the backend pick its default.
	Algorithm  *string  `json:"algorithm" yaml:"algorithm"`
	Flags      []string `json:"flags" yaml:"flags"`
	InputPath  string   `json:"inputPath" yaml:"inputPath"`
	OutputPath string   `json:"outputPath" yaml:"outputPath"`
}

// MarshalJSON always encodes flags as an array, never as null.
func (r CompressionRequest) MarshalJSON() ([]byte, error) {
	type plain CompressionRequest
	p := plain(r)
	if p.Flags == nil {
		p.Flags = []string{}
	}
	return json.Marshal(p)
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// CompressionResponse is what the backend returns once a job has finished.
type CompressionResponse struct {
	JobID     string `json:"jobId"`
	Algorithm string `json:"algorithm"`
	Output    string `json:"output"`
	Status    string `json:"status"`
}

const (
	EventStatus   = "status"
	EventProgress = "progress"
	EventSuccess  = "success"
	EventError    = "error"
)

// CompressionEvent is emitted by the backend while a job runs.
type CompressionEvent struct {
	JobID      string   `json:"jobId"`
	Algorithm  string   `json:"algorithm"`
	EventType  string   `json:"event_type"`
	Message    string   `json:"message"`
	Percentage *float32 `json:"percentage"`
}
