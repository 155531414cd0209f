package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	v1 "github.com/presskit/presskit/apis/v1"
	"go.uber.org/zap"
)

// AlgorithmInfo describes one registered runner.
type AlgorithmInfo struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Extension string   `json:"extension"`
	Aliases   []string `json:"aliases,omitempty"`
}

// NewHTTPHandler serves POST /invoke (streamed NDJSON messages) and GET /algorithms.
func NewHTTPHandler(logger *zap.Logger, d Dispatcher) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /invoke", func(w http.ResponseWriter, r *http.Request) {
		var env v1.Envelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			http.Error(w, fmt.Sprintf("invalid envelope: %v", err), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)

		rc := http.NewResponseController(w)
		enc := json.NewEncoder(w)
		write := func(m v1.Message) error {
			if err := enc.Encode(m); err != nil {
				return err
			}
			return rc.Flush()
		}

		if err := handle(r.Context(), logger, d, env, write); err != nil {
			logger.Error("failed to stream response", zap.Error(err))
		}
	})

	mux.HandleFunc("GET /algorithms", func(w http.ResponseWriter, r *http.Request) {
		registry := d.Registry()
		var infos []AlgorithmInfo
		for _, name := range registry.Available() {
			runner, err := registry.Lookup(name)
			if err != nil {
				continue
			}
			infos = append(infos, AlgorithmInfo{
				Name:      runner.Name(),
				Kind:      runner.Kind(),
				Extension: runner.Extension(),
				Aliases:   registry.Aliases(name),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(infos); err != nil {
			logger.Error("failed to write algorithms", zap.Error(err))
		}
	})

	return mux
}
