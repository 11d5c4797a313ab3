package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hellas-direct/intake-assistant/internal/flow"
)

// maxJSONBody bounds webhook and chat request bodies.
const maxJSONBody = 1 << 20

// Stepper runs one conversation turn.
type Stepper interface {
	HandleStep(ctx context.Context, t flow.Turn) flow.Reply
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	return json.NewDecoder(r.Body).Decode(v)
}
