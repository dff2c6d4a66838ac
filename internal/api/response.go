package api

import (
	"encoding/json"
	"net/http"
)

// Every response on this API is JSON, success or failure. Failures share a
// single {"error": ...} envelope so the desktop client has one shape to
// parse regardless of which endpoint rejected the request.
type apiError struct {
	Error string `json:"error"`
}

// writeJSON sets the status and encodes v. A nil v or 204 writes headers
// only.
func writeJSON(w http.ResponseWriter, status int, v any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	if v == nil || status == http.StatusNoContent {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the uniform error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiError{Error: message})
}
