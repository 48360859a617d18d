package results

import (
	"encoding/json"
	"net/http"
)

// Response is the JSON body of admin API replies: a status message plus an
// optional payload.
type Response struct {
	StatusMessage
	Outcome string `json:"outcome,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// WriteError writes a status error message.
func WriteError(w http.ResponseWriter, code int, message string, details ...string) {
	WriteJSON(w, code, Response{StatusMessage: Error(message, details...)})
}
