package httpserver

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Response is the JSON envelope used by the bundled middleware when it
// has to answer on the handler's behalf (panic recovery, helpers).
type Response[T any] struct {
	Data    T       `json:"data,omitempty"`
	Errors  []Error `json:"errors,omitempty"`
	Message string  `json:"message,omitempty"`
}

// Error is one field-level problem inside an error envelope.
type Error struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// WriteJSON encodes the envelope with the given status. An encoding
// failure is only logged: the status line is already on the wire, so
// there is nothing better to send.
func WriteJSON[T any](w http.ResponseWriter, statusCode int, response Response[T]) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Int("status_code", statusCode).
			Msg("failed to encode JSON response")
	}
}

// WriteError writes an error envelope.
func WriteError(w http.ResponseWriter, statusCode int, message string, errors ...Error) {
	WriteJSON(w, statusCode, Response[any]{Errors: errors, Message: message})
}

// WriteSuccess writes a data envelope.
func WriteSuccess[T any](w http.ResponseWriter, statusCode int, data T, message string) {
	WriteJSON(w, statusCode, Response[T]{Data: data, Message: message})
}
