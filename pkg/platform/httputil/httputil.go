package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "sante/pkg/domain-errors"
)

// errorBody is the JSON envelope for every error response.
type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into its status code and envelope.
// Internal errors never expose their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	description := ""
	if de, ok := dErrors.As(err); ok {
		code = de.Code
		description = de.Message
	}
	if code == dErrors.CodeInternal {
		description = ""
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), errorBody{
		Error:       string(code),
		Description: description,
	})
}
