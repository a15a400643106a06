// Package httputil centralizes JSON encoding and error rendering for HTTP
// handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "disciplina/pkg/domain-errors"
)

// ErrorBody is the wire shape of every error response.
type ErrorBody struct {
	Error       string   `json:"error"`
	Description string   `json:"error_description,omitempty"`
	Fields      []string `json:"fields,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders a coded error. Internal failures hide their message so
// infrastructure detail never leaks to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.HTTPStatus(code)

	body := ErrorBody{Error: string(code)}
	if status < http.StatusInternalServerError {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body.Description = de.Message
			body.Fields = de.Fields
		}
	}
	WriteJSON(w, status, body)
}

// Decode parses a JSON request body into T, rejecting unknown fields.
func Decode[T any](r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, dErrors.New(dErrors.CodeBadRequest, "malformed JSON body")
	}
	return v, nil
}
