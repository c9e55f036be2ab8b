// internal/app/system/respond/respond.go
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/contenthub/internal/app/system/apperr"
	"go.uber.org/zap"
)

// envelope is the success body shape every JSON endpoint returns.
type envelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
}

// errorBody is the failure body shape.
type errorBody struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Error      string `json:"error"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a 200 envelope.
func OK(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusOK, envelope{StatusCode: http.StatusOK, Message: message, Data: data})
}

// Created writes a 201 envelope.
func Created(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusCreated, envelope{StatusCode: http.StatusCreated, Message: message, Data: data})
}

// Error writes err as a JSON error. Non-application errors are logged and
// reported as 500 without leaking their text.
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	ae := apperr.From(err)
	status := ae.Status()
	if ae.Kind == apperr.KindInternal && log != nil {
		log.Error("request failed", zap.Error(err))
	}
	JSON(w, status, errorBody{
		StatusCode: status,
		Message:    ae.Message,
		Error:      string(ae.Kind),
	})
}

// DecodeJSON reads a JSON body into dst. A malformed body yields a BadRequest.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apperr.BadRequest("malformed JSON body")
	}
	return nil
}
