// Package respond writes JSON responses and coded JSON errors for the HTTP
// handlers.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"smartnotes/internal/errs"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// JSON writes data with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error maps err to its status and writes an ErrorBody. Internal errors
// are logged with their cause and reported as "internal error".
func Error(w http.ResponseWriter, log *slog.Logger, msg string, err error) {
	code := errs.CodeOf(err)
	if code == errs.Internal {
		log.Error(msg, "error", err)
	}
	JSON(w, errs.HTTPStatus(code), ErrorBody{
		Error: errs.MessageOf(err),
		Code:  string(code),
	})
}

// MaxBodyBytes caps the size of a decoded request body.
const MaxBodyBytes = 1 << 20

// Decode reads a JSON request body of at most MaxBodyBytes into v.
func Decode(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.Wrap(errs.InvalidArgument, "request body too large", err)
		}
		return errs.Wrap(errs.InvalidArgument, "invalid JSON body", err)
	}
	return nil
}
