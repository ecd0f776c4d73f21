package httpx

import (
	"errors"
	"net/http"
)

// ErrBadRequest marks malformed request input.
var ErrBadRequest = errors.New("bad request")

// RespondError maps err to a status code and writes an ErrorBody. The wrapped
// cause, when present, becomes the details field.
func RespondError(w http.ResponseWriter, status int, err error) {
	details := ""
	if cause := errors.Unwrap(err); cause != nil {
		details = cause.Error()
	}
	if status == 0 {
		status = StatusFor(err)
	}
	Error(w, status, err.Error(), details)
}

// StatusFor returns 400 for ErrBadRequest and 500 otherwise.
func StatusFor(err error) int {
	if errors.Is(err, ErrBadRequest) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
