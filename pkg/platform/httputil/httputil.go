// Package httputil centralizes the JSON response envelope and request decoding
// so handlers stay thin and every endpoint speaks the same shape.
//
// Every response is wrapped in an Envelope. Clients must treat success=false
// exactly like a non-2xx status; both carry a code from pkg/domain-errors.
package httputil

import (
	"encoding/json"
	"io"
	"net/http"

	dErrors "leanquest/pkg/domain-errors"
)

// Envelope is the wire shape for all API responses.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
}

// WriteData writes a success envelope with the given payload.
func WriteData(w http.ResponseWriter, status int, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Success: true, Data: raw})
}

// WriteError translates a (coded) error into a failure envelope. Internal
// errors hide their message so infrastructure details never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	message := dErrors.MessageOf(err)
	if code == dErrors.CodeInternal {
		message = "internal error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(Envelope{Success: false, Error: message, Code: string(code)})
}

// Decode reads a JSON request body into T, returning a coded error on failure.
func Decode[T any](r *http.Request) (T, error) {
	var v T
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err != nil {
		return v, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read request body")
	}
	if len(body) == 0 {
		return v, dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return v, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed JSON body")
	}
	return v, nil
}
