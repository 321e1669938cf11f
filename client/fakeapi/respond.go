package fakeapi

import (
	"encoding/json"
	"net/http"
)

// errorResponse mirrors the backend's error envelope. Clients treat it as
// free text.
type errorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: http.StatusText(status), Code: status, Message: message})
}

// mustEncode panics on encoder failure; the recovery middleware turns that
// into a 500.
func mustEncode(b []byte, err error) json.RawMessage {
	if err != nil {
		panic(err)
	}
	return b
}
