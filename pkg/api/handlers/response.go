package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// Response is the envelope of every API response.
//
//   - Status is "healthy", "unhealthy", "ok" or "error"
//   - Timestamp is the server time in UTC
//   - Data carries the payload, Error the failure message
type Response struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// writeJSON writes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out; nothing more can be reported.
		http.Error(w, `{"status":"error","error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

func newResponse(status string, data any, errMsg string) Response {
	return Response{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Data:      data,
		Error:     errMsg,
	}
}

func healthyResponse(data any) Response {
	return newResponse("healthy", data, "")
}

func unhealthyResponse(errMsg string, data any) Response {
	return newResponse("unhealthy", data, errMsg)
}

func okResponse(data any) Response {
	return newResponse("ok", data, "")
}

// NotFound writes a 404 error response.
func NotFound(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusNotFound, newResponse("error", nil, msg))
}

// InternalServerError writes a 500 error response.
func InternalServerError(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusInternalServerError, newResponse("error", nil, msg))
}
