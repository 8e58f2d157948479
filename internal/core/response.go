package core

import (
	"time"

	"github.com/google/uuid"
)

// Response captures the outcome of an executed request.
type Response struct {
	Status     int               `json:"status"`
	StatusText string            `json:"status_text"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
	// ResponseTime is the round-trip duration in milliseconds.
	ResponseTime int64 `json:"response_time"`
	// Size is the response body size in bytes.
	Size int64 `json:"size"`
}

// IsSuccess reports whether the status is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.Status >= 200 && r.Status < 300
}

// HistoryEntry records one executed request and its response.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Request   Request   `json:"request"`
	Response  *Response `json:"response,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewHistoryEntry creates a history entry stamped with the current time.
func NewHistoryEntry(req Request, resp *Response) HistoryEntry {
	return HistoryEntry{
		ID:        uuid.New().String(),
		Request:   req,
		Response:  resp,
		Timestamp: time.Now().UTC(),
	}
}
