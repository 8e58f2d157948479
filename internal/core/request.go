package core

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Request is a saved or draft HTTP request. ID is empty until the
// request has been persisted; a request belongs to at most one
// collection at a time, with CollectionID as the only ownership pointer.
type Request struct {
	ID           string            `json:"id,omitempty"`
	Name         string            `json:"name"`
	Method       string            `json:"method"`
	URL          string            `json:"url"`
	Headers      map[string]string `json:"headers"`
	Body         Body              `json:"-"`
	PathParams   map[string]string `json:"path_params,omitempty"`
	CollectionID *string           `json:"collection_id,omitempty"`
	CreatedAt    *time.Time        `json:"created_at,omitempty"`
	UpdatedAt    *time.Time        `json:"updated_at,omitempty"`
}

// Methods lists the supported HTTP methods.
var Methods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"}

// NewRequest creates an unsaved draft request with sensible defaults.
func NewRequest() Request {
	return Request{
		Name:    "New Request",
		Method:  "GET",
		URL:     "https://",
		Headers: make(map[string]string),
	}
}

// NewPersistedRequest creates a request with a fresh id and timestamps,
// as the backend does on first save.
func NewPersistedRequest(name, method, url string) Request {
	now := time.Now().UTC()
	return Request{
		ID:        uuid.New().String(),
		Name:      name,
		Method:    method,
		URL:       url,
		Headers:   make(map[string]string),
		CreatedAt: &now,
		UpdatedAt: &now,
	}
}

// Saved reports whether the request has been persisted at least once.
func (r Request) Saved() bool {
	return r.ID != ""
}

// Clone creates a deep copy of the request.
func (r Request) Clone() Request {
	clone := r
	clone.Headers = make(map[string]string, len(r.Headers))
	for k, v := range r.Headers {
		clone.Headers[k] = v
	}
	if r.PathParams != nil {
		clone.PathParams = make(map[string]string, len(r.PathParams))
		for k, v := range r.PathParams {
			clone.PathParams[k] = v
		}
	}
	if r.CollectionID != nil {
		id := *r.CollectionID
		clone.CollectionID = &id
	}
	return clone
}

// requestWire mirrors Request with the body in envelope form so the
// union survives JSON round-trips across the RPC seam.
type requestWire struct {
	ID           string            `json:"id,omitempty"`
	Name         string            `json:"name"`
	Method       string            `json:"method"`
	URL          string            `json:"url"`
	Headers      map[string]string `json:"headers"`
	Body         json.RawMessage   `json:"body,omitempty"`
	PathParams   map[string]string `json:"path_params,omitempty"`
	CollectionID *string           `json:"collection_id,omitempty"`
	CreatedAt    *time.Time        `json:"created_at,omitempty"`
	UpdatedAt    *time.Time        `json:"updated_at,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r Request) MarshalJSON() ([]byte, error) {
	body, err := EncodeBody(r.Body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(requestWire{
		ID:           r.ID,
		Name:         r.Name,
		Method:       r.Method,
		URL:          r.URL,
		Headers:      r.Headers,
		Body:         body,
		PathParams:   r.PathParams,
		CollectionID: r.CollectionID,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Request) UnmarshalJSON(data []byte) error {
	var wire requestWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	body, err := DecodeBody(wire.Body)
	if err != nil {
		return err
	}
	*r = Request{
		ID:           wire.ID,
		Name:         wire.Name,
		Method:       wire.Method,
		URL:          wire.URL,
		Headers:      wire.Headers,
		Body:         body,
		PathParams:   wire.PathParams,
		CollectionID: wire.CollectionID,
		CreatedAt:    wire.CreatedAt,
		UpdatedAt:    wire.UpdatedAt,
	}
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	return nil
}

// SendPayload is the input to the send operation.
type SendPayload struct {
	Method     string            `json:"method"`
	URL        string            `json:"url"`
	Headers    map[string]string `json:"headers"`
	Body       Body              `json:"-"`
	PathParams map[string]string `json:"path_params,omitempty"`
	// Timeout in seconds; zero means the engine default.
	Timeout int `json:"timeout,omitempty"`
}
