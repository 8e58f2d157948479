// Package importer parses exported collection bundles back into
// workspace records.
package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"restdeck/internal/core"
)

// Common errors.
var (
	ErrInvalidFormat      = errors.New("invalid format")
	ErrMissingRequired    = errors.New("missing required field")
	ErrUnsupportedVersion = errors.New("unsupported version")
)

// Bundle is the export/import wire format for a collection and its
// requests.
type Bundle struct {
	Collection core.Collection `json:"collection"`
	Requests   []core.Request  `json:"requests"`
	ExportedAt time.Time       `json:"exported_at"`
	Version    string          `json:"version"`
}

// BundleVersion is the current bundle format version.
const BundleVersion = "1.0"

// NewBundle packages a collection and its requests for export.
func NewBundle(collection core.Collection, requests []core.Request) Bundle {
	return Bundle{
		Collection: collection,
		Requests:   requests,
		ExportedAt: time.Now().UTC(),
		Version:    BundleVersion,
	}
}

// ParseBundle parses raw bundle JSON and re-mints all identifiers so an
// import never collides with existing records. The imported collection
// is renamed with an "(Imported)" suffix and every request is
// reassigned to it.
func ParseBundle(data []byte) (core.Collection, []core.Request, error) {
	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return core.Collection{}, nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	if bundle.Collection.Name == "" {
		return core.Collection{}, nil, fmt.Errorf("%w: collection name", ErrMissingRequired)
	}

	now := time.Now().UTC()

	collection := bundle.Collection
	collection.ID = uuid.New().String()
	collection.Name = collection.Name + " (Imported)"
	collection.ParentID = nil
	collection.CreatedAt = now
	collection.UpdatedAt = now

	requests := make([]core.Request, 0, len(bundle.Requests))
	for _, req := range bundle.Requests {
		imported := req.Clone()
		imported.ID = uuid.New().String()
		imported.CollectionID = &collection.ID
		imported.CreatedAt = &now
		imported.UpdatedAt = &now
		requests = append(requests, imported)
	}

	return collection, requests, nil
}
