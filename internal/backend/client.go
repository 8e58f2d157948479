// Package backend defines the seam between the workspace engine and the
// persistence layer. Every operation is asynchronous from the engine's
// point of view: the call suspends until the backend responds, and other
// actions may interleave during that suspension.
package backend

import (
	"context"

	"restdeck/internal/core"
)

// Client is the persistence boundary. Implementations may fail with
// arbitrary errors; the engine treats them opaquely.
type Client interface {
	// Collections.
	ListCollections(ctx context.Context) ([]core.Collection, error)
	CreateCollection(ctx context.Context, name, description string, parentID *string) (core.Collection, error)
	RenameCollection(ctx context.Context, collectionID, name string) error
	// MoveCollection reparents a collection; nil newParentID means root.
	MoveCollection(ctx context.Context, collectionID string, newParentID *string) error
	// DeleteCollection cascades to descendant collections and their
	// requests server-side.
	DeleteCollection(ctx context.Context, id string) error
	SetCollectionAuth(ctx context.Context, collectionID string, auth *core.AuthConfig) error
	// ImportCollection parses a raw bundle and returns the created root
	// collection.
	ImportCollection(ctx context.Context, raw string) (core.Collection, error)
	ExportCollection(ctx context.Context, collectionID string) ([]byte, error)

	// Requests. A nil collectionID lists root-level requests.
	ListRequests(ctx context.Context, collectionID *string) ([]core.Request, error)
	// SaveRequest inserts when the payload id is empty and returns the
	// authoritative record.
	SaveRequest(ctx context.Context, req core.Request) (core.Request, error)
	// MoveRequest reassigns ownership; nil newCollectionID means root.
	MoveRequest(ctx context.Context, requestID string, newCollectionID *string) error
	RenameRequest(ctx context.Context, requestID, name string) error
	DeleteRequest(ctx context.Context, id string) error

	// Environments.
	ListEnvironments(ctx context.Context) ([]core.Environment, error)
	ActiveEnvironment(ctx context.Context) (*core.Environment, error)
	CreateEnvironment(ctx context.Context, name string, variables map[string]string) (core.Environment, error)
	UpdateEnvironment(ctx context.Context, id, name string, variables map[string]string) (core.Environment, error)
	DeleteEnvironment(ctx context.Context, id string) error
	// SetActiveEnvironment activates one environment; nil deactivates all.
	SetActiveEnvironment(ctx context.Context, id *string) error

	// Execution and services.
	Send(ctx context.Context, payload core.SendPayload) (*core.Response, error)
	FormatText(ctx context.Context, content string) (string, error)
	History(ctx context.Context, limit int) ([]core.HistoryEntry, error)
	ClearHistory(ctx context.Context) error
}

// Requester executes an outbound request. The sqlite backend delegates
// to one after variable substitution.
type Requester interface {
	Send(ctx context.Context, payload core.SendPayload) (*core.Response, error)
}
