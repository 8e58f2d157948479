// Package sqlite implements the backend client on an embedded SQLite
// database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"restdeck/internal/backend"
	"restdeck/internal/core"
)

var _ backend.Client = (*Store)(nil)

// Store implements backend.Client using SQLite.
type Store struct {
	mu           sync.RWMutex
	db           *sql.DB
	closed       bool
	requester    backend.Requester
	historyLimit int
}

// Option configures the Store.
type Option func(*Store)

// WithRequester sets the execution engine used by Send.
func WithRequester(r backend.Requester) Option {
	return func(s *Store) {
		s.requester = r
	}
}

// WithHistoryLimit caps the number of retained history entries. Zero
// means unbounded.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		s.historyLimit = n
	}
}

// New creates a SQLite-backed store at the given path.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newStore(db, opts...)
}

// NewInMemory creates an in-memory store (useful for testing).
func NewInMemory(opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	return newStore(db, opts...)
}

func newStore(db *sql.DB, opts ...Option) (*Store, error) {
	store := &Store{db: db}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
		CREATE TABLE IF NOT EXISTS collections (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			parent_id TEXT,
			auth TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS requests (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			method TEXT NOT NULL,
			url TEXT NOT NULL,
			headers TEXT,
			body TEXT,
			path_params TEXT,
			collection_id TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS environments (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			variables TEXT,
			is_active INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS history (
			id TEXT PRIMARY KEY,
			request TEXT NOT NULL,
			response TEXT,
			timestamp DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_collections_parent ON collections(parent_id);
		CREATE INDEX IF NOT EXISTS idx_requests_collection ON requests(collection_id);
		CREATE INDEX IF NOT EXISTS idx_history_timestamp ON history(timestamp DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the store and releases resources.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// ListCollections returns all collections, newest first.
func (s *Store) ListCollections(ctx context.Context) ([]core.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, backend.ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, parent_id, auth, created_at, updated_at
		FROM collections ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var collections []core.Collection
	for rows.Next() {
		collection, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		collections = append(collections, collection)
	}

	return collections, rows.Err()
}

// CreateCollection inserts a new collection and returns it.
func (s *Store) CreateCollection(ctx context.Context, name, description string, parentID *string) (core.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.Collection{}, backend.ErrStoreClosed
	}

	collection := core.NewCollection(name, description, parentID)
	if err := s.insertCollection(ctx, collection); err != nil {
		return core.Collection{}, err
	}
	return collection, nil
}

func (s *Store) insertCollection(ctx context.Context, c core.Collection) error {
	authJSON, err := encodeAuth(c.Auth)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO collections (id, name, description, parent_id, auth, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Description, nullable(c.ParentID), authJSON, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert collection: %w", err)
	}
	return nil
}

// RenameCollection updates a collection name.
func (s *Store) RenameCollection(ctx context.Context, collectionID, name string) error {
	return s.updateCollection(ctx, collectionID, "name = ?", name)
}

// MoveCollection reparents a collection; nil means root.
func (s *Store) MoveCollection(ctx context.Context, collectionID string, newParentID *string) error {
	return s.updateCollection(ctx, collectionID, "parent_id = ?", nullable(newParentID))
}

// SetCollectionAuth replaces a collection's auth configuration.
func (s *Store) SetCollectionAuth(ctx context.Context, collectionID string, auth *core.AuthConfig) error {
	authJSON, err := encodeAuth(auth)
	if err != nil {
		return err
	}
	return s.updateCollection(ctx, collectionID, "auth = ?", authJSON)
}

func (s *Store) updateCollection(ctx context.Context, id, setClause string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return backend.ErrStoreClosed
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE collections SET "+setClause+", updated_at = ? WHERE id = ?",
		value, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update collection: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return backend.ErrNotFound
	}
	return nil
}

// DeleteCollection removes a collection, all its descendant collections
// and every request they own, in one transaction.
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return backend.ErrStoreClosed
	}

	ids, err := s.collectSubtree(ctx, id)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, cid := range ids {
		args[i] = cid
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM requests WHERE collection_id IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("failed to delete collection requests: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM collections WHERE id IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("failed to delete collections: %w", err)
	}

	return tx.Commit()
}

// collectSubtree gathers a collection id and all its descendants with a
// breadth-first walk over parent_id links.
func (s *Store) collectSubtree(ctx context.Context, rootID string) ([]string, error) {
	ids := []string{rootID}
	queue := []string{rootID}
	seen := map[string]bool{rootID: true}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		rows, err := s.db.QueryContext(ctx,
			"SELECT id FROM collections WHERE parent_id = ?", current)
		if err != nil {
			return nil, fmt.Errorf("failed to walk collection tree: %w", err)
		}
		for rows.Next() {
			var childID string
			if err := rows.Scan(&childID); err != nil {
				rows.Close()
				return nil, err
			}
			if !seen[childID] {
				seen[childID] = true
				ids = append(ids, childID)
				queue = append(queue, childID)
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}

	return ids, nil
}

// ListRequests returns the requests owned by a collection, most
// recently updated first. A nil collectionID lists root-level requests.
func (s *Store) ListRequests(ctx context.Context, collectionID *string) ([]core.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, backend.ErrStoreClosed
	}

	query := `
		SELECT id, name, method, url, headers, body, path_params, collection_id, created_at, updated_at
		FROM requests WHERE collection_id IS NULL ORDER BY updated_at DESC
	`
	var args []any
	if collectionID != nil {
		query = `
			SELECT id, name, method, url, headers, body, path_params, collection_id, created_at, updated_at
			FROM requests WHERE collection_id = ? ORDER BY updated_at DESC
		`
		args = append(args, *collectionID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var requests []core.Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, request)
	}

	return requests, rows.Err()
}

// SaveRequest inserts or updates a request and returns the
// authoritative record. An empty id means insert.
func (s *Store) SaveRequest(ctx context.Context, req core.Request) (core.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.Request{}, backend.ErrStoreClosed
	}

	now := time.Now().UTC()
	saved := req.Clone()
	saved.UpdatedAt = &now

	if saved.ID == "" {
		saved.ID = uuid.New().String()
		saved.CreatedAt = &now
	} else {
		// Preserve the original creation time when the row exists.
		var createdAt time.Time
		err := s.db.QueryRowContext(ctx,
			"SELECT created_at FROM requests WHERE id = ?", saved.ID).Scan(&createdAt)
		switch {
		case err == sql.ErrNoRows:
			saved.CreatedAt = &now
		case err != nil:
			return core.Request{}, fmt.Errorf("failed to look up request: %w", err)
		default:
			saved.CreatedAt = &createdAt
		}
	}

	headersJSON, _ := json.Marshal(saved.Headers)
	pathParamsJSON, _ := json.Marshal(saved.PathParams)
	bodyJSON, err := core.EncodeBody(saved.Body)
	if err != nil {
		return core.Request{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO requests (id, name, method, url, headers, body, path_params, collection_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, method = excluded.method, url = excluded.url,
			headers = excluded.headers, body = excluded.body, path_params = excluded.path_params,
			collection_id = excluded.collection_id, updated_at = excluded.updated_at
	`, saved.ID, saved.Name, saved.Method, saved.URL, string(headersJSON),
		nullableBytes(bodyJSON), string(pathParamsJSON), nullable(saved.CollectionID),
		saved.CreatedAt, saved.UpdatedAt)
	if err != nil {
		return core.Request{}, fmt.Errorf("failed to save request: %w", err)
	}

	return saved, nil
}

// MoveRequest reassigns a request to another collection; nil means root.
func (s *Store) MoveRequest(ctx context.Context, requestID string, newCollectionID *string) error {
	return s.updateRequest(ctx, requestID, "collection_id = ?", nullable(newCollectionID))
}

// RenameRequest updates a request name.
func (s *Store) RenameRequest(ctx context.Context, requestID, name string) error {
	return s.updateRequest(ctx, requestID, "name = ?", name)
}

func (s *Store) updateRequest(ctx context.Context, id, setClause string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return backend.ErrStoreClosed
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE requests SET "+setClause+", updated_at = ? WHERE id = ?",
		value, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return backend.ErrNotFound
	}
	return nil
}

// DeleteRequest removes a request.
func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return backend.ErrStoreClosed
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM requests WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return backend.ErrNotFound
	}
	return nil
}

// Helper functions

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func encodeAuth(auth *core.AuthConfig) (any, error) {
	if auth == nil {
		return nil, nil
	}
	data, err := json.Marshal(auth)
	if err != nil {
		return nil, fmt.Errorf("failed to encode auth config: %w", err)
	}
	return string(data), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCollection(row rowScanner) (core.Collection, error) {
	var c core.Collection
	var description, parentID, authJSON sql.NullString

	err := row.Scan(&c.ID, &c.Name, &description, &parentID, &authJSON, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}

	c.Description = description.String
	if parentID.Valid {
		id := parentID.String
		c.ParentID = &id
	}
	if authJSON.Valid && authJSON.String != "" {
		var auth core.AuthConfig
		if err := json.Unmarshal([]byte(authJSON.String), &auth); err != nil {
			return c, fmt.Errorf("failed to decode auth config: %w", err)
		}
		c.Auth = &auth
	}

	return c, nil
}

func scanRequest(row rowScanner) (core.Request, error) {
	var r core.Request
	var headersJSON, bodyJSON, pathParamsJSON, collectionID sql.NullString
	var createdAt, updatedAt time.Time

	err := row.Scan(&r.ID, &r.Name, &r.Method, &r.URL, &headersJSON, &bodyJSON,
		&pathParamsJSON, &collectionID, &createdAt, &updatedAt)
	if err != nil {
		return r, err
	}

	r.Headers = make(map[string]string)
	if headersJSON.Valid {
		json.Unmarshal([]byte(headersJSON.String), &r.Headers)
	}
	if pathParamsJSON.Valid && pathParamsJSON.String != "null" {
		json.Unmarshal([]byte(pathParamsJSON.String), &r.PathParams)
	}
	if bodyJSON.Valid {
		body, err := core.DecodeBody([]byte(bodyJSON.String))
		if err != nil {
			return r, err
		}
		r.Body = body
	}
	if collectionID.Valid {
		id := collectionID.String
		r.CollectionID = &id
	}
	r.CreatedAt = &createdAt
	r.UpdatedAt = &updatedAt

	return r, nil
}
