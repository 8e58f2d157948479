package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"restdeck/internal/backend"
	"restdeck/internal/core"
	"restdeck/internal/format"
	"restdeck/internal/importer"
	"restdeck/internal/interpolate"
)

// Send resolves path parameters and environment variables against the
// active environment, executes the request through the configured
// requester and records the exchange in history. History stores the
// payload as given, not the resolved form.
func (s *Store) Send(ctx context.Context, payload core.SendPayload) (*core.Response, error) {
	if s.requester == nil {
		return nil, fmt.Errorf("no requester configured")
	}

	env, err := s.ActiveEnvironment(ctx)
	if err != nil {
		return nil, err
	}

	resolved, err := resolvePayload(payload, env)
	if err != nil {
		return nil, err
	}

	response, err := s.requester.Send(ctx, resolved)
	if err != nil {
		return nil, err
	}

	record := core.Request{
		Name:       payload.Method + " " + payload.URL,
		Method:     payload.Method,
		URL:        payload.URL,
		Headers:    payload.Headers,
		Body:       payload.Body,
		PathParams: payload.PathParams,
	}
	if err := s.appendHistory(ctx, core.NewHistoryEntry(record, response)); err != nil {
		return nil, err
	}

	return response, nil
}

// resolvePayload applies path parameter substitution first, then
// environment variable interpolation across the URL, headers and body.
func resolvePayload(payload core.SendPayload, env *core.Environment) (core.SendPayload, error) {
	variables := map[string]string{}
	if env != nil {
		variables = env.Variables
	}
	engine := interpolate.NewEngine(variables)

	resolved := payload
	resolved.URL = engine.Interpolate(interpolate.ReplacePathParams(payload.URL, payload.PathParams))
	resolved.Headers = engine.InterpolateMap(payload.Headers)
	resolved.PathParams = nil

	body, err := interpolateBody(payload.Body, engine)
	if err != nil {
		return core.SendPayload{}, err
	}
	resolved.Body = body

	return resolved, nil
}

func interpolateBody(body core.Body, engine *interpolate.Engine) (core.Body, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case core.RawBody:
		return core.RawBody{
			Content:     engine.Interpolate(b.Content),
			ContentType: b.ContentType,
		}, nil
	case core.JSONBody:
		value := engine.Interpolate(string(b.Value))
		if !json.Valid([]byte(value)) {
			return nil, fmt.Errorf("body is not valid JSON after variable substitution")
		}
		return core.JSONBody{Value: json.RawMessage(value)}, nil
	case core.FormDataBody:
		return core.FormDataBody{Fields: engine.InterpolateMap(b.Fields)}, nil
	case core.URLEncodedBody:
		return core.URLEncodedBody{Fields: engine.InterpolateMap(b.Fields)}, nil
	default:
		return nil, fmt.Errorf("unknown body kind: %s", body.Kind())
	}
}

func (s *Store) appendHistory(ctx context.Context, entry core.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return backend.ErrStoreClosed
	}

	requestJSON, err := json.Marshal(entry.Request)
	if err != nil {
		return fmt.Errorf("failed to encode history request: %w", err)
	}
	var responseJSON any
	if entry.Response != nil {
		data, err := json.Marshal(entry.Response)
		if err != nil {
			return fmt.Errorf("failed to encode history response: %w", err)
		}
		responseJSON = string(data)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO history (id, request, response, timestamp) VALUES (?, ?, ?, ?)
	`, entry.ID, string(requestJSON), responseJSON, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}

	if s.historyLimit > 0 {
		_, err = s.db.ExecContext(ctx, `
			DELETE FROM history WHERE id NOT IN (
				SELECT id FROM history ORDER BY timestamp DESC LIMIT ?
			)
		`, s.historyLimit)
		if err != nil {
			return fmt.Errorf("failed to prune history: %w", err)
		}
	}

	return nil
}

// History returns recorded exchanges, newest first. A non-positive
// limit returns everything.
func (s *Store) History(ctx context.Context, limit int) ([]core.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, backend.ErrStoreClosed
	}

	query := "SELECT id, request, response, timestamp FROM history ORDER BY timestamp DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []core.HistoryEntry
	for rows.Next() {
		var entry core.HistoryEntry
		var requestJSON string
		var responseJSON *string

		if err := rows.Scan(&entry.ID, &requestJSON, &responseJSON, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if err := json.Unmarshal([]byte(requestJSON), &entry.Request); err != nil {
			return nil, fmt.Errorf("failed to decode history request: %w", err)
		}
		if responseJSON != nil {
			var response core.Response
			if err := json.Unmarshal([]byte(*responseJSON), &response); err != nil {
				return nil, fmt.Errorf("failed to decode history response: %w", err)
			}
			entry.Response = &response
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// ClearHistory removes all recorded exchanges.
func (s *Store) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return backend.ErrStoreClosed
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM history"); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// FormatText pretty-prints JSON content.
func (s *Store) FormatText(ctx context.Context, content string) (string, error) {
	return format.JSON(content)
}

// ImportCollection parses the raw content, detecting the format: native
// bundles, Postman collection exports and OpenAPI 3.x documents are all
// accepted. The resulting forest is stored under freshly minted
// identifiers in one transaction; the root collection is returned.
func (s *Store) ImportCollection(ctx context.Context, raw string) (core.Collection, error) {
	collections, requests, _, err := importer.Parse([]byte(raw))
	if err != nil {
		return core.Collection{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.Collection{}, backend.ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Collection{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, collection := range collections {
		authJSON, err := encodeAuth(collection.Auth)
		if err != nil {
			return core.Collection{}, err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO collections (id, name, description, parent_id, auth, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, collection.ID, collection.Name, collection.Description, nullable(collection.ParentID),
			authJSON, collection.CreatedAt, collection.UpdatedAt)
		if err != nil {
			return core.Collection{}, fmt.Errorf("failed to insert imported collection: %w", err)
		}
	}

	for _, req := range requests {
		headersJSON, _ := json.Marshal(req.Headers)
		pathParamsJSON, _ := json.Marshal(req.PathParams)
		bodyJSON, err := core.EncodeBody(req.Body)
		if err != nil {
			return core.Collection{}, err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO requests (id, name, method, url, headers, body, path_params, collection_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, req.ID, req.Name, req.Method, req.URL, string(headersJSON),
			nullableBytes(bodyJSON), string(pathParamsJSON), nullable(req.CollectionID),
			req.CreatedAt, req.UpdatedAt)
		if err != nil {
			return core.Collection{}, fmt.Errorf("failed to insert imported request: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.Collection{}, err
	}
	return collections[0], nil
}

// ExportCollection serializes a collection and its direct requests as a
// bundle.
func (s *Store) ExportCollection(ctx context.Context, id string) ([]byte, error) {
	s.mu.RLock()

	if s.closed {
		s.mu.RUnlock()
		return nil, backend.ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, parent_id, auth, created_at, updated_at
		FROM collections WHERE id = ?
	`, id)
	collection, err := scanCollection(row)
	s.mu.RUnlock()
	if err == sql.ErrNoRows {
		return nil, backend.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}

	requests, err := s.ListRequests(ctx, &id)
	if err != nil {
		return nil, err
	}

	bundle := importer.NewBundle(collection, requests)
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode bundle: %w", err)
	}
	return data, nil
}
