package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"restdeck/internal/backend"
	"restdeck/internal/core"
)

// ListEnvironments returns all environments, newest first.
func (s *Store) ListEnvironments(ctx context.Context) ([]core.Environment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, backend.ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, variables, is_active, created_at, updated_at
		FROM environments ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list environments: %w", err)
	}
	defer rows.Close()

	var environments []core.Environment
	for rows.Next() {
		env, err := scanEnvironment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan environment: %w", err)
		}
		environments = append(environments, env)
	}

	return environments, rows.Err()
}

// ActiveEnvironment returns the active environment, or nil when none is
// active.
func (s *Store) ActiveEnvironment(ctx context.Context) (*core.Environment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, backend.ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, variables, is_active, created_at, updated_at
		FROM environments WHERE is_active = 1 LIMIT 1
	`)
	env, err := scanEnvironment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active environment: %w", err)
	}
	return &env, nil
}

// CreateEnvironment inserts a new environment and returns it.
func (s *Store) CreateEnvironment(ctx context.Context, name string, variables map[string]string) (core.Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.Environment{}, backend.ErrStoreClosed
	}

	env := core.NewEnvironment(name, variables)
	variablesJSON, err := json.Marshal(env.Variables)
	if err != nil {
		return core.Environment{}, fmt.Errorf("failed to encode variables: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO environments (id, name, variables, is_active, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)
	`, env.ID, env.Name, string(variablesJSON), env.CreatedAt, env.UpdatedAt)
	if err != nil {
		return core.Environment{}, fmt.Errorf("failed to insert environment: %w", err)
	}

	return env, nil
}

// UpdateEnvironment replaces an environment's name and variables and
// returns the authoritative record.
func (s *Store) UpdateEnvironment(ctx context.Context, id, name string, variables map[string]string) (core.Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.Environment{}, backend.ErrStoreClosed
	}

	if variables == nil {
		variables = make(map[string]string)
	}
	variablesJSON, err := json.Marshal(variables)
	if err != nil {
		return core.Environment{}, fmt.Errorf("failed to encode variables: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE environments SET name = ?, variables = ?, updated_at = ? WHERE id = ?
	`, name, string(variablesJSON), time.Now().UTC(), id)
	if err != nil {
		return core.Environment{}, fmt.Errorf("failed to update environment: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return core.Environment{}, backend.ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, variables, is_active, created_at, updated_at
		FROM environments WHERE id = ?
	`, id)
	env, err := scanEnvironment(row)
	if err != nil {
		return core.Environment{}, fmt.Errorf("failed to load environment: %w", err)
	}
	return env, nil
}

// DeleteEnvironment removes an environment. Deleting the active
// environment leaves no environment active.
func (s *Store) DeleteEnvironment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return backend.ErrStoreClosed
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM environments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete environment: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return backend.ErrNotFound
	}
	return nil
}

// SetActiveEnvironment marks one environment active and deactivates the
// rest. A nil id deactivates all environments.
func (s *Store) SetActiveEnvironment(ctx context.Context, id *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return backend.ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "UPDATE environments SET is_active = 0"); err != nil {
		return fmt.Errorf("failed to deactivate environments: %w", err)
	}

	if id != nil {
		result, err := tx.ExecContext(ctx,
			"UPDATE environments SET is_active = 1, updated_at = ? WHERE id = ?",
			time.Now().UTC(), *id)
		if err != nil {
			return fmt.Errorf("failed to activate environment: %w", err)
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return backend.ErrNotFound
		}
	}

	return tx.Commit()
}

func scanEnvironment(row rowScanner) (core.Environment, error) {
	var env core.Environment
	var variablesJSON sql.NullString
	var isActive int

	err := row.Scan(&env.ID, &env.Name, &variablesJSON, &isActive, &env.CreatedAt, &env.UpdatedAt)
	if err != nil {
		return env, err
	}

	env.Variables = make(map[string]string)
	if variablesJSON.Valid {
		json.Unmarshal([]byte(variablesJSON.String), &env.Variables)
	}
	env.IsActive = isActive != 0

	return env, nil
}
