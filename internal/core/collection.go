package core

import (
	"time"

	"github.com/google/uuid"
)

// RootID is the reserved identifier meaning "no parent collection".
// It appears wherever a parent or target collection id is expected in a
// move operation or a drop target.
const RootID = "root"

// Collection is a named, optionally nested container for requests.
// Collections form a forest via ParentID; a nil ParentID means the
// collection sits at the top level.
type Collection struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	ParentID    *string     `json:"parent_id,omitempty"`
	Auth        *AuthConfig `json:"auth,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewCollection creates a collection with a fresh id.
func NewCollection(name, description string, parentID *string) Collection {
	now := time.Now().UTC()
	return Collection{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		ParentID:    parentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Environment is a named set of variables. At most one environment is
// active at a time.
type Environment struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Variables map[string]string `json:"variables"`
	IsActive  bool              `json:"is_active"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewEnvironment creates an inactive environment with a fresh id.
func NewEnvironment(name string, variables map[string]string) Environment {
	if variables == nil {
		variables = make(map[string]string)
	}
	now := time.Now().UTC()
	return Environment{
		ID:        uuid.New().String(),
		Name:      name,
		Variables: variables,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
