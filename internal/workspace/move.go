package workspace

import (
	"errors"

	"github.com/google/uuid"

	"restdeck/internal/core"
)

// ErrInvalidID is returned when a drop target carries an identifier
// that is neither UUID-shaped nor the root sentinel. This is a
// malformed-event error, raised before any backend call.
var ErrInvalidID = errors.New("invalid drop target identifier")

// ResolveDropTarget turns a raw drop-target identifier into the parent
// (or owning collection) id a move should use. An empty identifier or
// the root sentinel resolves to nil, meaning top level.
func ResolveDropTarget(raw string) (*string, error) {
	if raw == "" || raw == core.RootID {
		return nil, nil
	}
	if _, err := uuid.Parse(raw); err != nil {
		return nil, ErrInvalidID
	}
	id := raw
	return &id, nil
}

// DragState is the transient drag-and-drop feedback: the id being
// dragged and the target currently hovered. It is reset unconditionally
// when a move resolves, whatever the outcome.
type DragState struct {
	ActiveID   string
	OverTarget string
}

// StartDrag records the id a drag gesture picked up.
func (s *Store) StartDrag(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag.ActiveID = id
}

// DragOver records the target currently hovered during a drag.
func (s *Store) DragOver(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag.OverTarget = target
}

// Drag returns the current drag state.
func (s *Store) Drag() DragState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag
}

func (s *Store) clearDragLocked() {
	s.drag = DragState{}
}
