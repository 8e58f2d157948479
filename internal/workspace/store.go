package workspace

import (
	"log/slog"
	"sync"

	"restdeck/internal/backend"
	"restdeck/internal/core"
)

// Store is the single state container the rest of the program reads
// and mutates through. It composes the collection tree, the tab list
// and the environment cache, and owns every call across the backend
// boundary. All action methods apply their local mutations as one
// atomic transition; the mutex is released around backend calls, so
// other actions may interleave during that suspension.
type Store struct {
	mu     sync.Mutex
	client backend.Client
	logger *slog.Logger

	tree *TreeIndex
	tabs *TabManager

	environments []core.Environment
	activeEnv    *core.Environment

	selectedCollection *string
	drag               DragState

	// sendTimeout is the per-request timeout in seconds passed to the
	// backend's send operation.
	sendTimeout int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithSendTimeout sets the outbound request timeout in seconds.
func WithSendTimeout(seconds int) StoreOption {
	return func(s *Store) {
		s.sendTimeout = seconds
	}
}

// New creates a workspace store backed by the given client.
func New(client backend.Client, opts ...StoreOption) *Store {
	s := &Store{
		client:      client,
		logger:      slog.Default(),
		tree:        NewTreeIndex(),
		tabs:        NewTabManager(),
		sendTimeout: 30,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// snapshot captures the mutable slices of state an optimistic action
// may need to roll back.
type snapshot struct {
	tree     *TreeIndex
	tabs     *TabManager
	selected *string
}

func (s *Store) snapshotLocked() snapshot {
	var selected *string
	if s.selectedCollection != nil {
		id := *s.selectedCollection
		selected = &id
	}
	return snapshot{
		tree:     s.tree.clone(),
		tabs:     s.tabs.clone(),
		selected: selected,
	}
}

func (s *Store) restoreLocked(snap snapshot) {
	s.tree = snap.tree
	s.tabs = snap.tabs
	s.selectedCollection = snap.selected
}

// Collections returns the cached collection list.
func (s *Store) Collections() []core.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Collections()
}

// RootCollections returns the cached top-level collections.
func (s *Store) RootCollections() []core.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.RootCollections()
}

// ChildrenOf returns the cached direct children of a collection.
func (s *Store) ChildrenOf(id string) []core.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.ChildrenOf(id)
}

// Requests returns the cached request list for a collection and whether
// that bucket has been fetched.
func (s *Store) Requests(collectionID *string) ([]core.Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Requests(collectionID)
}

// Environments returns the cached environment list.
func (s *Store) Environments() []core.Environment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.environments
}

// ActiveEnvironment returns the cached active environment, or nil.
func (s *Store) ActiveEnvironment() *core.Environment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeEnv
}

// SelectedCollection returns the currently selected collection id, or
// nil when the selection is at the top level.
func (s *Store) SelectedCollection() *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedCollection
}

// SelectCollection moves the selection pointer. The id is not
// validated; a later delete clears it if the subtree goes away.
func (s *Store) SelectCollection(id *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedCollection = id
}

// Tab surface. Tabs are purely client-side, so these never touch the
// backend.

// Tabs returns the open tabs.
func (s *Store) Tabs() []*Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tabs.Tabs()
}

// ActiveTab returns the active tab, or nil.
func (s *Store) ActiveTab() *Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tabs.ActiveTab()
}

// NewTab opens a blank draft tab and returns it.
func (s *Store) NewTab() *Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft := core.NewRequest()
	if s.selectedCollection != nil {
		id := *s.selectedCollection
		draft.CollectionID = &id
	}
	return s.tabs.AddTab(draft)
}

// OpenRequest opens a persisted request in a tab, switching to an
// existing tab when the request is already open.
func (s *Store) OpenRequest(req core.Request) *Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tabs.LoadRequest(req)
}

// SelectTab makes a tab active.
func (s *Store) SelectTab(tabID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs.SelectTab(tabID)
}

// CloseTab closes a tab.
func (s *Store) CloseTab(tabID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs.CloseTab(tabID)
}

// UpdateTab merges a patch into a tab's draft and marks it unsaved.
func (s *Store) UpdateTab(tabID string, patch RequestPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs.UpdateRequest(tabID, patch)
}
