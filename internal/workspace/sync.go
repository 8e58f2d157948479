package workspace

import (
	"context"

	"restdeck/internal/backend"
	"restdeck/internal/core"
)

// Every action in this file crosses the backend boundary. The shared
// shape: validate locally, snapshot the state an optimistic mutation
// touches, apply the mutation as one transition, release the lock for
// the backend call, then reconcile on success or restore the snapshot
// on failure. Acting on an id that no longer exists locally is a
// silent no-op, since state may have changed while another call was in
// flight. No action retries.

func (s *Store) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	s.logger.Error("backend call failed", "op", op, "error", err)
	return backend.WrapCall(op, err)
}

// Initialize loads the collection and environment caches.
func (s *Store) Initialize(ctx context.Context) error {
	if err := s.RefreshCollections(ctx); err != nil {
		return err
	}
	return s.RefreshEnvironments(ctx)
}

// RefreshCollections replaces the collection cache with the backend's
// full list.
func (s *Store) RefreshCollections(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return s.wrap("list collections", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.SetCollections(collections)
	return nil
}

// CreateCollection creates a collection on the backend and inserts the
// authoritative record locally. A failed create touches nothing.
func (s *Store) CreateCollection(ctx context.Context, name, description string, parentID *string) (core.Collection, error) {
	collection, err := s.client.CreateCollection(ctx, name, description, parentID)
	if err != nil {
		return core.Collection{}, s.wrap("create collection", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.UpsertCollection(collection)
	return collection, nil
}

// RenameCollection renames a collection optimistically and rolls the
// rename back if the backend rejects it.
func (s *Store) RenameCollection(ctx context.Context, id, name string) error {
	s.mu.Lock()
	collection, ok := s.tree.Collection(id)
	if !ok {
		s.mu.Unlock()
		return nil
	}
	snap := s.snapshotLocked()
	collection.Name = name
	s.tree.UpsertCollection(collection)
	s.mu.Unlock()

	if err := s.client.RenameCollection(ctx, id, name); err != nil {
		s.mu.Lock()
		s.restoreLocked(snap)
		s.mu.Unlock()
		return s.wrap("rename collection", err)
	}
	return nil
}

// SetCollectionAuth updates a collection's auth configuration
// optimistically with rollback on failure.
func (s *Store) SetCollectionAuth(ctx context.Context, id string, auth *core.AuthConfig) error {
	s.mu.Lock()
	collection, ok := s.tree.Collection(id)
	if !ok {
		s.mu.Unlock()
		return nil
	}
	snap := s.snapshotLocked()
	collection.Auth = auth.Clone()
	s.tree.UpsertCollection(collection)
	s.mu.Unlock()

	if err := s.client.SetCollectionAuth(ctx, id, auth); err != nil {
		s.mu.Lock()
		s.restoreLocked(snap)
		s.mu.Unlock()
		return s.wrap("set collection auth", err)
	}
	return nil
}

// DeleteCollection deletes a collection subtree. All local effects are
// derived from one descendant snapshot and applied in one transition:
// the matching collections leave the tree, their request caches are
// purged, every tab showing a request owned by the subtree closes with
// the usual closest-neighbor active selection, and the selected
// collection clears if it pointed into the subtree. The backend
// cascades server-side; a backend failure restores the snapshot.
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.tree.Collection(id); !ok {
		s.mu.Unlock()
		return nil
	}
	snap := s.snapshotLocked()

	doomed := s.tree.DescendantIDs(id)
	s.tree.RemoveCollections(doomed)
	s.tabs.CloseWhere(func(tab *Tab) bool {
		return tab.Request.CollectionID != nil && doomed[*tab.Request.CollectionID]
	})
	if s.selectedCollection != nil && doomed[*s.selectedCollection] {
		s.selectedCollection = nil
	}
	s.mu.Unlock()

	if err := s.client.DeleteCollection(ctx, id); err != nil {
		s.mu.Lock()
		s.restoreLocked(snap)
		s.mu.Unlock()
		return s.wrap("delete collection", err)
	}
	return nil
}

// MoveCollection reparents a collection. The target is validated and
// cycle-checked before any backend call; after backend success the
// whole collection list is refreshed rather than patched locally.
func (s *Store) MoveCollection(ctx context.Context, collectionID, target string) error {
	defer func() {
		s.mu.Lock()
		s.clearDragLocked()
		s.mu.Unlock()
	}()

	newParentID, err := ResolveDropTarget(target)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if _, ok := s.tree.Collection(collectionID); !ok {
		s.mu.Unlock()
		return nil
	}
	if err := s.tree.CheckMove(collectionID, newParentID); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	if err := s.client.MoveCollection(ctx, collectionID, newParentID); err != nil {
		return s.wrap("move collection", err)
	}
	return s.RefreshCollections(ctx)
}

// ImportCollection hands raw import content to the backend, which
// detects the format, then reloads the collection list and the imported
// root collection's request cache.
func (s *Store) ImportCollection(ctx context.Context, raw string) (core.Collection, error) {
	collection, err := s.client.ImportCollection(ctx, raw)
	if err != nil {
		return core.Collection{}, s.wrap("import collection", err)
	}

	if err := s.RefreshCollections(ctx); err != nil {
		return core.Collection{}, err
	}
	if _, err := s.LoadRequests(ctx, &collection.ID); err != nil {
		return core.Collection{}, err
	}
	return collection, nil
}

// ExportCollection serializes a collection and its requests.
func (s *Store) ExportCollection(ctx context.Context, id string) ([]byte, error) {
	data, err := s.client.ExportCollection(ctx, id)
	if err != nil {
		return nil, s.wrap("export collection", err)
	}
	return data, nil
}

// LoadRequests fetches a collection's request list into the cache. The
// bucket's loading flag is cleared on both paths.
func (s *Store) LoadRequests(ctx context.Context, collectionID *string) ([]core.Request, error) {
	s.mu.Lock()
	s.tree.SetLoading(collectionID, true)
	s.mu.Unlock()

	requests, err := s.client.ListRequests(ctx, collectionID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.SetLoading(collectionID, false)
	if err != nil {
		return nil, s.wrap("list requests", err)
	}
	s.tree.SetRequests(collectionID, requests)
	return requests, nil
}

// SaveTab persists a tab's draft. The backend's authoritative record
// replaces the draft, marks the tab saved and is reconciled into the
// request cache. A save on a tab that is already sending or saving is
// rejected with ErrBusy.
func (s *Store) SaveTab(ctx context.Context, tabID string) error {
	s.mu.Lock()
	tab := s.tabs.find(tabID)
	if tab == nil {
		s.mu.Unlock()
		return nil
	}
	if err := s.tabs.StartFlight(tabID); err != nil {
		s.mu.Unlock()
		return err
	}
	draft := tab.Request.Clone()
	s.mu.Unlock()

	record, err := s.client.SaveRequest(ctx, draft)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs.EndFlight(tabID)
	if err != nil {
		return s.wrap("save request", err)
	}

	s.tabs.MarkSaved(tabID, record)
	s.tree.RemoveRequestFromCaches(record.ID)
	if bucket, ok := s.tree.Requests(record.CollectionID); ok {
		s.tree.SetRequests(record.CollectionID, append([]core.Request{record}, bucket...))
	}
	return nil
}

// SendTab executes a tab's draft through the backend. Inherited auth
// headers are resolved at send time; the request's own header keys win.
// A second send while one is outstanding is rejected with ErrBusy.
func (s *Store) SendTab(ctx context.Context, tabID string) (*core.Response, error) {
	s.mu.Lock()
	tab := s.tabs.find(tabID)
	if tab == nil {
		s.mu.Unlock()
		return nil, nil
	}
	if err := s.tabs.StartFlight(tabID); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	payload := core.SendPayload{
		Method:     tab.Request.Method,
		URL:        tab.Request.URL,
		Headers:    EffectiveHeaders(tab.Request, s.tree.Collections()),
		Body:       tab.Request.Body,
		PathParams: tab.Request.PathParams,
		Timeout:    s.sendTimeout,
	}
	s.mu.Unlock()

	response, err := s.client.Send(ctx, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs.EndFlight(tabID)
	if err != nil {
		return nil, s.wrap("send request", err)
	}
	if tab := s.tabs.find(tabID); tab != nil {
		tab.Response = response
	}
	return response, nil
}

// RenameRequest renames a saved request in every cache bucket that
// lists it and every open tab referencing its id, in one transition,
// then confirms with the backend. A rejection restores the snapshot.
func (s *Store) RenameRequest(ctx context.Context, requestID, name string) error {
	s.mu.Lock()
	_, cached := s.tree.FindRequest(requestID)
	if !cached && s.tabs.FindByRequestID(requestID) == nil {
		s.mu.Unlock()
		return nil
	}
	snap := s.snapshotLocked()
	s.tree.RenameRequest(requestID, name)
	for _, tab := range s.tabs.Tabs() {
		if tab.Request.ID == requestID {
			tab.Request.Name = name
			tab.Name = name
		}
	}
	s.mu.Unlock()

	if err := s.client.RenameRequest(ctx, requestID, name); err != nil {
		s.mu.Lock()
		s.restoreLocked(snap)
		s.mu.Unlock()
		return s.wrap("rename request", err)
	}
	return nil
}

// DeleteRequest removes a saved request from every cache bucket. Tabs
// showing it stay open but detach into unsaved drafts. A backend
// rejection restores the snapshot.
func (s *Store) DeleteRequest(ctx context.Context, requestID string) error {
	s.mu.Lock()
	_, cached := s.tree.FindRequest(requestID)
	if !cached && s.tabs.FindByRequestID(requestID) == nil {
		s.mu.Unlock()
		return nil
	}
	snap := s.snapshotLocked()
	s.tree.RemoveRequestFromCaches(requestID)
	for _, tab := range s.tabs.Tabs() {
		if tab.Request.ID == requestID {
			tab.Request.ID = ""
			tab.Saved = false
		}
	}
	s.mu.Unlock()

	if err := s.client.DeleteRequest(ctx, requestID); err != nil {
		s.mu.Lock()
		s.restoreLocked(snap)
		s.mu.Unlock()
		return s.wrap("delete request", err)
	}
	return nil
}

// MoveRequest reassigns a request to another collection. The cache
// relocation and the tab patch happen in one transition; a backend
// rejection restores the snapshot. The drop target defaults to root
// when empty.
func (s *Store) MoveRequest(ctx context.Context, requestID, target string) error {
	defer func() {
		s.mu.Lock()
		s.clearDragLocked()
		s.mu.Unlock()
	}()

	newCollectionID, err := ResolveDropTarget(target)
	if err != nil {
		return err
	}

	s.mu.Lock()
	var record core.Request
	if req, ok := s.tree.FindRequest(requestID); ok {
		record = req
	} else if tab := s.tabs.FindByRequestID(requestID); tab != nil {
		record = tab.Request.Clone()
	} else {
		s.mu.Unlock()
		return nil
	}
	snap := s.snapshotLocked()
	s.tree.RelocateRequest(record, newCollectionID)
	for _, tab := range s.tabs.Tabs() {
		if tab.Request.ID == requestID {
			tab.Request.CollectionID = newCollectionID
		}
	}
	s.mu.Unlock()

	if err := s.client.MoveRequest(ctx, requestID, newCollectionID); err != nil {
		s.mu.Lock()
		s.restoreLocked(snap)
		s.mu.Unlock()
		return s.wrap("move request", err)
	}
	return nil
}

// RefreshEnvironments replaces the environment cache and the active
// pointer with the backend's view.
func (s *Store) RefreshEnvironments(ctx context.Context) error {
	environments, err := s.client.ListEnvironments(ctx)
	if err != nil {
		return s.wrap("list environments", err)
	}
	active, err := s.client.ActiveEnvironment(ctx)
	if err != nil {
		return s.wrap("active environment", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.environments = environments
	s.activeEnv = active
	return nil
}

// CreateEnvironment creates an environment on the backend and appends
// the record locally.
func (s *Store) CreateEnvironment(ctx context.Context, name string, variables map[string]string) (core.Environment, error) {
	env, err := s.client.CreateEnvironment(ctx, name, variables)
	if err != nil {
		return core.Environment{}, s.wrap("create environment", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.environments = append(s.environments, env)
	return env, nil
}

// UpdateEnvironment updates an environment and reconciles the local
// record with the authoritative one.
func (s *Store) UpdateEnvironment(ctx context.Context, id, name string, variables map[string]string) error {
	env, err := s.client.UpdateEnvironment(ctx, id, name, variables)
	if err != nil {
		return s.wrap("update environment", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.environments {
		if s.environments[i].ID == id {
			s.environments[i] = env
		}
	}
	if s.activeEnv != nil && s.activeEnv.ID == id {
		s.activeEnv = &env
	}
	return nil
}

// DeleteEnvironment removes an environment. Deleting the active one
// leaves no environment active.
func (s *Store) DeleteEnvironment(ctx context.Context, id string) error {
	if err := s.client.DeleteEnvironment(ctx, id); err != nil {
		return s.wrap("delete environment", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	filtered := s.environments[:0]
	for _, env := range s.environments {
		if env.ID != id {
			filtered = append(filtered, env)
		}
	}
	s.environments = filtered
	if s.activeEnv != nil && s.activeEnv.ID == id {
		s.activeEnv = nil
	}
	return nil
}

// SetActiveEnvironment activates one environment exclusively; a nil id
// deactivates all.
func (s *Store) SetActiveEnvironment(ctx context.Context, id *string) error {
	if err := s.client.SetActiveEnvironment(ctx, id); err != nil {
		return s.wrap("set active environment", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeEnv = nil
	for i := range s.environments {
		active := id != nil && s.environments[i].ID == *id
		s.environments[i].IsActive = active
		if active {
			env := s.environments[i]
			s.activeEnv = &env
		}
	}
	return nil
}

// History returns recorded exchanges.
func (s *Store) History(ctx context.Context, limit int) ([]core.HistoryEntry, error) {
	entries, err := s.client.History(ctx, limit)
	if err != nil {
		return nil, s.wrap("list history", err)
	}
	return entries, nil
}

// ClearHistory drops all recorded exchanges.
func (s *Store) ClearHistory(ctx context.Context) error {
	return s.wrap("clear history", s.client.ClearHistory(ctx))
}

// FormatText pretty-prints content through the backend's formatting
// service.
func (s *Store) FormatText(ctx context.Context, content string) (string, error) {
	formatted, err := s.client.FormatText(ctx, content)
	if err != nil {
		return "", s.wrap("format text", err)
	}
	return formatted, nil
}
