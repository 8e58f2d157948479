// Package workspace holds the client-side state engine: the collection
// tree, open tabs, environments, and the synchronization logic that
// keeps them coherent with the persistence backend.
package workspace

import (
	"errors"

	"restdeck/internal/core"
)

// ErrCycle is returned when a collection move would make a collection
// its own ancestor.
var ErrCycle = errors.New("move would create a cycle")

type treeNode struct {
	collection core.Collection
	children   []string
}

// TreeIndex is the in-memory view of the collection forest plus the
// per-collection request caches. Collections are kept in an arena of
// nodes with explicit child links so descendant walks are iterative and
// bounded. Request caches are keyed by collection id, with the sentinel
// root bucket holding collection-less requests; a bucket that was never
// set means "not fetched yet", not "empty".
type TreeIndex struct {
	nodes    map[string]*treeNode
	order    []string
	requests map[string][]core.Request
	loading  map[string]bool
}

// NewTreeIndex creates an empty index.
func NewTreeIndex() *TreeIndex {
	return &TreeIndex{
		nodes:    make(map[string]*treeNode),
		requests: make(map[string][]core.Request),
		loading:  make(map[string]bool),
	}
}

func bucketKey(collectionID *string) string {
	if collectionID == nil {
		return core.RootID
	}
	return *collectionID
}

// SetCollections replaces the whole forest with a fresh list, keeping
// the request caches.
func (t *TreeIndex) SetCollections(collections []core.Collection) {
	t.nodes = make(map[string]*treeNode, len(collections))
	t.order = make([]string, 0, len(collections))
	for _, c := range collections {
		t.nodes[c.ID] = &treeNode{collection: c}
		t.order = append(t.order, c.ID)
	}
	t.rebuildChildren()
}

func (t *TreeIndex) rebuildChildren() {
	for _, node := range t.nodes {
		node.children = node.children[:0]
	}
	for _, id := range t.order {
		c := t.nodes[id].collection
		if c.ParentID == nil {
			continue
		}
		if parent, ok := t.nodes[*c.ParentID]; ok {
			parent.children = append(parent.children, id)
		}
	}
}

// Collections returns all collections in list order.
func (t *TreeIndex) Collections() []core.Collection {
	result := make([]core.Collection, 0, len(t.order))
	for _, id := range t.order {
		result = append(result, t.nodes[id].collection)
	}
	return result
}

// Collection looks up one collection by id.
func (t *TreeIndex) Collection(id string) (core.Collection, bool) {
	node, ok := t.nodes[id]
	if !ok {
		return core.Collection{}, false
	}
	return node.collection, true
}

// RootCollections returns the collections with no parent.
func (t *TreeIndex) RootCollections() []core.Collection {
	var result []core.Collection
	for _, id := range t.order {
		c := t.nodes[id].collection
		if c.ParentID == nil {
			result = append(result, c)
		}
	}
	return result
}

// ChildrenOf returns the direct children of a collection.
func (t *TreeIndex) ChildrenOf(id string) []core.Collection {
	node, ok := t.nodes[id]
	if !ok {
		return nil
	}
	result := make([]core.Collection, 0, len(node.children))
	for _, childID := range node.children {
		result = append(result, t.nodes[childID].collection)
	}
	return result
}

// DescendantIDs returns a collection id plus all its transitive
// children. The walk is iterative with a visited set, so a corrupted
// cyclic tree terminates instead of recursing forever.
func (t *TreeIndex) DescendantIDs(id string) map[string]bool {
	visited := make(map[string]bool)
	if _, ok := t.nodes[id]; !ok {
		return visited
	}

	stack := []string{id}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[current] {
			continue
		}
		visited[current] = true
		if node, ok := t.nodes[current]; ok {
			stack = append(stack, node.children...)
		}
	}
	return visited
}

// CheckMove rejects a reparenting that would make movingID its own
// ancestor. A nil newParentID (move to root) is always structurally
// valid.
func (t *TreeIndex) CheckMove(movingID string, newParentID *string) error {
	if newParentID == nil {
		return nil
	}
	if t.DescendantIDs(movingID)[*newParentID] {
		return ErrCycle
	}
	return nil
}

// UpsertCollection inserts or replaces a collection record.
func (t *TreeIndex) UpsertCollection(c core.Collection) {
	if _, ok := t.nodes[c.ID]; !ok {
		t.order = append(t.order, c.ID)
		t.nodes[c.ID] = &treeNode{collection: c}
	} else {
		t.nodes[c.ID].collection = c
	}
	t.rebuildChildren()
}

// RemoveCollections drops a set of collections and their request
// caches.
func (t *TreeIndex) RemoveCollections(ids map[string]bool) {
	if len(ids) == 0 {
		return
	}
	order := t.order[:0]
	for _, id := range t.order {
		if ids[id] {
			delete(t.nodes, id)
			delete(t.requests, id)
			delete(t.loading, id)
		} else {
			order = append(order, id)
		}
	}
	t.order = order
	t.rebuildChildren()
}

// Requests returns the cached request list for a collection. The second
// result reports whether the bucket has been fetched at all.
func (t *TreeIndex) Requests(collectionID *string) ([]core.Request, bool) {
	list, ok := t.requests[bucketKey(collectionID)]
	return list, ok
}

// SetRequests replaces a collection's cached request list.
func (t *TreeIndex) SetRequests(collectionID *string, list []core.Request) {
	t.requests[bucketKey(collectionID)] = list
}

// SetLoading flags a bucket as having a fetch in flight.
func (t *TreeIndex) SetLoading(collectionID *string, loading bool) {
	key := bucketKey(collectionID)
	if loading {
		t.loading[key] = true
	} else {
		delete(t.loading, key)
	}
}

// IsLoading reports whether a bucket fetch is in flight.
func (t *TreeIndex) IsLoading(collectionID *string) bool {
	return t.loading[bucketKey(collectionID)]
}

// FindRequest looks up a cached request by id across all buckets.
func (t *TreeIndex) FindRequest(requestID string) (core.Request, bool) {
	for _, list := range t.requests {
		for _, req := range list {
			if req.ID == requestID {
				return req, true
			}
		}
	}
	return core.Request{}, false
}

// RemoveRequestFromCaches drops a request from every bucket that lists
// it.
func (t *TreeIndex) RemoveRequestFromCaches(requestID string) {
	for key, list := range t.requests {
		filtered := list[:0]
		for _, req := range list {
			if req.ID != requestID {
				filtered = append(filtered, req)
			}
		}
		t.requests[key] = filtered
	}
}

// UpdateCachedRequest replaces a request record in every bucket that
// lists it.
func (t *TreeIndex) UpdateCachedRequest(updated core.Request) {
	for key, list := range t.requests {
		for i, req := range list {
			if req.ID == updated.ID {
				list[i] = updated
				t.requests[key] = list
			}
		}
	}
}

// RenameRequest updates a request's name in every bucket that lists it.
func (t *TreeIndex) RenameRequest(requestID, name string) {
	for key, list := range t.requests {
		for i, req := range list {
			if req.ID == requestID {
				list[i].Name = name
				t.requests[key] = list
			}
		}
	}
}

// RelocateRequest moves a cached request between buckets: at most one
// entry leaves the source bucket and, when the target bucket has been
// fetched, exactly one entry with the updated collection id joins it.
// The record carries the request and its current collection, so the
// target bucket receives the entry even when the source bucket was
// never fetched.
func (t *TreeIndex) RelocateRequest(record core.Request, to *string) {
	fromKey := bucketKey(record.CollectionID)
	var moved *core.Request

	list := t.requests[fromKey]
	filtered := list[:0]
	for _, req := range list {
		if req.ID == record.ID && moved == nil {
			r := req.Clone()
			moved = &r
			continue
		}
		filtered = append(filtered, req)
	}
	if moved != nil {
		t.requests[fromKey] = filtered
	} else {
		r := record.Clone()
		moved = &r
	}

	if to == nil {
		moved.CollectionID = nil
	} else {
		id := *to
		moved.CollectionID = &id
	}
	toKey := bucketKey(to)
	existing, ok := t.requests[toKey]
	if !ok {
		return
	}
	for _, req := range existing {
		if req.ID == moved.ID {
			return
		}
	}
	t.requests[toKey] = append(existing, *moved)
}

// clone deep-copies the index so a snapshot can be restored after a
// failed backend call.
func (t *TreeIndex) clone() *TreeIndex {
	c := NewTreeIndex()
	c.order = append([]string(nil), t.order...)
	for id, node := range t.nodes {
		c.nodes[id] = &treeNode{
			collection: node.collection,
			children:   append([]string(nil), node.children...),
		}
	}
	for key, list := range t.requests {
		copied := make([]core.Request, len(list))
		for i, req := range list {
			copied[i] = req.Clone()
		}
		c.requests[key] = copied
	}
	for key, v := range t.loading {
		c.loading[key] = v
	}
	return c
}
