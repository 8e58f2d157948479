package workspace

import "restdeck/internal/core"

// ResolveAuth computes the authorization headers a request inherits
// from its collection chain. The walk starts at the owning collection
// and climbs parent links until it finds a collection whose auth
// configuration yields headers. A visited guard bounds the walk should
// the tree ever carry a cycle.
func ResolveAuth(collectionID *string, collections []core.Collection) map[string]string {
	headers := make(map[string]string)
	if collectionID == nil {
		return headers
	}

	byID := make(map[string]core.Collection, len(collections))
	for _, c := range collections {
		byID[c.ID] = c
	}

	visited := make(map[string]bool)
	current := *collectionID
	for {
		if visited[current] {
			return headers
		}
		visited[current] = true

		collection, ok := byID[current]
		if !ok {
			return headers
		}
		if collection.Auth.IsConfigured() {
			if derived := collection.Auth.Headers(); len(derived) > 0 {
				return derived
			}
		}
		if collection.ParentID == nil {
			return headers
		}
		current = *collection.ParentID
	}
}

// EffectiveHeaders merges a request's own headers over its inherited
// auth headers. Request-defined keys win unconditionally; the key match
// is case-sensitive, so a request "authorization" header coexists with
// an inherited "Authorization" one.
func EffectiveHeaders(req core.Request, collections []core.Collection) map[string]string {
	headers := ResolveAuth(req.CollectionID, collections)
	for key, value := range req.Headers {
		headers[key] = value
	}
	return headers
}
