package sqlite

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restdeck/internal/backend"
	"restdeck/internal/core"
)

// fakeRequester records the payload it was asked to execute.
type fakeRequester struct {
	last     core.SendPayload
	response *core.Response
	err      error
}

func (f *fakeRequester) Send(ctx context.Context, payload core.SendPayload) (*core.Response, error) {
	f.last = payload
	if f.err != nil {
		return nil, f.err
	}
	if f.response != nil {
		return f.response, nil
	}
	return &core.Response{Status: 200, StatusText: "OK", Body: "ok"}, nil
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	store, err := NewInMemory(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCollections(t *testing.T) {
	ctx := context.Background()

	t.Run("create and list", func(t *testing.T) {
		store := newTestStore(t)

		first, err := store.CreateCollection(ctx, "API Tests", "smoke suite", nil)
		require.NoError(t, err)
		assert.NotEmpty(t, first.ID)
		assert.Equal(t, "API Tests", first.Name)
		assert.Nil(t, first.ParentID)

		time.Sleep(2 * time.Millisecond)
		second, err := store.CreateCollection(ctx, "Auth", "", &first.ID)
		require.NoError(t, err)
		require.NotNil(t, second.ParentID)
		assert.Equal(t, first.ID, *second.ParentID)

		collections, err := store.ListCollections(ctx)
		require.NoError(t, err)
		require.Len(t, collections, 2)
		// Newest first.
		assert.Equal(t, second.ID, collections[0].ID)
		assert.Equal(t, first.ID, collections[1].ID)
	})

	t.Run("rename", func(t *testing.T) {
		store := newTestStore(t)

		collection, err := store.CreateCollection(ctx, "Old", "", nil)
		require.NoError(t, err)

		require.NoError(t, store.RenameCollection(ctx, collection.ID, "New"))

		collections, err := store.ListCollections(ctx)
		require.NoError(t, err)
		require.Len(t, collections, 1)
		assert.Equal(t, "New", collections[0].Name)
	})

	t.Run("rename missing returns ErrNotFound", func(t *testing.T) {
		store := newTestStore(t)
		err := store.RenameCollection(ctx, "does-not-exist", "New")
		assert.ErrorIs(t, err, backend.ErrNotFound)
	})

	t.Run("move to root and back", func(t *testing.T) {
		store := newTestStore(t)

		parent, err := store.CreateCollection(ctx, "Parent", "", nil)
		require.NoError(t, err)
		child, err := store.CreateCollection(ctx, "Child", "", &parent.ID)
		require.NoError(t, err)

		require.NoError(t, store.MoveCollection(ctx, child.ID, nil))
		collections, err := store.ListCollections(ctx)
		require.NoError(t, err)
		for _, c := range collections {
			assert.Nil(t, c.ParentID)
		}

		require.NoError(t, store.MoveCollection(ctx, child.ID, &parent.ID))
	})

	t.Run("set auth", func(t *testing.T) {
		store := newTestStore(t)

		collection, err := store.CreateCollection(ctx, "Secured", "", nil)
		require.NoError(t, err)

		auth := core.NewBearerAuth("token-123")
		require.NoError(t, store.SetCollectionAuth(ctx, collection.ID, auth))

		collections, err := store.ListCollections(ctx)
		require.NoError(t, err)
		require.Len(t, collections, 1)
		require.NotNil(t, collections[0].Auth)
		assert.Equal(t, core.AuthTypeBearer, collections[0].Auth.Type)
		assert.Equal(t, "token-123", collections[0].Auth.Bearer.Token)

		require.NoError(t, store.SetCollectionAuth(ctx, collection.ID, nil))
		collections, err = store.ListCollections(ctx)
		require.NoError(t, err)
		assert.Nil(t, collections[0].Auth)
	})

	t.Run("delete cascades to descendants and their requests", func(t *testing.T) {
		store := newTestStore(t)

		root, err := store.CreateCollection(ctx, "Root", "", nil)
		require.NoError(t, err)
		mid, err := store.CreateCollection(ctx, "Mid", "", &root.ID)
		require.NoError(t, err)
		leaf, err := store.CreateCollection(ctx, "Leaf", "", &mid.ID)
		require.NoError(t, err)
		sibling, err := store.CreateCollection(ctx, "Sibling", "", nil)
		require.NoError(t, err)

		req := core.NewPersistedRequest("Deep", "GET", "https://example.com")
		req.CollectionID = &leaf.ID
		_, err = store.SaveRequest(ctx, req)
		require.NoError(t, err)

		keep := core.NewPersistedRequest("Keep", "GET", "https://example.com")
		keep.CollectionID = &sibling.ID
		_, err = store.SaveRequest(ctx, keep)
		require.NoError(t, err)

		require.NoError(t, store.DeleteCollection(ctx, root.ID))

		collections, err := store.ListCollections(ctx)
		require.NoError(t, err)
		require.Len(t, collections, 1)
		assert.Equal(t, sibling.ID, collections[0].ID)

		orphans, err := store.ListRequests(ctx, &leaf.ID)
		require.NoError(t, err)
		assert.Empty(t, orphans)

		kept, err := store.ListRequests(ctx, &sibling.ID)
		require.NoError(t, err)
		assert.Len(t, kept, 1)
	})
}

func TestRequests(t *testing.T) {
	ctx := context.Background()

	t.Run("save mints id and timestamps", func(t *testing.T) {
		store := newTestStore(t)

		draft := core.NewRequest()
		draft.Name = "Ping"
		draft.URL = "https://example.com/ping"

		saved, err := store.SaveRequest(ctx, draft)
		require.NoError(t, err)
		assert.NotEmpty(t, saved.ID)
		require.NotNil(t, saved.CreatedAt)
		require.NotNil(t, saved.UpdatedAt)
	})

	t.Run("resave preserves created_at", func(t *testing.T) {
		store := newTestStore(t)

		saved, err := store.SaveRequest(ctx, core.NewPersistedRequest("Ping", "GET", "https://example.com"))
		require.NoError(t, err)

		time.Sleep(2 * time.Millisecond)
		saved.Name = "Ping v2"
		resaved, err := store.SaveRequest(ctx, saved)
		require.NoError(t, err)

		assert.Equal(t, saved.ID, resaved.ID)
		assert.True(t, resaved.CreatedAt.Equal(*saved.CreatedAt))
		assert.True(t, resaved.UpdatedAt.After(*saved.UpdatedAt))
	})

	t.Run("round trips headers body and path params", func(t *testing.T) {
		store := newTestStore(t)

		req := core.NewPersistedRequest("Create User", "POST", "https://api.example.com/users/:id")
		req.Headers = map[string]string{"X-Trace": "abc"}
		req.PathParams = map[string]string{"id": "42"}
		req.Body = core.JSONBody{Value: json.RawMessage(`{"name":"ada"}`)}

		saved, err := store.SaveRequest(ctx, req)
		require.NoError(t, err)

		listed, err := store.ListRequests(ctx, nil)
		require.NoError(t, err)
		require.Len(t, listed, 1)

		got := listed[0]
		assert.Equal(t, saved.ID, got.ID)
		assert.Equal(t, map[string]string{"X-Trace": "abc"}, got.Headers)
		assert.Equal(t, map[string]string{"id": "42"}, got.PathParams)
		require.NotNil(t, got.Body)
		assert.Equal(t, core.BodyJSON, got.Body.Kind())
	})

	t.Run("list nil collection returns root-level requests only", func(t *testing.T) {
		store := newTestStore(t)

		collection, err := store.CreateCollection(ctx, "Bucket", "", nil)
		require.NoError(t, err)

		inside := core.NewPersistedRequest("Inside", "GET", "https://example.com")
		inside.CollectionID = &collection.ID
		_, err = store.SaveRequest(ctx, inside)
		require.NoError(t, err)

		_, err = store.SaveRequest(ctx, core.NewPersistedRequest("Loose", "GET", "https://example.com"))
		require.NoError(t, err)

		loose, err := store.ListRequests(ctx, nil)
		require.NoError(t, err)
		require.Len(t, loose, 1)
		assert.Equal(t, "Loose", loose[0].Name)

		owned, err := store.ListRequests(ctx, &collection.ID)
		require.NoError(t, err)
		require.Len(t, owned, 1)
		assert.Equal(t, "Inside", owned[0].Name)
	})

	t.Run("move and rename", func(t *testing.T) {
		store := newTestStore(t)

		collection, err := store.CreateCollection(ctx, "Bucket", "", nil)
		require.NoError(t, err)
		saved, err := store.SaveRequest(ctx, core.NewPersistedRequest("Ping", "GET", "https://example.com"))
		require.NoError(t, err)

		require.NoError(t, store.MoveRequest(ctx, saved.ID, &collection.ID))
		require.NoError(t, store.RenameRequest(ctx, saved.ID, "Renamed"))

		owned, err := store.ListRequests(ctx, &collection.ID)
		require.NoError(t, err)
		require.Len(t, owned, 1)
		assert.Equal(t, "Renamed", owned[0].Name)

		assert.ErrorIs(t, store.MoveRequest(ctx, "missing", nil), backend.ErrNotFound)
		assert.ErrorIs(t, store.RenameRequest(ctx, "missing", "x"), backend.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		store := newTestStore(t)

		saved, err := store.SaveRequest(ctx, core.NewPersistedRequest("Ping", "GET", "https://example.com"))
		require.NoError(t, err)

		require.NoError(t, store.DeleteRequest(ctx, saved.ID))
		assert.ErrorIs(t, store.DeleteRequest(ctx, saved.ID), backend.ErrNotFound)
	})
}

func TestEnvironments(t *testing.T) {
	ctx := context.Background()

	t.Run("create starts inactive", func(t *testing.T) {
		store := newTestStore(t)

		env, err := store.CreateEnvironment(ctx, "dev", map[string]string{"host": "localhost"})
		require.NoError(t, err)
		assert.False(t, env.IsActive)

		active, err := store.ActiveEnvironment(ctx)
		require.NoError(t, err)
		assert.Nil(t, active)
	})

	t.Run("activation is exclusive", func(t *testing.T) {
		store := newTestStore(t)

		dev, err := store.CreateEnvironment(ctx, "dev", nil)
		require.NoError(t, err)
		prod, err := store.CreateEnvironment(ctx, "prod", nil)
		require.NoError(t, err)

		require.NoError(t, store.SetActiveEnvironment(ctx, &dev.ID))
		require.NoError(t, store.SetActiveEnvironment(ctx, &prod.ID))

		active, err := store.ActiveEnvironment(ctx)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, prod.ID, active.ID)

		environments, err := store.ListEnvironments(ctx)
		require.NoError(t, err)
		activeCount := 0
		for _, env := range environments {
			if env.IsActive {
				activeCount++
			}
		}
		assert.Equal(t, 1, activeCount)
	})

	t.Run("nil id deactivates all", func(t *testing.T) {
		store := newTestStore(t)

		dev, err := store.CreateEnvironment(ctx, "dev", nil)
		require.NoError(t, err)
		require.NoError(t, store.SetActiveEnvironment(ctx, &dev.ID))
		require.NoError(t, store.SetActiveEnvironment(ctx, nil))

		active, err := store.ActiveEnvironment(ctx)
		require.NoError(t, err)
		assert.Nil(t, active)
	})

	t.Run("update variables", func(t *testing.T) {
		store := newTestStore(t)

		env, err := store.CreateEnvironment(ctx, "dev", map[string]string{"host": "localhost"})
		require.NoError(t, err)

		updated, err := store.UpdateEnvironment(ctx, env.ID, "dev2", map[string]string{"host": "remote"})
		require.NoError(t, err)
		assert.Equal(t, "dev2", updated.Name)

		environments, err := store.ListEnvironments(ctx)
		require.NoError(t, err)
		require.Len(t, environments, 1)
		assert.Equal(t, "dev2", environments[0].Name)
		assert.Equal(t, "remote", environments[0].Variables["host"])
	})

	t.Run("delete active leaves none active", func(t *testing.T) {
		store := newTestStore(t)

		env, err := store.CreateEnvironment(ctx, "dev", nil)
		require.NoError(t, err)
		require.NoError(t, store.SetActiveEnvironment(ctx, &env.ID))
		require.NoError(t, store.DeleteEnvironment(ctx, env.ID))

		active, err := store.ActiveEnvironment(ctx)
		require.NoError(t, err)
		assert.Nil(t, active)
	})
}

func TestSend(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves path params then environment variables", func(t *testing.T) {
		requester := &fakeRequester{}
		store := newTestStore(t, WithRequester(requester))

		env, err := store.CreateEnvironment(ctx, "dev", map[string]string{
			"base_url": "https://api.example.com",
			"token":    "secret",
		})
		require.NoError(t, err)
		require.NoError(t, store.SetActiveEnvironment(ctx, &env.ID))

		payload := core.SendPayload{
			Method:     "GET",
			URL:        "{{base_url}}/users/:id",
			Headers:    map[string]string{"Authorization": "Bearer {{token}}"},
			PathParams: map[string]string{"id": "42"},
		}

		response, err := store.Send(ctx, payload)
		require.NoError(t, err)
		assert.Equal(t, 200, response.Status)

		assert.Equal(t, "https://api.example.com/users/42", requester.last.URL)
		assert.Equal(t, "Bearer secret", requester.last.Headers["Authorization"])
	})

	t.Run("unknown variables pass through untouched", func(t *testing.T) {
		requester := &fakeRequester{}
		store := newTestStore(t, WithRequester(requester))

		_, err := store.Send(ctx, core.SendPayload{
			Method: "GET",
			URL:    "https://example.com/{{missing}}",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/{{missing}}", requester.last.URL)
	})

	t.Run("interpolates body content", func(t *testing.T) {
		requester := &fakeRequester{}
		store := newTestStore(t, WithRequester(requester))

		env, err := store.CreateEnvironment(ctx, "dev", map[string]string{"name": "ada"})
		require.NoError(t, err)
		require.NoError(t, store.SetActiveEnvironment(ctx, &env.ID))

		_, err = store.Send(ctx, core.SendPayload{
			Method: "POST",
			URL:    "https://example.com",
			Body:   core.JSONBody{Value: json.RawMessage(`{"user":"{{name}}"}`)},
		})
		require.NoError(t, err)

		body, ok := requester.last.Body.(core.JSONBody)
		require.True(t, ok)
		assert.JSONEq(t, `{"user":"ada"}`, string(body.Value))
	})

	t.Run("records history with the unresolved payload", func(t *testing.T) {
		requester := &fakeRequester{}
		store := newTestStore(t, WithRequester(requester))

		env, err := store.CreateEnvironment(ctx, "dev", map[string]string{"base_url": "https://api.example.com"})
		require.NoError(t, err)
		require.NoError(t, store.SetActiveEnvironment(ctx, &env.ID))

		_, err = store.Send(ctx, core.SendPayload{Method: "GET", URL: "{{base_url}}/ping"})
		require.NoError(t, err)

		entries, err := store.History(ctx, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "{{base_url}}/ping", entries[0].Request.URL)
		require.NotNil(t, entries[0].Response)
		assert.Equal(t, 200, entries[0].Response.Status)
	})

	t.Run("failed send records nothing", func(t *testing.T) {
		requester := &fakeRequester{err: assert.AnError}
		store := newTestStore(t, WithRequester(requester))

		_, err := store.Send(ctx, core.SendPayload{Method: "GET", URL: "https://example.com"})
		require.Error(t, err)

		entries, err := store.History(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("history limit prunes oldest entries", func(t *testing.T) {
		requester := &fakeRequester{}
		store := newTestStore(t, WithRequester(requester), WithHistoryLimit(2))

		for i := 0; i < 4; i++ {
			_, err := store.Send(ctx, core.SendPayload{Method: "GET", URL: "https://example.com"})
			require.NoError(t, err)
			time.Sleep(2 * time.Millisecond)
		}

		entries, err := store.History(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("clear history", func(t *testing.T) {
		requester := &fakeRequester{}
		store := newTestStore(t, WithRequester(requester))

		_, err := store.Send(ctx, core.SendPayload{Method: "GET", URL: "https://example.com"})
		require.NoError(t, err)

		require.NoError(t, store.ClearHistory(ctx))
		entries, err := store.History(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("no requester configured", func(t *testing.T) {
		store := newTestStore(t)
		_, err := store.Send(ctx, core.SendPayload{Method: "GET", URL: "https://example.com"})
		require.Error(t, err)
	})
}

func TestImportExport(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip re-mints identifiers", func(t *testing.T) {
		store := newTestStore(t)

		collection, err := store.CreateCollection(ctx, "API Tests", "suite", nil)
		require.NoError(t, err)

		req := core.NewPersistedRequest("Ping", "GET", "https://example.com/ping")
		req.CollectionID = &collection.ID
		saved, err := store.SaveRequest(ctx, req)
		require.NoError(t, err)

		data, err := store.ExportCollection(ctx, collection.ID)
		require.NoError(t, err)

		imported, err := store.ImportCollection(ctx, string(data))
		require.NoError(t, err)
		assert.Equal(t, "API Tests (Imported)", imported.Name)
		assert.NotEqual(t, collection.ID, imported.ID)

		requests, err := store.ListRequests(ctx, &imported.ID)
		require.NoError(t, err)
		require.Len(t, requests, 1)
		assert.Equal(t, "Ping", requests[0].Name)
		assert.NotEqual(t, saved.ID, requests[0].ID)
	})

	t.Run("postman export stores the whole folder tree", func(t *testing.T) {
		store := newTestStore(t)

		imported, err := store.ImportCollection(ctx, `{
			"info": {
				"name": "Legacy",
				"schema": "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"
			},
			"item": [
				{
					"name": "Admin",
					"item": [
						{
							"name": "List users",
							"request": {"method": "GET", "url": "https://api.test/users"}
						}
					]
				}
			]
		}`)
		require.NoError(t, err)
		assert.Equal(t, "Legacy (Imported from Postman)", imported.Name)

		collections, err := store.ListCollections(ctx)
		require.NoError(t, err)
		require.Len(t, collections, 2)

		var admin core.Collection
		for _, c := range collections {
			if c.Name == "Admin" {
				admin = c
			}
		}
		require.NotEmpty(t, admin.ID)
		require.NotNil(t, admin.ParentID)
		assert.Equal(t, imported.ID, *admin.ParentID)

		requests, err := store.ListRequests(ctx, &admin.ID)
		require.NoError(t, err)
		require.Len(t, requests, 1)
		assert.Equal(t, "List users", requests[0].Name)
	})

	t.Run("openapi documents import by tag", func(t *testing.T) {
		store := newTestStore(t)

		imported, err := store.ImportCollection(ctx, `{
			"openapi": "3.0.0",
			"info": {"title": "Billing API"},
			"paths": {
				"/invoices": {
					"get": {"summary": "List invoices", "tags": ["invoices"]}
				}
			}
		}`)
		require.NoError(t, err)
		assert.Equal(t, "Billing API", imported.Name)

		collections, err := store.ListCollections(ctx)
		require.NoError(t, err)
		assert.Len(t, collections, 2)
	})

	t.Run("export missing collection", func(t *testing.T) {
		store := newTestStore(t)
		_, err := store.ExportCollection(ctx, "missing")
		assert.ErrorIs(t, err, backend.ErrNotFound)
	})

	t.Run("import malformed bundle", func(t *testing.T) {
		store := newTestStore(t)
		_, err := store.ImportCollection(ctx, "{not json")
		require.Error(t, err)
	})
}

func TestStoreClosed(t *testing.T) {
	ctx := context.Background()

	store := newTestStore(t)
	require.NoError(t, store.Close())

	_, err := store.ListCollections(ctx)
	assert.ErrorIs(t, err, backend.ErrStoreClosed)
	_, err = store.ListRequests(ctx, nil)
	assert.ErrorIs(t, err, backend.ErrStoreClosed)
	_, err = store.ListEnvironments(ctx)
	assert.ErrorIs(t, err, backend.ErrStoreClosed)
	assert.ErrorIs(t, store.ClearHistory(ctx), backend.ErrStoreClosed)
}
