package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"restdeck/internal/core"
)

func TestResolveAuth(t *testing.T) {
	bearer := core.NewBearerAuth("T")
	collections := []core.Collection{
		{ID: "a", Name: "A", Auth: bearer},
		{ID: "b", Name: "B", ParentID: ptr("a")},
		{ID: "c", Name: "C", ParentID: ptr("b"), Auth: core.NewBasicAuth("user", "pass")},
	}

	t.Run("no collection means no headers", func(t *testing.T) {
		assert.Empty(t, ResolveAuth(nil, collections))
	})

	t.Run("direct auth wins", func(t *testing.T) {
		headers := ResolveAuth(ptr("c"), collections)
		assert.Contains(t, headers["Authorization"], "Basic ")
	})

	t.Run("inherited from nearest configured ancestor", func(t *testing.T) {
		headers := ResolveAuth(ptr("b"), collections)
		assert.Equal(t, "Bearer T", headers["Authorization"])
	})

	t.Run("unknown collection yields no headers", func(t *testing.T) {
		assert.Empty(t, ResolveAuth(ptr("missing"), collections))
	})

	t.Run("empty credentials fall through to the parent", func(t *testing.T) {
		chain := []core.Collection{
			{ID: "top", Auth: core.NewBearerAuth("T")},
			{ID: "mid", ParentID: ptr("top"), Auth: core.NewBearerAuth("")},
		}
		headers := ResolveAuth(ptr("mid"), chain)
		assert.Equal(t, "Bearer T", headers["Authorization"])
	})

	t.Run("cyclic parents terminate", func(t *testing.T) {
		cyclic := []core.Collection{
			{ID: "x", ParentID: ptr("y")},
			{ID: "y", ParentID: ptr("x")},
		}
		assert.Empty(t, ResolveAuth(ptr("x"), cyclic))
	})
}

func TestEffectiveHeaders(t *testing.T) {
	collections := []core.Collection{
		{ID: "a", Name: "A", Auth: core.NewBearerAuth("T")},
		{ID: "b", Name: "B", ParentID: ptr("a")},
	}

	t.Run("request header overrides inherited auth", func(t *testing.T) {
		req := core.Request{
			CollectionID: ptr("b"),
			Headers:      map[string]string{"Authorization": "X"},
		}
		headers := EffectiveHeaders(req, collections)
		assert.Equal(t, map[string]string{"Authorization": "X"}, headers)
	})

	t.Run("inherited auth applies when request has none", func(t *testing.T) {
		req := core.Request{CollectionID: ptr("b")}
		headers := EffectiveHeaders(req, collections)
		assert.Equal(t, map[string]string{"Authorization": "Bearer T"}, headers)
	})

	t.Run("override match is case-sensitive", func(t *testing.T) {
		req := core.Request{
			CollectionID: ptr("b"),
			Headers:      map[string]string{"authorization": "X"},
		}
		headers := EffectiveHeaders(req, collections)
		assert.Equal(t, "X", headers["authorization"])
		assert.Equal(t, "Bearer T", headers["Authorization"])
	})

	t.Run("non-auth request headers pass through", func(t *testing.T) {
		req := core.Request{
			CollectionID: ptr("b"),
			Headers:      map[string]string{"X-Trace": "abc"},
		}
		headers := EffectiveHeaders(req, collections)
		assert.Equal(t, "abc", headers["X-Trace"])
		assert.Equal(t, "Bearer T", headers["Authorization"])
	})
}
