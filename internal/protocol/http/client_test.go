package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restdeck/internal/core"
)

func TestClient_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/echo":
			body, _ := io.ReadAll(r.Body)
			w.Header().Set("X-Echo-Method", r.Method)
			w.Header().Set("X-Echo-Content-Type", r.Header.Get("Content-Type"))
			w.WriteHeader(http.StatusCreated)
			w.Write(body)
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		case "/redirect":
			http.Redirect(w, r, "/echo", http.StatusFound)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient()

	t.Run("measures status, size and timing", func(t *testing.T) {
		resp, err := client.Send(context.Background(), core.SendPayload{
			Method: "POST",
			URL:    server.URL + "/echo",
			Headers: map[string]string{
				"X-Trace": "on",
			},
			Body: core.JSONBody{Value: json.RawMessage(`{"n":1}`)},
		})
		require.NoError(t, err)

		assert.Equal(t, http.StatusCreated, resp.Status)
		assert.Equal(t, `{"n":1}`, resp.Body)
		assert.Equal(t, int64(len(`{"n":1}`)), resp.Size)
		assert.Equal(t, "POST", resp.Headers["X-Echo-Method"])
		assert.Equal(t, "application/json", resp.Headers["X-Echo-Content-Type"])
		assert.GreaterOrEqual(t, resp.ResponseTime, int64(0))
	})

	t.Run("payload timeout cancels the request", func(t *testing.T) {
		fast := NewClient(WithTimeout(50 * time.Millisecond))
		_, err := fast.Send(context.Background(), core.SendPayload{
			Method: "GET",
			URL:    server.URL + "/slow",
		})
		assert.Error(t, err)
	})

	t.Run("redirects can be disabled", func(t *testing.T) {
		noRedirect := NewClient(WithNoRedirects())
		resp, err := noRedirect.Send(context.Background(), core.SendPayload{
			Method: "GET",
			URL:    server.URL + "/redirect",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, resp.Status)
	})

	t.Run("invalid URL fails before sending", func(t *testing.T) {
		_, err := client.Send(context.Background(), core.SendPayload{
			Method: "GET",
			URL:    "://not-a-url",
		})
		assert.Error(t, err)
	})
}

func TestStatusText(t *testing.T) {
	t.Run("strips the numeric prefix", func(t *testing.T) {
		resp := &http.Response{StatusCode: 200, Status: "200 OK"}
		assert.Equal(t, "OK", statusText(resp))
	})

	t.Run("falls back when the text part is empty", func(t *testing.T) {
		resp := &http.Response{StatusCode: 404, Status: "404"}
		assert.Equal(t, "Not Found", statusText(resp))
	})

	t.Run("tolerates a short status line", func(t *testing.T) {
		resp := &http.Response{StatusCode: 200, Status: "OK"}
		assert.Equal(t, "OK", statusText(resp))
	})

	t.Run("tolerates an empty status line", func(t *testing.T) {
		resp := &http.Response{StatusCode: 201, Status: ""}
		assert.Equal(t, "Created", statusText(resp))
	})
}
