package core

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBody_Payload(t *testing.T) {
	t.Run("raw defaults to text/plain", func(t *testing.T) {
		content, contentType, err := RawBody{Content: "hello"}.Payload()
		require.NoError(t, err)
		assert.Equal(t, "hello", string(content))
		assert.Equal(t, "text/plain", contentType)
	})

	t.Run("raw keeps explicit content type", func(t *testing.T) {
		_, contentType, err := RawBody{Content: "<a/>", ContentType: "application/xml"}.Payload()
		require.NoError(t, err)
		assert.Equal(t, "application/xml", contentType)
	})

	t.Run("json validates the document", func(t *testing.T) {
		_, _, err := JSONBody{Value: json.RawMessage(`{"broken`)}.Payload()
		assert.Error(t, err)

		content, contentType, err := JSONBody{Value: json.RawMessage(`{"a":1}`)}.Payload()
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(content))
		assert.Equal(t, "application/json", contentType)
	})

	t.Run("urlencoded encodes fields", func(t *testing.T) {
		content, contentType, err := URLEncodedBody{Fields: map[string]string{"a b": "c&d"}}.Payload()
		require.NoError(t, err)
		assert.Equal(t, "a+b=c%26d", string(content))
		assert.Equal(t, "application/x-www-form-urlencoded", contentType)
	})

	t.Run("form data produces multipart payload", func(t *testing.T) {
		content, contentType, err := FormDataBody{Fields: map[string]string{"name": "value"}}.Payload()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(contentType, "multipart/form-data; boundary="))
		assert.Contains(t, string(content), `name="name"`)
		assert.Contains(t, string(content), "value")
	})
}

func TestEncodeDecodeBody(t *testing.T) {
	t.Run("nil body stays nil", func(t *testing.T) {
		data, err := EncodeBody(nil)
		require.NoError(t, err)
		assert.Nil(t, data)

		body, err := DecodeBody(nil)
		require.NoError(t, err)
		assert.Nil(t, body)
	})

	t.Run("raw round trip", func(t *testing.T) {
		data, err := EncodeBody(RawBody{Content: "x", ContentType: "text/csv"})
		require.NoError(t, err)

		body, err := DecodeBody(data)
		require.NoError(t, err)
		raw, ok := body.(RawBody)
		require.True(t, ok)
		assert.Equal(t, "text/csv", raw.ContentType)
	})

	t.Run("envelope carries the kind tag", func(t *testing.T) {
		data, err := EncodeBody(URLEncodedBody{Fields: map[string]string{"k": "v"}})
		require.NoError(t, err)
		assert.Contains(t, string(data), `"type":"urlencoded"`)
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		_, err := DecodeBody([]byte(`{"type":"grpc"}`))
		assert.Error(t, err)
	})
}

func TestRequest_JSONRoundTrip(t *testing.T) {
	collectionID := "6a1f18b6-9f2e-4f6f-8f39-0f08a0a5b001"
	req := NewPersistedRequest("Create user", "POST", "https://api.example.com/users/:id")
	req.Headers["X-Trace"] = "abc"
	req.PathParams = map[string]string{"id": "42"}
	req.CollectionID = &collectionID
	req.Body = JSONBody{Value: json.RawMessage(`{"name":"ada"}`)}

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded Request
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, req.ID, decoded.ID)
	assert.Equal(t, "abc", decoded.Headers["X-Trace"])
	assert.Equal(t, collectionID, *decoded.CollectionID)
	require.NotNil(t, decoded.Body)
	assert.Equal(t, BodyJSON, decoded.Body.Kind())
}

func TestRequest_Clone(t *testing.T) {
	req := NewRequest()
	req.Headers["A"] = "1"
	clone := req.Clone()
	clone.Headers["A"] = "2"

	assert.Equal(t, "1", req.Headers["A"])
	assert.False(t, req.Saved())
}
