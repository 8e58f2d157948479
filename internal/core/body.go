package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/url"
	"sort"
)

// BodyKind identifies a request body variant.
type BodyKind string

const (
	BodyRaw        BodyKind = "raw"
	BodyJSON       BodyKind = "json"
	BodyFormData   BodyKind = "form-data"
	BodyURLEncoded BodyKind = "urlencoded"
)

// Body is a request body. It is a closed union: exactly one variant per
// value, so invalid combinations of body fields are unrepresentable.
type Body interface {
	Kind() BodyKind
	// Payload renders the body into wire bytes and a content type.
	Payload() ([]byte, string, error)
	isBody()
}

// RawBody carries arbitrary content with an explicit content type.
type RawBody struct {
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
}

func (RawBody) Kind() BodyKind { return BodyRaw }
func (RawBody) isBody()        {}

func (b RawBody) Payload() ([]byte, string, error) {
	contentType := b.ContentType
	if contentType == "" {
		contentType = "text/plain"
	}
	return []byte(b.Content), contentType, nil
}

// JSONBody carries a JSON document.
type JSONBody struct {
	Value json.RawMessage `json:"value"`
}

func (JSONBody) Kind() BodyKind { return BodyJSON }
func (JSONBody) isBody()        {}

func (b JSONBody) Payload() ([]byte, string, error) {
	if !json.Valid(b.Value) {
		return nil, "", fmt.Errorf("invalid JSON body")
	}
	return b.Value, "application/json", nil
}

// FormDataBody carries multipart form fields.
type FormDataBody struct {
	Fields map[string]string `json:"fields"`
}

func (FormDataBody) Kind() BodyKind { return BodyFormData }
func (FormDataBody) isBody()        {}

func (b FormDataBody) Payload() ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(b.Fields))
	for k := range b.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := writer.WriteField(key, b.Fields[key]); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %q: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

// URLEncodedBody carries application/x-www-form-urlencoded fields.
type URLEncodedBody struct {
	Fields map[string]string `json:"fields"`
}

func (URLEncodedBody) Kind() BodyKind { return BodyURLEncoded }
func (URLEncodedBody) isBody()        {}

func (b URLEncodedBody) Payload() ([]byte, string, error) {
	values := url.Values{}
	for k, v := range b.Fields {
		values.Set(k, v)
	}
	return []byte(values.Encode()), "application/x-www-form-urlencoded", nil
}

// bodyEnvelope is the wire representation of a Body.
type bodyEnvelope struct {
	Type        BodyKind          `json:"type"`
	Content     string            `json:"content,omitempty"`
	ContentType string            `json:"content_type,omitempty"`
	Value       json.RawMessage   `json:"value,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// EncodeBody serializes a body into its tagged envelope form. A nil
// body encodes to nil.
func EncodeBody(b Body) ([]byte, error) {
	if b == nil {
		return nil, nil
	}

	env := bodyEnvelope{Type: b.Kind()}
	switch v := b.(type) {
	case RawBody:
		env.Content = v.Content
		env.ContentType = v.ContentType
	case JSONBody:
		env.Value = v.Value
	case FormDataBody:
		env.Fields = v.Fields
	case URLEncodedBody:
		env.Fields = v.Fields
	default:
		return nil, fmt.Errorf("unknown body kind: %s", b.Kind())
	}

	return json.Marshal(env)
}

// DecodeBody parses a tagged envelope back into a body. Empty input
// decodes to nil.
func DecodeBody(data []byte) (Body, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var env bodyEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode body: %w", err)
	}

	switch env.Type {
	case BodyRaw:
		return RawBody{Content: env.Content, ContentType: env.ContentType}, nil
	case BodyJSON:
		return JSONBody{Value: env.Value}, nil
	case BodyFormData:
		return FormDataBody{Fields: env.Fields}, nil
	case BodyURLEncoded:
		return URLEncodedBody{Fields: env.Fields}, nil
	default:
		return nil, fmt.Errorf("unknown body kind: %s", env.Type)
	}
}
