package importer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"restdeck/internal/core"
)

// IsOpenAPI reports whether the content looks like an OpenAPI 3.x
// document, in either JSON or YAML form.
func IsOpenAPI(content []byte) bool {
	var check struct {
		OpenAPI string `json:"openapi" yaml:"openapi"`
	}
	if err := json.Unmarshal(content, &check); err == nil {
		return strings.HasPrefix(check.OpenAPI, "3.")
	}
	if err := yaml.Unmarshal(content, &check); err == nil {
		return strings.HasPrefix(check.OpenAPI, "3.")
	}
	return false
}

// ParseOpenAPI converts an OpenAPI 3.x document into a collection
// forest. Operations are grouped under sub-collections by their first
// tag, templated path segments become :name path parameters and request
// bodies get stub values derived from the declared schema.
func ParseOpenAPI(content []byte) ([]core.Collection, []core.Request, error) {
	var doc openAPIDocument
	if err := json.Unmarshal(content, &doc); err != nil {
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
	}
	if !strings.HasPrefix(doc.OpenAPI, "3.") {
		return nil, nil, fmt.Errorf("%w: OpenAPI %q", ErrUnsupportedVersion, doc.OpenAPI)
	}
	if doc.Info.Title == "" {
		return nil, nil, fmt.Errorf("%w: info.title", ErrMissingRequired)
	}

	root := core.NewCollection(doc.Info.Title, doc.Info.Description, nil)
	rootID := root.ID
	collections := []core.Collection{root}
	var requests []core.Request
	tagged := make(map[string]string)

	base := "http://localhost"
	if len(doc.Servers) > 0 && doc.Servers[0].URL != "" {
		base = doc.Servers[0].URL
	}

	paths := make([]string, 0, len(doc.Paths))
	for path := range doc.Paths {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		item := doc.Paths[path]
		operations := []struct {
			method string
			op     *openAPIOperation
		}{
			{"GET", item.Get},
			{"POST", item.Post},
			{"PUT", item.Put},
			{"DELETE", item.Delete},
			{"PATCH", item.Patch},
			{"HEAD", item.Head},
			{"OPTIONS", item.Options},
		}
		for _, entry := range operations {
			if entry.op == nil {
				continue
			}

			collectionID := rootID
			if len(entry.op.Tags) > 0 {
				tag := entry.op.Tags[0]
				id, ok := tagged[tag]
				if !ok {
					sub := core.NewCollection(tag, "", &rootID)
					collections = append(collections, sub)
					tagged[tag] = sub.ID
					id = sub.ID
				}
				collectionID = id
			}

			req := convertOpenAPIOperation(path, entry.method, entry.op, item.Parameters, base, doc.Components)
			req.CollectionID = &collectionID
			requests = append(requests, req)
		}
	}

	return collections, requests, nil
}

func convertOpenAPIOperation(path, method string, op *openAPIOperation, shared []openAPIParameter, base string, components *openAPIComponents) core.Request {
	url := convertTemplatedPath(path)
	if !strings.HasPrefix(url, "http") {
		url = joinURL(base, url)
	}

	name := op.Summary
	if name == "" {
		name = op.OperationID
	}
	if name == "" {
		name = method + " " + path
	}

	headers := make(map[string]string)
	pathParams := make(map[string]string)
	var query []string
	params := append(append([]openAPIParameter(nil), shared...), op.Parameters...)
	for _, param := range params {
		switch param.In {
		case "header":
			headers[param.Name] = ""
		case "path":
			pathParams[param.Name] = ""
		case "query":
			query = append(query, param.Name+"=")
		}
	}
	if len(query) > 0 {
		separator := "?"
		if strings.Contains(url, "?") {
			separator = "&"
		}
		url += separator + strings.Join(query, "&")
	}

	req := core.NewPersistedRequest(name, method, url)
	req.Headers = headers
	if len(pathParams) > 0 {
		req.PathParams = pathParams
	}
	req.Body = convertOpenAPIBody(op.RequestBody, components)
	return req
}

// convertTemplatedPath rewrites {param} segments to :param.
func convertTemplatedPath(path string) string {
	return strings.NewReplacer("{", ":", "}", "").Replace(path)
}

func joinURL(base, path string) string {
	switch {
	case strings.HasSuffix(base, "/") && strings.HasPrefix(path, "/"):
		return base[:len(base)-1] + path
	case !strings.HasSuffix(base, "/") && !strings.HasPrefix(path, "/"):
		return base + "/" + path
	default:
		return base + path
	}
}

// convertOpenAPIBody builds a stub body from the declared request body,
// preferring JSON content and falling back to form encodings. Field
// values are left empty for the user to fill in.
func convertOpenAPIBody(rb *openAPIRequestBody, components *openAPIComponents) core.Body {
	if rb == nil {
		return nil
	}

	if media, ok := rb.Content["application/json"]; ok {
		if media.Example != nil {
			if data, err := json.Marshal(media.Example); err == nil {
				return core.JSONBody{Value: data}
			}
		}
		stub := make(map[string]any)
		for key := range resolveSchemaProperties(media.Schema, components, nil) {
			stub[key] = ""
		}
		data, err := json.Marshal(stub)
		if err != nil {
			return nil
		}
		return core.JSONBody{Value: data}
	}

	if media, ok := rb.Content["application/x-www-form-urlencoded"]; ok {
		fields := make(map[string]string)
		for key := range resolveSchemaProperties(media.Schema, components, nil) {
			fields[key] = ""
		}
		return core.URLEncodedBody{Fields: fields}
	}

	if media, ok := rb.Content["multipart/form-data"]; ok {
		fields := make(map[string]string)
		for key := range resolveSchemaProperties(media.Schema, components, nil) {
			fields[key] = ""
		}
		return core.FormDataBody{Fields: fields}
	}

	return nil
}

// resolveSchemaProperties flattens a schema to its property map,
// following #/components/schemas refs and merging allOf parts. The seen
// set stops self-referencing schemas.
func resolveSchemaProperties(schema map[string]any, components *openAPIComponents, seen map[string]bool) map[string]any {
	props := make(map[string]any)
	if schema == nil {
		return props
	}
	if seen == nil {
		seen = make(map[string]bool)
	}

	if ref, ok := schema["$ref"].(string); ok {
		name := ref[strings.LastIndex(ref, "/")+1:]
		if name == "" || seen[name] {
			return props
		}
		seen[name] = true
		if components != nil {
			if target, ok := components.Schemas[name]; ok {
				return resolveSchemaProperties(target, components, seen)
			}
		}
		return props
	}

	if allOf, ok := schema["allOf"].([]any); ok {
		for _, part := range allOf {
			if m, ok := part.(map[string]any); ok {
				for key, value := range resolveSchemaProperties(m, components, seen) {
					props[key] = value
				}
			}
		}
	}

	if direct, ok := schema["properties"].(map[string]any); ok {
		for key, value := range direct {
			props[key] = value
		}
	}

	return props
}

// OpenAPI 3.x document structures.

type openAPIDocument struct {
	OpenAPI    string                     `json:"openapi" yaml:"openapi"`
	Info       openAPIInfo                `json:"info" yaml:"info"`
	Servers    []openAPIServer            `json:"servers,omitempty" yaml:"servers,omitempty"`
	Paths      map[string]openAPIPathItem `json:"paths" yaml:"paths"`
	Components *openAPIComponents         `json:"components,omitempty" yaml:"components,omitempty"`
}

type openAPIInfo struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
}

type openAPIServer struct {
	URL string `json:"url" yaml:"url"`
}

type openAPIPathItem struct {
	Get        *openAPIOperation  `json:"get,omitempty" yaml:"get,omitempty"`
	Post       *openAPIOperation  `json:"post,omitempty" yaml:"post,omitempty"`
	Put        *openAPIOperation  `json:"put,omitempty" yaml:"put,omitempty"`
	Delete     *openAPIOperation  `json:"delete,omitempty" yaml:"delete,omitempty"`
	Patch      *openAPIOperation  `json:"patch,omitempty" yaml:"patch,omitempty"`
	Head       *openAPIOperation  `json:"head,omitempty" yaml:"head,omitempty"`
	Options    *openAPIOperation  `json:"options,omitempty" yaml:"options,omitempty"`
	Parameters []openAPIParameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

type openAPIOperation struct {
	Tags        []string            `json:"tags,omitempty" yaml:"tags,omitempty"`
	Summary     string              `json:"summary,omitempty" yaml:"summary,omitempty"`
	OperationID string              `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Parameters  []openAPIParameter  `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *openAPIRequestBody `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
}

type openAPIParameter struct {
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	In   string `json:"in,omitempty" yaml:"in,omitempty"`
}

type openAPIRequestBody struct {
	Content map[string]openAPIMediaType `json:"content,omitempty" yaml:"content,omitempty"`
}

type openAPIMediaType struct {
	Schema  map[string]any `json:"schema,omitempty" yaml:"schema,omitempty"`
	Example any            `json:"example,omitempty" yaml:"example,omitempty"`
}

type openAPIComponents struct {
	Schemas map[string]map[string]any `json:"schemas,omitempty" yaml:"schemas,omitempty"`
}
