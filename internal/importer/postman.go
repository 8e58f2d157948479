package importer

import (
	"encoding/json"
	"fmt"
	"strings"

	"restdeck/internal/core"
	"restdeck/internal/interpolate"
)

// IsPostman reports whether the content looks like a Postman collection
// export (v2.0 or v2.1).
func IsPostman(content []byte) bool {
	var check struct {
		Info struct {
			Schema string `json:"schema"`
		} `json:"info"`
	}
	if err := json.Unmarshal(content, &check); err != nil {
		return false
	}
	return strings.Contains(check.Info.Schema, "schema.getpostman.com/json/collection")
}

// ParsePostman converts a Postman collection export into a collection
// forest. Folders become sub-collections nested under the root, folder
// auth is inherited by nested folders that carry none of their own, and
// the root collection is renamed with an "(Imported from Postman)"
// suffix.
func ParsePostman(content []byte) ([]core.Collection, []core.Request, error) {
	var pm postmanCollection
	if err := json.Unmarshal(content, &pm); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if pm.Info.Name == "" {
		return nil, nil, fmt.Errorf("%w: collection name", ErrMissingRequired)
	}

	root := core.NewCollection(pm.Info.Name+" (Imported from Postman)", pm.Info.Description.text(), nil)
	root.Auth = convertPostmanAuth(pm.Auth)

	collections := []core.Collection{root}
	var requests []core.Request
	if err := walkPostmanItems(pm.Item, root.ID, nil, &collections, &requests); err != nil {
		return nil, nil, err
	}
	return collections, requests, nil
}

// walkPostmanItems descends the item tree. An item with nested items is
// a folder, an item with request details is a request; anything else is
// malformed input.
func walkPostmanItems(items []postmanItem, collectionID string, parentAuth *core.AuthConfig, collections *[]core.Collection, requests *[]core.Request) error {
	for _, item := range items {
		switch {
		case item.Item != nil:
			sub := core.NewCollection(item.Name, item.Description.text(), &collectionID)
			sub.Auth = convertPostmanAuth(item.Auth)
			if sub.Auth == nil && parentAuth != nil {
				sub.Auth = parentAuth.Clone()
			}
			*collections = append(*collections, sub)
			if err := walkPostmanItems(item.Item, sub.ID, sub.Auth, collections, requests); err != nil {
				return err
			}
		case item.Request != nil:
			*requests = append(*requests, convertPostmanRequest(item, collectionID))
		default:
			return fmt.Errorf("%w: item %q has neither a request nor nested items", ErrInvalidFormat, item.Name)
		}
	}
	return nil
}

func convertPostmanRequest(item postmanItem, collectionID string) core.Request {
	details := item.Request

	method := strings.ToUpper(details.Method)
	known := false
	for _, m := range core.Methods {
		if m == method {
			known = true
			break
		}
	}
	if !known {
		method = "GET"
	}

	url := details.URL.build()
	if url == "" {
		url = "http://localhost"
	}

	req := core.NewPersistedRequest(item.Name, method, url)
	req.CollectionID = &collectionID
	for _, header := range details.Header {
		if !header.Disabled {
			req.Headers[header.Key] = header.Value
		}
	}
	req.Body = convertPostmanBody(details.Body)
	if names := interpolate.ExtractPathParams(url); len(names) > 0 {
		req.PathParams = make(map[string]string, len(names))
		for _, name := range names {
			req.PathParams[name] = ""
		}
	}
	return req
}

func convertPostmanBody(body *postmanBody) core.Body {
	if body == nil {
		return nil
	}
	switch body.Mode {
	case "raw":
		if body.Raw == "" {
			return nil
		}
		if json.Valid([]byte(body.Raw)) {
			return core.JSONBody{Value: json.RawMessage(body.Raw)}
		}
		return core.RawBody{Content: body.Raw, ContentType: "text/plain"}
	case "urlencoded":
		fields := make(map[string]string)
		for _, pair := range body.URLEncoded {
			if !pair.Disabled {
				fields[pair.Key] = pair.Value
			}
		}
		if len(fields) == 0 {
			return nil
		}
		return core.URLEncodedBody{Fields: fields}
	case "formdata":
		fields := make(map[string]string)
		for _, field := range body.FormData {
			if field.Disabled {
				continue
			}
			if field.Type == "file" {
				fields[field.Key] = field.Src
			} else {
				fields[field.Key] = field.Value
			}
		}
		if len(fields) == 0 {
			return nil
		}
		return core.FormDataBody{Fields: fields}
	}
	return nil
}

func convertPostmanAuth(auth *postmanAuth) *core.AuthConfig {
	if auth == nil {
		return nil
	}
	switch auth.Type {
	case "basic":
		var username, password string
		for _, param := range auth.Basic {
			switch param.Key {
			case "username":
				username = param.Value
			case "password":
				password = param.Value
			}
		}
		return core.NewBasicAuth(username, password)
	case "bearer":
		for _, param := range auth.Bearer {
			if param.Key == "token" {
				return core.NewBearerAuth(param.Value)
			}
		}
		return core.NewBearerAuth("")
	case "noauth":
		return &core.AuthConfig{Type: core.AuthTypeNone}
	}
	return nil
}

// Postman collection format structures.

type postmanCollection struct {
	Info postmanInfo   `json:"info"`
	Item []postmanItem `json:"item"`
	Auth *postmanAuth  `json:"auth,omitempty"`
}

type postmanInfo struct {
	Name        string              `json:"name"`
	Description *postmanDescription `json:"description,omitempty"`
	Schema      string              `json:"schema"`
}

type postmanItem struct {
	Name        string                 `json:"name"`
	Description *postmanDescription    `json:"description,omitempty"`
	Item        []postmanItem          `json:"item,omitempty"`
	Request     *postmanRequestDetails `json:"request,omitempty"`
	Auth        *postmanAuth           `json:"auth,omitempty"`
}

type postmanRequestDetails struct {
	Method string          `json:"method"`
	Header []postmanHeader `json:"header,omitempty"`
	Body   *postmanBody    `json:"body,omitempty"`
	URL    *postmanURL     `json:"url,omitempty"`
}

type postmanHeader struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
}

type postmanBody struct {
	Mode       string            `json:"mode"`
	Raw        string            `json:"raw,omitempty"`
	URLEncoded []postmanKeyValue `json:"urlencoded,omitempty"`
	FormData   []postmanFormData `json:"formdata,omitempty"`
}

type postmanKeyValue struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
}

type postmanFormData struct {
	Key      string `json:"key"`
	Value    string `json:"value,omitempty"`
	Src      string `json:"src,omitempty"`
	Type     string `json:"type,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

type postmanAuth struct {
	Type   string             `json:"type"`
	Basic  []postmanAuthParam `json:"basic,omitempty"`
	Bearer []postmanAuthParam `json:"bearer,omitempty"`
}

type postmanAuthParam struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// postmanDescription accepts both the bare string and the
// {"content": ...} object form.
type postmanDescription struct {
	Content string
}

func (d *postmanDescription) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		d.Content = plain
		return nil
	}
	var obj struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	d.Content = obj.Content
	return nil
}

func (d *postmanDescription) text() string {
	if d == nil {
		return ""
	}
	return d.Content
}

// postmanURL accepts both the bare string and the structured object
// form.
type postmanURL struct {
	Raw      string
	Protocol string
	Host     []string
	Port     string
	Path     []string
	Query    []postmanKeyValue
}

func (u *postmanURL) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		u.Raw = plain
		return nil
	}
	var obj struct {
		Raw      string            `json:"raw,omitempty"`
		Protocol string            `json:"protocol,omitempty"`
		Host     []string          `json:"host,omitempty"`
		Port     string            `json:"port,omitempty"`
		Path     []string          `json:"path,omitempty"`
		Query    []postmanKeyValue `json:"query,omitempty"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*u = postmanURL{obj.Raw, obj.Protocol, obj.Host, obj.Port, obj.Path, obj.Query}
	return nil
}

// build prefers the raw URL and otherwise assembles one from the parts,
// keeping only enabled query parameters.
func (u *postmanURL) build() string {
	if u == nil {
		return ""
	}
	if u.Raw != "" {
		return u.Raw
	}

	var b strings.Builder
	if u.Protocol != "" {
		b.WriteString(u.Protocol)
		b.WriteString("://")
	}
	b.WriteString(strings.Join(u.Host, "."))
	if u.Port != "" {
		b.WriteString(":")
		b.WriteString(u.Port)
	}
	if len(u.Path) > 0 {
		b.WriteString("/")
		b.WriteString(strings.Join(u.Path, "/"))
	}

	var pairs []string
	for _, q := range u.Query {
		if !q.Disabled {
			pairs = append(pairs, q.Key+"="+q.Value)
		}
	}
	if len(pairs) > 0 {
		b.WriteString("?")
		b.WriteString(strings.Join(pairs, "&"))
	}
	return b.String()
}
