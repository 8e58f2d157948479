// Package format provides text formatting services for response and
// request bodies.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// JSON pretty-prints a JSON document with two-space indentation.
func JSON(content string) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(content), "", "  "); err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}
	return buf.String(), nil
}

// DetectLanguage maps a content type to a display language tag. Content
// without a recognizable type is probed for JSON.
func DetectLanguage(content, contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return "json"
	case strings.Contains(ct, "xml"):
		return "xml"
	case strings.Contains(ct, "html"):
		return "html"
	case strings.Contains(ct, "css"):
		return "css"
	case strings.Contains(ct, "javascript"):
		return "javascript"
	}
	if json.Valid([]byte(content)) && strings.TrimSpace(content) != "" {
		return "json"
	}
	return "txt"
}
