package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	t.Run("pretty prints", func(t *testing.T) {
		out, err := JSON(`{"a":1,"b":[2,3]}`)
		require.NoError(t, err)
		assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": [\n    2,\n    3\n  ]\n}", out)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		_, err := JSON("{broken")
		assert.Error(t, err)
	})
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		contentType string
		want        string
	}{
		{"json content type", "{}", "application/json; charset=utf-8", "json"},
		{"xml content type", "<a/>", "text/xml", "xml"},
		{"html content type", "<html>", "text/html", "html"},
		{"sniffed json", `{"k":1}`, "", "json"},
		{"plain text", "hello", "", "txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.content, tt.contentType))
		})
	}
}
