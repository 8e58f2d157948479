package importer

import "restdeck/internal/core"

// Format identifies a supported import format.
type Format string

const (
	FormatBundle  Format = "bundle"
	FormatPostman Format = "postman"
	FormatOpenAPI Format = "openapi"
)

// Detect sniffs the import format from the content. Anything that is
// neither a Postman collection nor an OpenAPI document is treated as a
// native bundle.
func Detect(content []byte) Format {
	switch {
	case IsPostman(content):
		return FormatPostman
	case IsOpenAPI(content):
		return FormatOpenAPI
	default:
		return FormatBundle
	}
}

// Parse detects the format and converts the content into a collection
// forest: the root collection first, any sub-collections after it, and
// the requests assigned across them. Every record carries a freshly
// minted id, so importing never collides with existing records.
func Parse(content []byte) ([]core.Collection, []core.Request, Format, error) {
	switch format := Detect(content); format {
	case FormatPostman:
		collections, requests, err := ParsePostman(content)
		return collections, requests, format, err
	case FormatOpenAPI:
		collections, requests, err := ParseOpenAPI(content)
		return collections, requests, format, err
	default:
		collection, requests, err := ParseBundle(content)
		if err != nil {
			return nil, nil, FormatBundle, err
		}
		return []core.Collection{collection}, requests, FormatBundle, nil
	}
}
