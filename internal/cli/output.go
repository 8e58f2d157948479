package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"restdeck/internal/core"
)

var (
	statusOK    = color.New(color.FgGreen, color.Bold)
	statusWarn  = color.New(color.FgYellow, color.Bold)
	statusError = color.New(color.FgRed, color.Bold)
	dim         = color.New(color.Faint)
	heading     = color.New(color.FgCyan)
)

func statusStyle(code int) *color.Color {
	switch {
	case code >= 200 && code < 300:
		return statusOK
	case code >= 300 && code < 400:
		return statusWarn
	default:
		return statusError
	}
}

func printResponse(out io.Writer, resp *core.Response) {
	statusStyle(resp.Status).Fprintf(out, "HTTP %d %s\n", resp.Status, resp.StatusText)
	dim.Fprintf(out, "Time: %dms  Size: %d bytes\n\n", resp.ResponseTime, resp.Size)

	if len(resp.Headers) > 0 {
		heading.Fprintln(out, "Headers:")
		keys := make([]string, 0, len(resp.Headers))
		for key := range resp.Headers {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(out, "  %s: %s\n", key, resp.Headers[key])
		}
		fmt.Fprintln(out)
	}

	if resp.Body != "" {
		heading.Fprintln(out, "Body:")
		fmt.Fprintln(out, resp.Body)
	}
}

func printCollectionTree(out io.Writer, ws collectionLister, parentID *string, indent string) {
	var collections []core.Collection
	if parentID == nil {
		collections = ws.RootCollections()
	} else {
		collections = ws.ChildrenOf(*parentID)
	}
	for _, c := range collections {
		fmt.Fprintf(out, "%s%s  %s\n", indent, c.Name, dim.Sprint(c.ID))
		printCollectionTree(out, ws, &c.ID, indent+"  ")
	}
}

type collectionLister interface {
	RootCollections() []core.Collection
	ChildrenOf(id string) []core.Collection
}
