package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"restdeck/internal/core"
	"restdeck/internal/workspace"
)

// SendOptions holds options for the send command.
type SendOptions struct {
	Headers []string
	Body    string
	JSON    bool
	Form    []string
	Save    string
}

// NewSendCommand creates the send command.
func NewSendCommand(configPath *string) *cobra.Command {
	opts := &SendOptions{}

	cmd := &cobra.Command{
		Use:   "send METHOD URL",
		Short: "Send an HTTP request",
		Long:  "Send an HTTP request through the workspace. The active environment's\nvariables are substituted into the URL, headers and body.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method := strings.ToUpper(args[0])
			return runSend(cmd, *configPath, method, args[1], opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Headers, "header", "H", nil, "Request headers (format: Key:Value)")
	cmd.Flags().StringVarP(&opts.Body, "body", "d", "", "Request body")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Treat the body as JSON")
	cmd.Flags().StringArrayVarP(&opts.Form, "form", "F", nil, "URL-encoded form fields (format: key=value)")
	cmd.Flags().StringVar(&opts.Save, "save", "", "Save the request under this name after sending")

	return cmd
}

func runSend(cmd *cobra.Command, configPath, method, url string, opts *SendOptions) error {
	ws, cleanup, err := openWorkspace(configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	body, err := buildBody(opts)
	if err != nil {
		return err
	}

	tab := ws.NewTab()
	ws.UpdateTab(tab.ID, workspace.RequestPatch{
		Method:  &method,
		URL:     &url,
		Headers: parseHeaders(opts.Headers),
		Body:    body,
		SetBody: true,
	})

	ctx := cmd.Context()
	resp, err := ws.SendTab(ctx, tab.ID)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	printResponse(cmd.OutOrStdout(), resp)

	if opts.Save != "" {
		ws.UpdateTab(tab.ID, workspace.RequestPatch{Name: &opts.Save})
		if err := ws.SaveTab(ctx, tab.ID); err != nil {
			return fmt.Errorf("send succeeded but save failed: %w", err)
		}
		dim.Fprintf(cmd.OutOrStdout(), "Saved as %q\n", opts.Save)
	}
	return nil
}

func buildBody(opts *SendOptions) (core.Body, error) {
	switch {
	case len(opts.Form) > 0:
		fields := make(map[string]string, len(opts.Form))
		for _, f := range opts.Form {
			key, value, ok := strings.Cut(f, "=")
			if !ok {
				return nil, fmt.Errorf("invalid form field %q, expected key=value", f)
			}
			fields[key] = value
		}
		return core.URLEncodedBody{Fields: fields}, nil
	case opts.Body == "":
		return nil, nil
	case opts.JSON:
		if !json.Valid([]byte(opts.Body)) {
			return nil, fmt.Errorf("body is not valid JSON")
		}
		return core.JSONBody{Value: json.RawMessage(opts.Body)}, nil
	default:
		return core.RawBody{Content: opts.Body}, nil
	}
}

// parseHeaders converts header strings to a map.
func parseHeaders(headerStrs []string) map[string]string {
	headers := make(map[string]string)
	for _, h := range headerStrs {
		key, value, ok := strings.Cut(h, ":")
		if !ok {
			continue
		}
		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return headers
}
