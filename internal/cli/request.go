package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgewall-hq/go-sonicos/pkg/sonicos"
)

// newRequestCmd creates and returns a new request command
func newRequestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "request METHOD PATH [BODY]",
		Short: "Send a raw SonicOS API request",
		Long: `Request sends an arbitrary call to the SonicOS API inside an
authenticated session. METHOD is one of GET, POST, PUT, PATCH or DELETE,
PATH is relative to /api/sonicos, and BODY is an optional JSON document
sent as the request payload.

Examples:
  sonicosctl request GET /reporting/status/system
  sonicosctl request POST /address-objects/ipv4 '{"address_object":{"ipv4":{"name":"lab"}}}'`,
		Args: cobra.RangeArgs(2, 3),
		RunE: runRequest,
	}
}

// runRequest handles the request command execution
func runRequest(cmd *cobra.Command, args []string) error {
	method := args[0]
	path := args[1]

	var payload any
	if len(args) == 3 {
		var body json.RawMessage
		if err := json.Unmarshal([]byte(args[2]), &body); err != nil {
			return fmt.Errorf("parse request body: %w", err)
		}
		payload = body
	}

	return withSession(cmd.Context(), func(ctx context.Context, client *sonicos.Client) error {
		res, err := client.Do(ctx, method, path, payload)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		return finishResult(res)
	})
}
