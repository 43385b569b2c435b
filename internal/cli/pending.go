package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgewall-hq/go-sonicos/pkg/sonicos"
)

// newPendingCmd creates and returns a new pending command
func newPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Show configuration changes staged on the firewall",
		Long: `Pending reads the unsaved configuration staged on the firewall. The
returned document holds every change waiting for a commit; an empty document
means the running and staged configuration match.

Examples:
  sonicosctl pending
  sonicosctl pending --target branch-fw --json`,
		Args: cobra.NoArgs,
		RunE: runPending,
	}
}

// runPending handles the pending command execution
func runPending(cmd *cobra.Command, args []string) error {
	return withSession(cmd.Context(), func(ctx context.Context, client *sonicos.Client) error {
		res, err := client.PendingConfigurations(ctx)
		if err != nil {
			return fmt.Errorf("read pending configuration: %w", err)
		}
		return finishResult(res)
	})
}

// newCommitCmd creates and returns a new commit command
func newCommitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commit",
		Short: "Commit staged configuration changes",
		Long: `Commit persists every configuration change staged on the firewall into
the running and startup configuration.

Example:
  sonicosctl commit --target branch-fw`,
		Args: cobra.NoArgs,
		RunE: runCommit,
	}
}

// runCommit handles the commit command execution
func runCommit(cmd *cobra.Command, args []string) error {
	return withSession(cmd.Context(), func(ctx context.Context, client *sonicos.Client) error {
		res, err := client.Commit(ctx)
		if err != nil {
			return fmt.Errorf("commit pending configuration: %w", err)
		}
		return finishResult(res)
	})
}

// newDiscardCmd creates and returns a new discard command
func newDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard",
		Short: "Discard staged configuration changes",
		Long: `Discard drops every configuration change staged on the firewall without
applying it. The running configuration is untouched.

Example:
  sonicosctl discard --target branch-fw`,
		Args: cobra.NoArgs,
		RunE: runDiscard,
	}
}

// runDiscard handles the discard command execution
func runDiscard(cmd *cobra.Command, args []string) error {
	return withSession(cmd.Context(), func(ctx context.Context, client *sonicos.Client) error {
		res, err := client.DeletePendingConfigurations(ctx)
		if err != nil {
			return fmt.Errorf("discard pending configuration: %w", err)
		}
		return finishResult(res)
	})
}
