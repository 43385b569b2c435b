package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgewall-hq/go-sonicos/internal/config"
	"github.com/edgewall-hq/go-sonicos/internal/storage"
)

// newAuditCmd creates and returns a new audit command
func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the recent drift watcher audit journal",
		Long: `Audit prints the most recent entries from the drift watcher journal,
newest first. The journal records logins, detected drifts, and commit
activity per firewall. The journal file is opened read-only, so it is safe
to inspect next to a running watcher.

Examples:
  sonicosctl audit
  sonicosctl audit --limit 50 --json`,
		Args: cobra.NoArgs,
		RunE: runAudit,
	}
	cmd.Flags().Int("limit", 20, "Maximum number of entries to show")
	return cmd
}

// runAudit handles the audit command execution
func runAudit(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if _, err := os.Stat(cfg.BBoltPath); os.IsNotExist(err) {
		fmt.Println("No audit journal found. Run driftwatch first.")
		return nil
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("open audit journal: %w", err)
	}
	defer store.Close()

	entries, err := store.RecentAudit(limit)
	if err != nil {
		return fmt.Errorf("read audit journal: %w", err)
	}

	if jsonOutput {
		printJSON(entries)
		return nil
	}
	if len(entries) == 0 {
		fmt.Println("Audit journal is empty.")
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-15s %s", e.Time.Format(time.RFC3339), e.Action, e.Host)
		if e.Detail != "" {
			line += "  " + e.Detail
		}
		fmt.Println(line)
	}
	return nil
}
