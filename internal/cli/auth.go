package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgewall-hq/go-sonicos/pkg/sonicos"
)

// newLoginCmd creates and returns a new login command
func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Verify API credentials against the firewall",
		Long: `Login authenticates against the SonicOS API with the configured digest
credentials and immediately releases the session again. Use it to confirm a
firewall is reachable and the credentials are accepted before scripting
against it.

Examples:
  sonicosctl login
  sonicosctl login --target branch-fw`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}
}

// runLogin handles the login command execution
func runLogin(cmd *cobra.Command, args []string) error {
	return withSession(cmd.Context(), func(ctx context.Context, client *sonicos.Client) error {
		if jsonOutput {
			kv := map[string]string{
				"status":   "success",
				"endpoint": client.BaseURL(),
			}
			printJSON(kv)
			return nil
		}
		okLabel.Printf("✓ Authenticated to %s\n", client.BaseURL())
		return nil
	})
}

// newLogoutCmd creates and returns a new logout command
func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Release the management session on the firewall",
		Long: `Logout asks the firewall to drop the management session held by the
configured credentials. Useful when a crashed run left a config-mode session
behind and the appliance refuses new logins.

Example:
  sonicosctl logout --target branch-fw`,
		Args: cobra.NoArgs,
		RunE: runLogout,
	}
}

// runLogout handles the logout command execution
func runLogout(cmd *cobra.Command, args []string) error {
	clientCfg, err := resolveClientConfig()
	if err != nil {
		return err
	}
	client := sonicos.New(clientCfg)
	defer client.Close()

	res, err := client.Logout(cmd.Context())
	if err != nil {
		return fmt.Errorf("logout from %s: %w", client.BaseURL(), err)
	}
	return finishResult(res)
}
