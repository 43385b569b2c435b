package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgewall-hq/go-sonicos/internal/probe"
	"github.com/edgewall-hq/go-sonicos/pkg/httpclient"
	"github.com/edgewall-hq/go-sonicos/pkg/sonicos"
)

const diagnoseTimeout = 10 * time.Second

// newDiagnoseCmd creates and returns a new diagnose command
func newDiagnoseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Probe the firewall endpoint and classify what answers",
		Long: `Diagnose sends an unauthenticated probe to the firewall API endpoint and
reports whether the SonicOS API, the web management portal, or nothing at
all answered. A portal answer usually means the API module is disabled on
the appliance.

Example:
  sonicosctl diagnose --target branch-fw`,
		Args: cobra.NoArgs,
		RunE: runDiagnose,
	}
}

// runDiagnose handles the diagnose command execution
func runDiagnose(cmd *cobra.Command, args []string) error {
	clientCfg, err := resolveClientConfig()
	if err != nil {
		return err
	}
	client := sonicos.New(clientCfg)
	defer client.Close()
	url := client.BaseURL() + "/auth"

	var hc httpclient.Client
	if clientCfg.InsecureSkipVerify {
		hc = httpclient.NewInsecureRestyClient(diagnoseTimeout)
	} else {
		hc = httpclient.NewRestyClient(diagnoseTimeout)
	}

	finding := probe.New(hc).Check(cmd.Context(), url)

	if jsonOutput {
		printJSON(finding)
		if finding.Kind != probe.KindAPI {
			return ErrAlreadyHandled
		}
		return nil
	}

	switch finding.Kind {
	case probe.KindAPI:
		okLabel.Printf("✓ SonicOS API answered at %s (status %d)\n", url, finding.StatusCode)
		return nil
	case probe.KindPortal:
		errorLabel.Printf("✗ Web portal answered instead of the API (status %d)\n", finding.StatusCode)
		if finding.PageTitle != "" {
			fmt.Printf("Page title: %s\n", finding.PageTitle)
		}
		fmt.Println("Enable the SonicOS API module on the appliance and retry.")
		return ErrAlreadyHandled
	default:
		if !finding.Reachable {
			errorLabel.Printf("✗ Endpoint unreachable: %s\n", finding.Detail)
			return ErrAlreadyHandled
		}
		errorLabel.Printf("✗ Unrecognized answer from %s (status %d)\n", url, finding.StatusCode)
		return ErrAlreadyHandled
	}
}
