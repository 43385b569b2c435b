package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/edgewall-hq/go-sonicos/pkg/sonicos"
)

var (
	// Global flags
	jsonOutput bool
	targetID   string
)

var ErrAlreadyHandled = errors.New("already handled")

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sonicosctl [command] [flags]",
	Short: "sonicosctl - a command line interface for the SonicOS management API",
	Long: `sonicosctl drives the SonicOS management API on SonicWall firewalls.
It authenticates a session with HTTP digest credentials, inspects and commits
staged configuration, and sends raw API requests.

The firewall is picked from the environment (FIREWALL_HOST, API_USERNAME,
API_PASSWORD) or, with --target, from the fleet targets file.

Examples:
  # Check whether unsaved changes are staged on the default firewall
  sonicosctl pending

  # Commit staged changes on a fleet target
  sonicosctl commit --target branch-fw

  # Send a raw API request
  sonicosctl request GET /reporting/status/system`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	// Set up persistent flags
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVarP(&targetID, "target", "t", "", "Fleet target id from the targets file")

	// Add commands
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newPendingCmd())
	rootCmd.AddCommand(newCommitCmd())
	rootCmd.AddCommand(newDiscardCmd())
	rootCmd.AddCommand(newRequestCmd())
	rootCmd.AddCommand(newDiagnoseCmd())
	rootCmd.AddCommand(newAuditCmd())
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true // Prevent Cobra from printing the error
	rootCmd.SilenceUsage = true  // Prevent Cobra from printing usage on error

	err := rootCmd.Execute()
	if err != nil {
		if errors.Is(err, ErrAlreadyHandled) {
			os.Exit(1)
		}
		if jsonOutput {
			kv := map[string]string{
				"error": err.Error(),
			}
			printJSON(kv)
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// newVersionCmd creates and returns a new version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of sonicosctl",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				kv := map[string]string{
					"version": getCLIVersion(),
				}
				printJSON(kv)
			} else {
				cmd.Printf("sonicosctl %s\n", getCLIVersion())
			}
		},
	}
}

// printJSON prints the given value as JSON to stdout
func printJSON(data interface{}) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(jsonData))
}

// printResult renders an API result in the selected output mode.
func printResult(res sonicos.Result) {
	if jsonOutput {
		printJSON(res)
		return
	}
	if res.Success {
		okLabel.Printf("✓ %s\n", res.Message)
	} else {
		errorLabel.Printf("✗ %s\n", res.Message)
	}
	if len(res.Data) > 0 {
		fmt.Println(indentJSON(res.Data))
	}
}

// finishResult prints the result and maps firewall refusals to a non-zero
// exit without a second error line.
func finishResult(res sonicos.Result) error {
	printResult(res)
	if !res.Success {
		return ErrAlreadyHandled
	}
	return nil
}

func indentJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// getCLIVersion returns the current CLI version
func getCLIVersion() string {
	return "v0.1.0"
}
