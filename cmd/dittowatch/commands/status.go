package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittowatch/internal/cli/output"
	"github.com/marmos91/dittowatch/internal/cli/timeutil"
	"github.com/marmos91/dittowatch/pkg/apiclient"
)

var (
	statusOutput  string
	statusAPIURL  string
	statusTimeout time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status [mirror]",
	Short: "Show mirror health",
	Long: `Query a running DittoWatch server for the state of its mirrors.

Without arguments the server uptime, readiness and every mirror are
listed. With a mirror name its window summary and last probe are shown.

Examples:
  dittowatch status
  dittowatch status primary
  dittowatch status --api-url http://watcher:8080 --output json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAPIURL, "api-url", "http://localhost:8080", "Base URL of the DittoWatch API")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 5*time.Second, "Request timeout")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}
	_, noColor := os.LookupEnv("NO_COLOR")
	printer := output.NewPrinter(cmd.OutOrStdout(), format, !noColor)

	client := apiclient.New(statusAPIURL).WithTimeout(statusTimeout)
	ctx := cmd.Context()

	if len(args) == 1 {
		st, err := client.Mirror(ctx, args[0])
		if err != nil {
			if apiclient.IsNotFound(err) {
				return fmt.Errorf("mirror %q not found: %w", args[0], err)
			}
			return unreachable(client, err)
		}
		if format != output.FormatTable {
			return printer.Print(st)
		}
		return output.PrintKeyValue(printer.Writer(), output.MirrorDetail(*st))
	}

	statuses, err := client.Mirrors(ctx)
	if err != nil {
		return unreachable(client, err)
	}
	if format != output.FormatTable {
		return printer.Print(output.NewMirrorTable(statuses))
	}

	if info, err := client.Health(ctx); err == nil {
		printer.Printf("DittoWatch at %s\n", client.BaseURL())
		printer.Printf("  Started: %s\n", timeutil.FormatTime(info.StartedAt))
		printer.Printf("  Uptime:  %s\n", timeutil.FormatUptime(time.Duration(info.UptimeSec)*time.Second))
	}
	summary, err := client.Ready(ctx)
	var apiErr *apiclient.APIError
	switch {
	case err == nil:
		printer.Success(fmt.Sprintf("  Ready: %d healthy, %d unknown", summary.Healthy, summary.Unknown))
	case errors.As(err, &apiErr) && apiErr.IsUnavailable():
		printer.Error(fmt.Sprintf("  Not ready: %s %v", apiErr.Message, summary.Failed))
	}
	printer.Println()

	if len(statuses) == 0 {
		printer.Warning("No mirrors configured")
		return nil
	}
	return printer.Print(output.NewMirrorTable(statuses))
}

func unreachable(client *apiclient.Client, err error) error {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	return fmt.Errorf("failed to reach DittoWatch API at %s: %w\n\nIs the server running?", client.BaseURL(), err)
}
