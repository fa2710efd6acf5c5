package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wemix/lagwatch/internal/monitor"
)

// NewCheckCommand creates the check command
func NewCheckCommand(opts *Options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a single check cycle",
		Long: `Check runs exactly one cycle with the configured endpoints, notifiers and
state store, then prints the result. Notifications and state updates happen
as they would in run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			// keep stdout for the result
			log, err := newLogger(cfg, "stderr")
			if err != nil {
				return err
			}
			defer log.Sync()

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.monitor.RunCycle(cmd.Context())
			if asJSON {
				if printErr := printJSON(cmd.OutOrStdout(), result); printErr != nil {
					return printErr
				}
			} else {
				printResult(cmd.OutOrStdout(), result)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printResult(w io.Writer, r *monitor.CycleResult) {
	fmt.Fprintf(w, "Outcome: %s\n", r.Outcome)
	for _, e := range r.Endpoints {
		if e.OK() {
			fmt.Fprintf(w, "  %s: %d (%s)\n", e.Endpoint, e.Height, e.Latency)
		} else {
			fmt.Fprintf(w, "  %s: error: %s\n", e.Endpoint, e.Error)
		}
	}
	if r.Gap != nil {
		fmt.Fprintf(w, "Quorum height: %d\n", r.Gap.QuorumHeight)
		fmt.Fprintf(w, "Node height: %d\n", r.Gap.NodeHeight)
		fmt.Fprintf(w, "Height diff: %d\n", r.Gap.Diff)
		fmt.Fprintf(w, "Alert level: %d (%s)\n", r.Level, r.Transition)
		fmt.Fprintf(w, "State: %s\n", r.State)
	}
	if r.Message != "" {
		fmt.Fprintf(w, "Message: %s (delivered to %d channel(s))\n", r.Message, r.Notified)
	}
	if r.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", r.Error)
	}
}
