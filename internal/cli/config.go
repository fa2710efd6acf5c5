package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wemix/lagwatch/internal/alerting"
)

// NewConfigCommand creates the config command
func NewConfigCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect lagwatch configuration",
	}

	cmd.AddCommand(newConfigValidateCommand(opts))

	return cmd
}

func newConfigValidateCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			thresholds, err := cfg.Thresholds()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration is valid")
			fmt.Fprintf(out, "Reference endpoints: %d\n", len(cfg.RPCs))
			for _, url := range cfg.RPCURLs() {
				fmt.Fprintf(out, "  %s\n", url)
			}
			fmt.Fprintf(out, "Node: %s\n", cfg.Node.URL)
			fmt.Fprintf(out, "Interval: %s, timeout: %s\n", cfg.Check.Interval, cfg.Check.Timeout)
			fmt.Fprintln(out, "Thresholds:")
			for level := alerting.Level(1); level <= alerting.MaxLevel; level++ {
				fmt.Fprintf(out, "  level_%d: %d\n", level, thresholds.For(level))
			}
			if !thresholds.Ascending() {
				fmt.Fprintln(out, "Warning: thresholds are not strictly ascending")
			}
			fmt.Fprintf(out, "State: %s (%s)\n", cfg.State.ResolvedPath(), cfg.State.Backend)
			for _, channel := range cfg.ChannelConfigs() {
				name := channel.Name
				if name == "" {
					name = channel.Type
				}
				fmt.Fprintf(out, "Notifier: %s (%s)\n", name, channel.Type)
			}
			return nil
		},
	}
}
