package cli

import (
	"github.com/spf13/cobra"

	"github.com/wemix/lagwatch/internal/config"
)

// Options holds the persistent flags shared by every command
type Options struct {
	ConfigFile   string
	TelegramFile string
	EnvFile      string
	StateFile    string
	LogLevel     string
}

// NewRootCommand creates the root command for lagwatch
func NewRootCommand() *cobra.Command {
	opts := &Options{}
	defaults := config.DefaultLoadOptions()

	cmd := &cobra.Command{
		Use:   "lagwatch",
		Short: "Block height lag monitor",
		Long: `Lagwatch compares the block height of a node with a set of reference
RPC endpoints and sends an alert whenever the lag crosses a threshold level.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigFile, "config", "c", defaults.ConfigFile, "Path to the configuration file")
	flags.StringVar(&opts.TelegramFile, "telegram-config", defaults.TelegramFile, "Path to the Telegram credentials file")
	flags.StringVar(&opts.EnvFile, "env-file", defaults.EnvFile, "Path to a .env file loaded before the configuration")
	flags.StringVar(&opts.StateFile, "state-file", "", "Override the alert state path")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Override the log level (debug, info, warn, error)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewStateCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}
