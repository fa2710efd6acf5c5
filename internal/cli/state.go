package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wemix/lagwatch/internal/state"
)

// NewStateCommand creates the state command
func NewStateCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or reset the stored alert state",
	}

	cmd.AddCommand(newStateShowCommand(opts))
	cmd.AddCommand(newStateResetCommand(opts))

	return cmd
}

func newStateShowCommand(opts *Options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored alert state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			current, err := store.Load()
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), current)
			}
			fmt.Fprintln(cmd.OutOrStdout(), current.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the state as JSON")

	return cmd
}

func newStateResetCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset the alert state to level 0 with no previous diff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := state.Reset(store); err != nil {
				return fmt.Errorf("failed to reset state: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "alert state reset")
			return nil
		},
	}
}

func (o *Options) openStore(cmd *cobra.Command) (state.Store, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	store, err := state.Open(cfg.State)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return store, nil
}
