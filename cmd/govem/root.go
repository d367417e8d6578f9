package main

import (
	"fmt"

	"github.com/ZebulonRouseFrantzich/govem/internal/store"
	"github.com/ZebulonRouseFrantzich/govem/internal/version"
	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "govem",
		Short:         "Install and switch between Godot engine versions",
		Long:          "govem downloads Godot releases into per-version directories and points a single godot command at the one you select.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetVersionTemplate("govem {{.Version}}\n")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newListRemoteCmd(a),
		newUpdateCmd(a),
		newListCmd(a),
		newInstallCmd(a),
		newRemoveCmd(a),
		newActivateCmd(a),
		newDeactivateCmd(a),
		newCurrentCmd(a),
		newPruneCmd(a),
	)
	return root
}

// exactArgs is cobra.ExactArgs with an error exitCode can classify.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return usageError(cobra.ExactArgs(n)(cmd, args))
	}
}

func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return usageError(cobra.MaximumNArgs(n)(cmd, args))
	}
}

// parseKey accepts "4.2.1", "4.2.1-mono" or "4.3-beta2-standard".
func parseKey(arg string) (store.Key, error) {
	k, err := store.ResolveKey(arg, version.FlavorStandard)
	if err != nil {
		return store.Key{}, fmt.Errorf("%q is not a valid version: %w", arg, err)
	}
	return k, nil
}
