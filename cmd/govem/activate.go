package main

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
)

func newActivateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "activate <version>",
		Aliases: []string{"select"},
		Short:   "Point the godot command at an installed version",
		Example: "  govem activate 4.2.1\n  govem activate 4.2.1-mono",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKey(args[0])
			if err != nil {
				return err
			}
			if _, err := a.activation.Activate(cmd.Context(), k); err != nil {
				return err
			}
			a.printActivated(k.String())
			return nil
		},
	}
}

func (a *app) printActivated(key string) {
	a.printf("Godot %s is now active as %s\n", key, a.activation.ShimPath())
	if !onPath(a.settings.ShimRoot, os.Getenv("PATH")) {
		a.printf("Note: %s is not on your PATH; add it to run %s directly.\n", a.settings.ShimRoot, a.settings.Command)
	}
}

// onPath reports whether dir is one of the entries of pathList.
func onPath(dir, pathList string) bool {
	dir = filepath.Clean(dir)
	return slices.ContainsFunc(filepath.SplitList(pathList), func(p string) bool {
		return p != "" && filepath.Clean(p) == dir
	})
}

func newDeactivateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate",
		Short: "Remove the godot command",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.activation.Deactivate(cmd.Context()); err != nil {
				return err
			}
			a.printf("No Godot version is active.\n")
			return nil
		},
	}
}
