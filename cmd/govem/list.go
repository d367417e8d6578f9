package main

import (
	"fmt"

	"github.com/ZebulonRouseFrantzich/govem/internal/store"
	"github.com/ZebulonRouseFrantzich/govem/internal/version"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List installed Godot versions",
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			installs, err := a.store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(installs) == 0 {
				a.printf("No Godot versions installed.\n\n")
				a.printf("To install one:\n  govem install 4.2.1\n")
				return nil
			}

			current, active := a.activation.Current(cmd.Context())
			table := tablewriter.NewWriter(a.stdout)
			table.Options(tablewriter.WithHeader([]string{"", "Version", "Flavor", "Channel", "Source", "Installed"}))
			for _, iv := range installs {
				mark := ""
				if active && current.Key == iv.Key {
					mark = "*"
				}
				if err := table.Append(installRow(mark, iv)); err != nil {
					return fmt.Errorf("failed to append row: %w", err)
				}
			}
			if err := table.Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}
			return nil
		},
	}
}

func installRow(mark string, iv store.InstalledVersion) []string {
	source := iv.Meta.SourceKind
	if iv.SelfContained {
		source += ", self-contained"
	}
	installed := ""
	if !iv.Meta.InstalledAt.IsZero() {
		installed = iv.Meta.InstalledAt.Local().Format("2006-01-02 15:04")
	}
	return []string{mark, iv.Key.ID, iv.Key.Flavor, version.Channel(iv.Key.ID), source, installed}
}

func newCurrentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the active Godot version",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			iv, ok := a.activation.Current(cmd.Context())
			if !ok {
				a.printf("No Godot version is active.\n")
				return nil
			}
			a.printf("%s\n", iv.Key)
			a.logger.Debug("active executable", "path", iv.Executable)
			return nil
		},
	}
}
