package main

import (
	"fmt"

	"github.com/ZebulonRouseFrantzich/govem/internal/catalog"
	"github.com/ZebulonRouseFrantzich/govem/internal/store"
	"github.com/ZebulonRouseFrantzich/govem/internal/version"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newListRemoteCmd(a *app) *cobra.Command {
	var unstable, refresh bool
	cmd := &cobra.Command{
		Use:     "list-remote [prefix]",
		Aliases: []string{"versions"},
		Short:   "List Godot releases available for this platform",
		Example: "  govem list-remote 4.2\n  govem list-remote --unstable 4.3",
		Args:    maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var prefix string
			if len(args) == 1 {
				prefix = args[0]
			}

			listing, err := a.catalog.Fetch(cmd.Context(), refresh)
			if err != nil {
				return err
			}
			if listing.Warning != nil {
				a.logger.Warn(listing.Warning.Error())
			}

			installed := map[store.Key]bool{}
			if installs, err := a.store.List(cmd.Context()); err == nil {
				for _, iv := range installs {
					installed[iv.Key] = true
				}
			} else {
				a.logger.Debug("could not list installations", "error", err)
			}

			releases := catalog.Filter(listing.Releases, prefix, unstable)
			if len(releases) == 0 {
				a.printf("No matching releases found.\n")
				return nil
			}
			return a.renderReleases(releases, installed)
		},
	}
	cmd.Flags().BoolVar(&unstable, "unstable", false, "Include dev, alpha, beta and rc builds")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Refresh the release catalog before listing")
	return cmd
}

// renderReleases prints one table per major version.
func (a *app) renderReleases(releases []catalog.ReleaseDescriptor, installed map[store.Key]bool) error {
	var groups [][]catalog.ReleaseDescriptor
	for _, r := range releases {
		if n := len(groups); n > 0 && version.Major(groups[n-1][0].ID) == version.Major(r.ID) {
			groups[n-1] = append(groups[n-1], r)
			continue
		}
		groups = append(groups, []catalog.ReleaseDescriptor{r})
	}

	for i, group := range groups {
		if i > 0 {
			a.printf("\n")
		}
		a.printf("Godot %s\n", version.Major(group[0].ID))

		table := tablewriter.NewWriter(a.stdout)
		table.Options(tablewriter.WithHeader([]string{"Version", "Flavor", "Channel", "Installed"}))
		for _, r := range group {
			mark := ""
			if installed[store.Key{ID: r.ID, Flavor: r.Flavor}] {
				mark = "yes"
			}
			if err := table.Append([]string{r.ID, r.Flavor, r.Channel, mark}); err != nil {
				return fmt.Errorf("failed to append row: %w", err)
			}
		}
		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}
	}
	return nil
}

func newUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Refresh the release catalog from the mirror",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			listing, err := a.catalog.Fetch(cmd.Context(), true)
			if err != nil {
				return err
			}
			if listing.Stale {
				return fmt.Errorf("%w: %s", catalog.ErrCatalogUnavailable, listing.Warning)
			}
			a.printf("Release catalog updated: %d releases available.\n", len(listing.Releases))
			return nil
		},
	}
}
