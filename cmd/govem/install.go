package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/ZebulonRouseFrantzich/govem/internal/download"
	"github.com/ZebulonRouseFrantzich/govem/internal/install"
	"github.com/ZebulonRouseFrantzich/govem/internal/version"
	"github.com/spf13/cobra"
)

type installOptions struct {
	mono          bool
	selfContained bool
	activate      bool
	file          string
	url           string
	name          string
}

func newInstallCmd(a *app) *cobra.Command {
	var opts installOptions
	cmd := &cobra.Command{
		Use:   "install <version>",
		Short: "Install a Godot version",
		Long: `Install a Godot release from the mirror, or a build from --file or --url.

A local file may be a directory, a .zip or .tar.gz archive, or a single
executable. The version argument names the installation.`,
		Example: "  govem install 4.2.1 --activate\n  govem install 4.3-beta2 --mono\n  govem install nightly --file ~/Downloads/godot.zip",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := a.installRequest(cmd, args[0], opts)
			if err != nil {
				return err
			}

			iv, err := a.installer.Install(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.printf("Successfully installed Godot %s\n", iv.Key)

			// Install has released the key lock, so activation can take it.
			if opts.activate {
				if _, err := a.activation.Activate(cmd.Context(), iv.Key); err != nil {
					return fmt.Errorf("installed, but activation failed: %w", err)
				}
				a.printActivated(iv.Key.String())
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.mono, "mono", "m", false, "Install the mono (C#) build")
	cmd.Flags().BoolVar(&opts.selfContained, "self-contained", false, "Keep editor settings inside the installation")
	cmd.Flags().BoolVar(&opts.activate, "activate", false, "Activate the version after installing")
	cmd.Flags().StringVarP(&opts.file, "file", "l", "", "Install from a local directory, archive or executable")
	cmd.Flags().StringVarP(&opts.url, "url", "z", "", "Install from a custom archive or executable URL")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "Install a release under a different name")
	return cmd
}

func (a *app) installRequest(cmd *cobra.Command, arg string, opts installOptions) (install.Request, error) {
	if opts.file != "" && opts.url != "" {
		return install.Request{}, usageError(errors.New("--file and --url cannot be combined"))
	}

	k, err := parseKey(arg)
	if err != nil {
		return install.Request{}, err
	}
	if opts.mono {
		k.Flavor = version.FlavorMono
	}

	req := install.Request{
		ID:            k.ID,
		Flavor:        k.Flavor,
		SelfContained: opts.selfContained,
		Progress:      newProgress(a.stdout),
	}
	switch {
	case opts.file != "":
		req.Path = opts.file
	case opts.url != "":
		req.URL = opts.url
	default:
		rel, err := a.catalog.Lookup(cmd.Context(), k.ID, k.Flavor)
		if err != nil {
			return install.Request{}, err
		}
		req.Release = &rel
	}
	if opts.name != "" {
		req.ID = opts.name
	}
	return req, nil
}

// newProgress prints a download percentage whenever it changes.
func newProgress(w io.Writer) download.ProgressFunc {
	last := -1
	return func(written, total int64) {
		if total <= 0 {
			return
		}
		pct := int(written * 100 / total)
		if pct == last {
			return
		}
		last = pct
		fmt.Fprintf(w, "\rDownloading... %3d%%", pct)
		if written >= total {
			fmt.Fprintln(w)
		}
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <version>",
		Aliases: []string{"uninstall"},
		Short:   "Remove an installed Godot version",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKey(args[0])
			if err != nil {
				return err
			}
			if err := a.installer.Remove(cmd.Context(), k); err != nil {
				return err
			}
			a.printf("Successfully removed Godot %s\n", k)
			return nil
		},
	}
}

func newPruneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete leftovers of interrupted installs and removals",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			removed, err := a.installer.Prune()
			for _, name := range removed {
				a.printf("Removed %s\n", name)
			}
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				a.printf("Nothing to prune.\n")
			}
			return nil
		},
	}
}
