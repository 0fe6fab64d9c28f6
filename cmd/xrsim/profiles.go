package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/xr/api"
	"github.com/gogpu/xr/input"
)

func newProfilesCmd(g *globalFlags) *cobra.Command {
	var (
		file    string
		summary bool
	)
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Print controller binding tables",
		Long: `Profiles prints the binding tables suggested to the runtime, as YAML that
run --config can load through input.profiles_file. Tables come from --file,
else from the configuration, else the built-in set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" && g.configFile != "" {
				cfg, err := loadConfig(g.configFile)
				if err != nil {
					return err
				}
				file = cfg.Input.ProfilesFile
			}
			profiles, err := loadProfiles(file)
			if err != nil {
				return err
			}
			if profiles == nil {
				profiles = input.DefaultProfiles()
			}
			if summary {
				printProfileSummary(cmd.OutOrStdout(), profiles)
				return nil
			}
			return input.WriteProfiles(cmd.OutOrStdout(), profiles)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML binding tables to load instead of the built-in set")
	cmd.Flags().BoolVar(&summary, "summary", false, "list the actions each profile binds instead of the full tables")
	return cmd
}

// printProfileSummary lists each profile with the actions it binds, and
// the declared actions it leaves unbound.
func printProfileSummary(w io.Writer, profiles []input.Profile) {
	for _, p := range profiles {
		headerLabel.Fprintln(w, p.Path)
		bound := p.ActionsBound()
		fmt.Fprintf(w, "  bound    %s\n", okLabel.Sprint(strings.Join(bound, ", ")))

		var missing []string
		for _, d := range input.Declarations {
			if !slices.Contains(bound, d.Name) {
				missing = append(missing, d.Name)
			}
		}
		if len(missing) > 0 {
			fmt.Fprintf(w, "  unbound  %s\n", warnLabel.Sprint(strings.Join(missing, ", ")))
		}
	}
}

func newBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List registered runtime backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			available := api.AvailableBackends()
			for _, name := range api.Backends() {
				if slices.Contains(available, name) {
					fmt.Fprintf(w, "%-12s %s\n", name, okLabel.Sprint("available"))
				} else {
					fmt.Fprintf(w, "%-12s %s\n", name, errorLabel.Sprint("unavailable"))
				}
			}
			return nil
		},
	}
}
