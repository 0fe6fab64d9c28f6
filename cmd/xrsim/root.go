package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/xr/config"
	"github.com/gogpu/xr/input"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "xrsim [command] [flags]",
		Short: "Drive an XR session against the simulated runtime",
		Long: `xrsim runs the session lifecycle, per-eye swapchains and input actions
against an in-process runtime, without a headset.

Examples:
  # Render 900 frames, then exit through the stopping state
  xrsim run --frames 900

  # Serve Prometheus metrics while running
  xrsim run --metrics-addr 127.0.0.1:9464

  # Print the built-in binding tables
  xrsim profiles`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&g.configFile, "config", "", "path to a YAML configuration file")

	cmd.AddCommand(newRunCmd(g))
	cmd.AddCommand(newProfilesCmd(g))
	cmd.AddCommand(newBackendsCmd())
	return cmd
}

// loadConfig reads path, or returns the defaults when path is empty.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// loadProfiles reads binding tables from path. An empty path yields nil so
// the built-in tables apply.
func loadProfiles(path string) ([]input.Profile, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("profiles: %w", err)
	}
	defer f.Close()
	return input.LoadProfiles(f)
}
