package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/revyl/liveview/internal/config"
	"github.com/revyl/liveview/internal/ui"
)

var initForce bool

// initCmd writes a default project configuration.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .liveview/config.yaml in the current directory",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration")
	registerEndpointFlags(initCmd.Flags())
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	path := filepath.Join(cwd, config.DirName, config.FileName)
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := config.Defaults()
	applyFlags(cfg, cmd.Flags())
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := config.Write(path, cfg); err != nil {
		return err
	}

	ui.PrintSuccess("Created %s", path)
	if _, err := os.Stat(filepath.Join(cwd, cfg.Resources)); os.IsNotExist(err) {
		ui.PrintWarning("Resources directory %q does not exist yet", cfg.Resources)
	}
	return nil
}
