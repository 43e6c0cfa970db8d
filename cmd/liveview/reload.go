package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/revyl/liveview/internal/devserver"
	"github.com/revyl/liveview/internal/ui"
)

// reloadCmd asks a running dev server to broadcast a reload.
var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Tell connected apps to reload now",
	RunE:  runReload,
}

func init() {
	registerEndpointFlags(reloadCmd.Flags())
}

func runReload(cmd *cobra.Command, args []string) error {
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), devserver.DefaultClientTimeout)
	defer cancel()

	info, err := devserver.NewClient(cfg.FetchURL()).Reload(ctx)
	if err != nil {
		return err
	}

	if info.Notified == 0 {
		ui.PrintWarning("Reload sent, but no apps are connected")
		return nil
	}
	ui.PrintSuccess("Reload sent to %d app(s)", info.Notified)
	return nil
}
