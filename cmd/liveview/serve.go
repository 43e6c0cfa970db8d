package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/revyl/liveview/internal/config"
	"github.com/revyl/liveview/internal/devserver"
	"github.com/revyl/liveview/internal/tui"
	"github.com/revyl/liveview/internal/ui"
)

// serveCmd runs the development server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve app sources and broadcast reloads",
	Long: `Serve the resources directory over HTTP and push reload events to
connected apps whenever a file changes.

EXAMPLES:
  liveview serve
  liveview serve --resources app/Resources --no-watch
  liveview serve --listen 127.0.0.1`,
	RunE: runServe,
}

func init() {
	registerEndpointFlags(serveCmd.Flags())
	serveCmd.Flags().Bool("watch", true, "Broadcast a reload when sources change")
	serveCmd.Flags().Bool("no-watch", false, "Disable the file watcher")
	serveCmd.Flags().String("listen", config.DefaultListen, "Bind address for both servers")
	_ = serveCmd.Flags().MarkHidden("host")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if noWatch, _ := cmd.Flags().GetBool("no-watch"); noWatch {
		cfg.Serve.Watch = false
	}

	info, err := os.Stat(cfg.Resources)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("resources directory %s does not exist (set --resources or resources: in %s/%s)",
			cfg.Resources, config.DirName, config.FileName)
	}

	for _, port := range []int{cfg.EventPort, cfg.FetchPort} {
		if config.IsPortOpen("127.0.0.1", port) {
			return fmt.Errorf("port %d is already in use; is another dev server running?", port)
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	quiet, _ := cmd.Flags().GetBool("quiet")
	debug, _ := cmd.Flags().GetBool("debug")
	dashboard := tui.ShouldRunTUI(quiet) && !debug

	// Log lines would tear the dashboard, so it gets a silent logger.
	logger := log.Default().WithPrefix("devserver")
	if dashboard {
		logger = log.New(io.Discard)
	}

	eventAddr, httpAddr := cfg.ListenAddrs()
	server := devserver.New(devserver.Options{
		Resources: cfg.Resources,
		EventAddr: eventAddr,
		HTTPAddr:  httpAddr,
		Watch:     cfg.Serve.Watch,
		Debounce:  cfg.Serve.Debounce,
		Logger:    logger,
	})
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start dev server: %w", err)
	}
	defer server.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if dashboard {
		go func() {
			select {
			case <-sigChan:
				cancel()
			case <-ctx.Done():
			}
		}()
		err := tui.RunDashboard(ctx, version, server, []tui.Field{
			{Label: "Resources", Value: cfg.Resources},
			{Label: "Events", Value: eventAddr},
			{Label: "Sources", Value: httpAddr},
			{Label: "Browser events", Value: cfg.EventsURL()},
			{Label: "Watch", Value: fmt.Sprintf("%t", cfg.Serve.Watch)},
		})
		if err != nil {
			return fmt.Errorf("dashboard failed: %w", err)
		}
	} else {
		if ui.ShouldShowBanner(quiet) {
			ui.PrintBanner(version)
		}
		ui.PrintSuccess("Dev server running")
		ui.PrintKeyValues(
			"Resources:", cfg.Resources,
			"Events:", eventAddr,
			"Sources:", httpAddr,
			"Browser events:", cfg.EventsURL(),
			"Watch:", fmt.Sprintf("%t", cfg.Serve.Watch),
		)
		ui.Println()
		ui.PrintDim("Press Ctrl+C to stop")

		select {
		case <-sigChan:
			ui.Println()
			ui.PrintInfo("Stopping dev server...")
		case <-ctx.Done():
		}
	}

	start := time.Now()
	if err := server.Stop(); err != nil {
		return fmt.Errorf("failed to stop dev server: %w", err)
	}
	log.Debug("dev server stopped", "took", time.Since(start).Round(time.Millisecond), "reloads", server.Reloads())
	return nil
}
