package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/dop251/goja"
	"github.com/spf13/cobra"

	"github.com/revyl/liveview/internal/config"
	"github.com/revyl/liveview/internal/liveview"
	"github.com/revyl/liveview/internal/loader"
	"github.com/revyl/liveview/internal/ui"
)

var (
	runRestart  bool
	runFallback bool
)

// runCmd runs an application against a dev server.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the app against a dev server with live reload",
	Long: `Run the application's entry module, fetching every module from the dev
server and reloading whenever the server broadcasts a change.

EXAMPLES:
  liveview run
  liveview run --host 192.168.1.20 --platform android
  liveview run --entry main --keep-alive 30s`,
	RunE: runApp,
}

func init() {
	registerEndpointFlags(runCmd.Flags())
	runCmd.Flags().String("platform", runtime.GOOS, "Platform sent with every source request")
	runCmd.Flags().String("entry", config.DefaultEntry, "Entry module")
	runCmd.Flags().Duration("fetch-timeout", config.DefaultFetchTimeout, "Deadline for each source fetch")
	runCmd.Flags().Duration("keep-alive", 0, "Control-plane ping interval (0 disables)")
	runCmd.Flags().IntSlice("ignore-code", nil, "Socket error codes that are never fatal (repeatable)")
	runCmd.Flags().BoolVar(&runRestart, "restart", true, "Restart the whole process on reload when supported")
	runCmd.Flags().BoolVar(&runFallback, "fallback", false, "Fall back to the local resources directory for modules the server does not have")
}

func runApp(cmd *cobra.Command, args []string) error {
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			ui.Println()
			ui.PrintInfo("Stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()

	session, err := newRunSession(ctx, cfg)
	if err != nil {
		return err
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	if ui.ShouldShowBanner(quiet) {
		ui.PrintBanner(version)
	}
	ui.PrintKeyValues(
		"Events:", cfg.EventAddr(),
		"Sources:", cfg.FetchURL(),
		"Platform:", cfg.Platform,
		"Entry:", cfg.Entry,
		"Keep-alive:", formatDuration(cfg.EffectiveKeepAlive()),
	)
	ui.Println()

	err = session.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newRunSession builds a session from the effective configuration.
//
// Parameters:
//   - ctx: Context for source fetches
//   - cfg: The effective configuration
//
// Returns:
//   - *liveview.Session: A session ready to Run
//   - error: If the loader could not be created
func newRunSession(ctx context.Context, cfg *config.Config) (*liveview.Session, error) {
	logger := log.Default().WithPrefix("liveview")

	var source loader.Source = newHTTPSource(cfg)
	if runFallback {
		source = loader.ChainSource{source, &loader.FSSource{FS: os.DirFS(cfg.Resources)}}
	}

	process := loader.NewProcess()
	process.On(loader.EventUncaughtException, func(args ...any) {
		if len(args) == 0 {
			return
		}
		if ev, ok := args[0].(*loader.UncaughtException); ok {
			ui.PrintException(ev)
		}
	})

	opts := liveview.Options{
		Host:              cfg.Host,
		EventPort:         cfg.EventPort,
		FetchPort:         cfg.FetchPort,
		Platform:          cfg.Platform,
		FetchTimeout:      cfg.FetchTimeout,
		Entry:             cfg.Entry,
		IgnoreCodes:       cfg.IgnoreCodes,
		KeepAlive:         cfg.EffectiveKeepAlive(),
		Logger:            logger,
		ReconnectInterval: liveview.DefaultReconnectInterval,
		LoaderOptions: loader.Options{
			Source:       source,
			Natives:      nativeModules(cfg),
			InteropRules: loader.DefaultInteropRules(cfg.InteropPrefix),
			Process:      process,
			Globals:      map[string]any{"LIVEVIEW": true},
			Strings:      cfg.Strings,
			Context:      ctx,
			Logger:       logger.WithPrefix("loader"),
		},
	}
	if runRestart {
		opts.Restarter = liveview.RestarterFunc(restartProcess)
	}

	session, err := liveview.NewSession(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return session, nil
}

func newHTTPSource(cfg *config.Config) *loader.HTTPSource {
	src := loader.NewHTTPSource(cfg.Host, cfg.FetchPort, cfg.Platform)
	if cfg.FetchTimeout > 0 {
		src.Timeout = cfg.FetchTimeout
	}
	return src
}

// nativeModules returns the built-in modules available to scripts.
func nativeModules(cfg *config.Config) *loader.NativeRegistry {
	natives := loader.NewNativeRegistry()

	natives.Register("liveview/platform", func(vm *goja.Runtime, module *goja.Object) {
		exports := vm.NewObject()
		_ = exports.Set("osname", cfg.Platform)
		_ = exports.Set("host", cfg.Host)
		_ = exports.Set("version", version)
		_ = module.Set("exports", exports)
	})

	natives.Register("liveview/env", func(vm *goja.Runtime, module *goja.Object) {
		exports := vm.NewObject()
		_ = exports.Set("get", func(key string) string { return os.Getenv(key) })
		_ = module.Set("exports", exports)
	})

	return natives
}
