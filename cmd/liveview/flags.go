package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/revyl/liveview/internal/config"
)

// registerEndpointFlags adds the flags shared by commands that talk to or
// run a dev server.
//
// Parameters:
//   - fs: The command's flag set
func registerEndpointFlags(fs *pflag.FlagSet) {
	fs.String("host", config.DefaultHost, "Dev server host or IP")
	fs.Int("event-port", config.DefaultEventPort, "Control-plane (TCP) port")
	fs.Int("fetch-port", config.DefaultFetchPort, "Source (HTTP) port")
	fs.String("resources", config.DefaultResources, "Application source directory")
}

// applyFlags copies explicitly set flags over cfg. Flags the user did not
// pass leave the file and environment values alone.
//
// Parameters:
//   - cfg: Configuration to update
//   - fs: Parsed flag set
func applyFlags(cfg *config.Config, fs *pflag.FlagSet) {
	if changed(fs, "host") {
		cfg.Host, _ = fs.GetString("host")
	}
	if changed(fs, "event-port") {
		cfg.EventPort, _ = fs.GetInt("event-port")
	}
	if changed(fs, "fetch-port") {
		cfg.FetchPort, _ = fs.GetInt("fetch-port")
	}
	if changed(fs, "resources") {
		cfg.Resources, _ = fs.GetString("resources")
	}
	if changed(fs, "platform") {
		cfg.Platform, _ = fs.GetString("platform")
	}
	if changed(fs, "entry") {
		cfg.Entry, _ = fs.GetString("entry")
	}
	if changed(fs, "fetch-timeout") {
		cfg.FetchTimeout, _ = fs.GetDuration("fetch-timeout")
	}
	if changed(fs, "ignore-code") {
		cfg.IgnoreCodes, _ = fs.GetIntSlice("ignore-code")
	}
	if changed(fs, "keep-alive") {
		interval, _ := fs.GetDuration("keep-alive")
		cfg.KeepAlive = interval > 0
		cfg.KeepAliveInterval = interval
	}
	if changed(fs, "watch") {
		cfg.Serve.Watch, _ = fs.GetBool("watch")
	}
	if changed(fs, "listen") {
		cfg.Serve.Listen, _ = fs.GetString("listen")
	}
}

// changed reports whether the named flag exists and was set by the user.
func changed(fs *pflag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	return f != nil && f.Changed
}

// resolveConfig loads configuration with precedence file < env < flags.
//
// Parameters:
//   - cmd: The running command
//
// Returns:
//   - *config.Config: The effective configuration
//   - string: The project root, or the working directory when none exists
//   - error: Any load, parse or validation error
func resolveConfig(cmd *cobra.Command) (*config.Config, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, root, err := config.LoadProject(cwd)
	if err != nil {
		return nil, "", err
	}
	if root == "" {
		root = cwd
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, "", err
	}
	applyFlags(cfg, cmd.Flags())
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}

	if !filepath.IsAbs(cfg.Resources) {
		cfg.Resources = filepath.Join(root, cfg.Resources)
	}

	return cfg, root, nil
}

// formatDuration renders d for display, "off" when zero.
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "off"
	}
	return d.String()
}
