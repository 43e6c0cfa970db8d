// Package config provides LiveView configuration management.
//
// This package handles reading and writing .liveview/config.yaml files and
// layering environment overrides on top of them. Command-line flags are
// applied last by the CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DirName is the per-project configuration directory.
	DirName = ".liveview"

	// FileName is the configuration file inside DirName.
	FileName = "config.yaml"

	// DefaultHost is the dev server host the client connects to.
	DefaultHost = "127.0.0.1"

	// DefaultEventPort is the control-plane (TCP) port.
	DefaultEventPort = 8323

	// DefaultFetchPort is the source (HTTP) port.
	DefaultFetchPort = 8324

	// DefaultFetchTimeout bounds each source fetch.
	DefaultFetchTimeout = 15 * time.Second

	// DefaultKeepAliveInterval is used when keep-alive is enabled without an interval.
	DefaultKeepAliveInterval = 300 * time.Second

	// DefaultEntry is the module required at startup.
	DefaultEntry = "app"

	// DefaultResources is the directory served by the dev server.
	DefaultResources = "Resources"

	// DefaultInteropPrefix is the directory holding native interop wrappers.
	DefaultInteropPrefix = "hyperloop"

	// DefaultListen is the address the dev server binds to.
	DefaultListen = "0.0.0.0"

	// DefaultDebounce is the minimum spacing between watcher-triggered reloads.
	DefaultDebounce = 250 * time.Millisecond
)

// Config represents the .liveview/config.yaml file.
type Config struct {
	// Host is the dev server host or IP the client connects to.
	Host string `yaml:"host,omitempty"`

	// EventPort is the control-plane port.
	EventPort int `yaml:"event_port,omitempty"`

	// FetchPort is the source port.
	FetchPort int `yaml:"fetch_port,omitempty"`

	// Platform is sent as the x-platform header (ios, android, ...).
	Platform string `yaml:"platform,omitempty"`

	// Entry is the module required at startup.
	Entry string `yaml:"entry,omitempty"`

	// Resources is the application source directory.
	Resources string `yaml:"resources,omitempty"`

	// InteropPrefix names the native interop wrapper directory.
	InteropPrefix string `yaml:"interop_prefix,omitempty"`

	// FetchTimeout bounds each source fetch (e.g. "15s").
	FetchTimeout time.Duration `yaml:"fetch_timeout,omitempty"`

	// Retry is the socket's own reconnect delay. Zero leaves reconnects to
	// the session.
	Retry time.Duration `yaml:"retry,omitempty"`

	// KeepAlive enables control-plane pings.
	KeepAlive bool `yaml:"keep_alive,omitempty"`

	// KeepAliveInterval is the ping period; zero means DefaultKeepAliveInterval.
	KeepAliveInterval time.Duration `yaml:"keep_alive_interval,omitempty"`

	// IgnoreCodes lists socket error codes that are never fatal.
	IgnoreCodes []int `yaml:"ignore_codes,omitempty"`

	// Strings is the localization table exposed to scripts through L().
	Strings map[string]string `yaml:"strings,omitempty"`

	// Serve contains dev server settings.
	Serve ServeConfig `yaml:"serve,omitempty"`
}

// ServeConfig contains dev server settings.
type ServeConfig struct {
	// Listen is the bind address for both servers.
	Listen string `yaml:"listen,omitempty"`

	// Watch enables reload broadcasts on file changes.
	Watch bool `yaml:"watch"`

	// Debounce is the minimum spacing between watcher-triggered reloads.
	Debounce time.Duration `yaml:"debounce,omitempty"`
}

// Defaults returns a configuration with every field set to its default.
//
// Returns:
//   - *Config: A new default configuration
func Defaults() *Config {
	return &Config{
		Host:          DefaultHost,
		EventPort:     DefaultEventPort,
		FetchPort:     DefaultFetchPort,
		Platform:      runtime.GOOS,
		Entry:         DefaultEntry,
		Resources:     DefaultResources,
		InteropPrefix: DefaultInteropPrefix,
		FetchTimeout:  DefaultFetchTimeout,
		Strings:       make(map[string]string),
		Serve: ServeConfig{
			Listen:   DefaultListen,
			Watch:    true,
			Debounce: DefaultDebounce,
		},
	}
}

// EffectiveKeepAlive returns the keep-alive interval, or 0 when disabled.
//
// Returns:
//   - time.Duration: The ping period to use
func (c *Config) EffectiveKeepAlive() time.Duration {
	if !c.KeepAlive {
		return 0
	}
	if c.KeepAliveInterval > 0 {
		return c.KeepAliveInterval
	}
	return DefaultKeepAliveInterval
}

// Validate checks that the configuration is usable.
//
// Returns:
//   - error: Validation error or nil if valid
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if err := validatePort("event_port", c.EventPort); err != nil {
		return err
	}
	if err := validatePort("fetch_port", c.FetchPort); err != nil {
		return err
	}
	if c.EventPort == c.FetchPort {
		return fmt.Errorf("event_port and fetch_port must differ (both %d)", c.EventPort)
	}
	if c.Entry == "" {
		return fmt.Errorf("entry is required")
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("fetch_timeout must not be negative")
	}
	return nil
}

func validatePort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s %d is out of range (1-65535)", name, port)
	}
	return nil
}

// Load loads a configuration file over the defaults.
//
// Parameters:
//   - path: Path to the config.yaml file
//
// Returns:
//   - *Config: The loaded configuration
//   - error: Any error that occurred during loading
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Strings == nil {
		cfg.Strings = make(map[string]string)
	}

	return cfg, nil
}

// LoadProject loads the configuration for the project containing dir. When
// no .liveview/ directory or config file exists the defaults are returned.
//
// Parameters:
//   - dir: Directory to start the search from
//
// Returns:
//   - *Config: The loaded or default configuration
//   - string: The project root, or "" when none was found
//   - error: Any error reading an existing config file
func LoadProject(dir string) (*Config, string, error) {
	root, err := FindProjectRoot(dir)
	if err != nil {
		return Defaults(), "", nil
	}

	path := filepath.Join(root, DirName, FileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Defaults(), root, nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, root, err
	}
	return cfg, root, nil
}

// Write writes a configuration file, creating its directory.
//
// Parameters:
//   - path: Path to write the config.yaml file
//   - cfg: The configuration to write
//
// Returns:
//   - error: Any error that occurred during writing
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := "# LiveView configuration\n\n"
	content := header + string(data)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// FindProjectRoot walks up from dir looking for a .liveview/ directory.
//
// Parameters:
//   - dir: Starting directory to search from
//
// Returns:
//   - string: The first ancestor (or dir itself) containing .liveview/
//   - error: Error if none is found before reaching /
func FindProjectRoot(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	current := absDir
	for {
		if info, err := os.Stat(filepath.Join(current, DirName)); err == nil && info.IsDir() {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no %s/ directory found (searched from %s to /)", DirName, absDir)
		}
		current = parent
	}
}
