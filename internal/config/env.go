package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variables that override the config file.
const (
	EnvHost      = "LIVEVIEW_HOST"
	EnvEventPort = "LIVEVIEW_EVENT_PORT"
	EnvFetchPort = "LIVEVIEW_FETCH_PORT"
	EnvPlatform  = "LIVEVIEW_PLATFORM"
	EnvResources = "LIVEVIEW_RESOURCES"
)

// LookupFunc reads an environment variable.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from the process environment.
//
// Returns:
//   - error: If a port variable is not a number
func (c *Config) ApplyEnv() error {
	return c.ApplyEnvFrom(os.LookupEnv)
}

// ApplyEnvFrom overrides fields from lookup. Empty values are ignored.
//
// Parameters:
//   - lookup: Environment accessor
//
// Returns:
//   - error: If a port variable is not a number
func (c *Config) ApplyEnvFrom(lookup LookupFunc) error {
	if v, ok := lookup(EnvHost); ok && v != "" {
		c.Host = v
	}
	if v, ok := lookup(EnvPlatform); ok && v != "" {
		c.Platform = v
	}
	if v, ok := lookup(EnvResources); ok && v != "" {
		c.Resources = v
	}

	ports := []struct {
		key    string
		target *int
	}{
		{EnvEventPort, &c.EventPort},
		{EnvFetchPort, &c.FetchPort},
	}
	for _, p := range ports {
		v, ok := lookup(p.key)
		if !ok || v == "" {
			continue
		}
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", p.key, v, err)
		}
		*p.target = port
	}

	return nil
}
