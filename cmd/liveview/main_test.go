// Package main provides sanity tests for the LiveView CLI command initialization.
package main

import (
	"testing"
)

// TestRootCommandInitialization verifies that the root command exists and has all expected subcommands.
func TestRootCommandInitialization(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd is nil")
	}

	expectedCommands := []string{"version", "init", "run", "serve", "reload", "mcp"}

	for _, name := range expectedCommands {
		found := false
		for _, cmd := range rootCmd.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected command %q not found", name)
		}
	}
}

// TestGlobalFlagsExist verifies that all expected global flags are registered on the root command.
func TestGlobalFlagsExist(t *testing.T) {
	for _, name := range []string{"debug", "quiet"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected global flag %q not found", name)
		}
	}
}

// TestRootCommandHasUse verifies the root command has the correct Use field.
func TestRootCommandHasUse(t *testing.T) {
	if rootCmd.Use != "liveview" {
		t.Errorf("expected root command Use to be 'liveview', got %q", rootCmd.Use)
	}
}

// TestSubcommandsHaveShortDescription verifies all subcommands have a Short description.
func TestSubcommandsHaveShortDescription(t *testing.T) {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Short == "" {
			t.Errorf("command %q is missing Short description", cmd.Name())
		}
	}
}

// TestEndpointFlagsRegistered verifies commands that reach a dev server accept
// the endpoint overrides.
func TestEndpointFlagsRegistered(t *testing.T) {
	for _, cmd := range []string{"run", "serve", "reload", "init"} {
		sub, _, err := rootCmd.Find([]string{cmd})
		if err != nil {
			t.Fatalf("Find(%q) error = %v", cmd, err)
		}
		for _, flag := range []string{"host", "event-port", "fetch-port", "resources"} {
			if sub.Flags().Lookup(flag) == nil {
				t.Errorf("command %q missing flag --%s", cmd, flag)
			}
		}
	}
}
