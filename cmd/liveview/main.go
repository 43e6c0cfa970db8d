// Package main provides the entry point for the LiveView CLI.
//
// The LiveView CLI runs script applications against a development server
// and reloads them whenever their sources change. It also provides the
// development server itself.
package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/revyl/liveview/internal/ui"
)

// Version information set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "liveview",
	Short: "Live reload for script-driven apps",
	Long: `LiveView loads an application's modules from a development server and
reloads them in place whenever the sources change.

Start the server in your project:   liveview serve
Run the app against it:             liveview run --host <server-ip>
Trigger a reload by hand:           liveview reload`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		if debug {
			log.SetLevel(log.DebugLevel)
			log.Debug("Debug logging enabled")
		}

		quiet, _ := cmd.Flags().GetBool("quiet")
		ui.SetQuiet(quiet)
		if quiet && !debug {
			log.SetLevel(log.WarnLevel)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("%v", err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress non-essential output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(mcpCmd)
}

// versionCmd shows version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		quiet, _ := cmd.Flags().GetBool("quiet")
		if ui.ShouldShowBanner(quiet) {
			ui.PrintBanner(version)
		}
		ui.PrintKeyValues(
			"Version:", version,
			"Commit:", commit,
			"Built:", date,
		)
	},
}

func main() {
	Execute()
}
