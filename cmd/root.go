package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mcpswap/internal/logger"
	"mcpswap/internal/paths"
	"mcpswap/internal/settings"
)

var (
	quietMode             bool
	version, commit, date string
)

// SetVersionInfo sets version information from ldflags
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
}

var rootCmd = &cobra.Command{
	Use:   "mcpswap [profile]",
	Short: "Swap MCP server profiles in and out of Claude Desktop",
	Long: `mcpswap keeps named MCP server definitions and profiles under ~/.mcpswap,
swaps a profile's servers into Claude Desktop's config file, and restarts
the app so the change takes effect.

Secrets never live in the stored definitions: a field whose entire value is
{{ENV:KEY}} or {{DOTENV:KEY}} is filled in from the environment or from
~/.mcpswap/.env at activation time.

The special profile name "last" restores the server set that was in place
before the most recent activation.`,
	Example: `  mcpswap work                 # Activate the "work" profile
  mcpswap last                 # Roll back to the previous server set
  mcpswap profile list         # List profiles, marking the active one
  mcpswap server add fs        # Define a new server in $EDITOR`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runActivate(args[0])
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(versionTemplate())
	},
}

func init() {
	cobra.OnInitialize(initLogging)
	rootCmd.PersistentFlags().BoolVarP(&quietMode, "quiet", "q", false, "Reduce terminal output to warnings and errors")

	rootCmd.AddCommand(versionCmd)
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}

func initLogging() {
	level := "info"
	logPath := ""
	if root, err := paths.Root(); err == nil {
		logPath = paths.LogPath(root)
		if cfg, err := settings.Load(paths.SettingsPath(root)); err == nil && cfg.LogLevel != "" {
			level = cfg.LogLevel
		}
	}
	if quietMode {
		level = "warn"
	}
	if err := logger.Init(level, logPath); err != nil {
		// Fall back to terminal-only logging.
		logger.Init(level, "")
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(versionTemplate())
	return rootCmd.Execute()
}

func versionTemplate() string {
	if commit != "none" && commit != "" {
		return fmt.Sprintf("mcpswap %s\n  commit: %s\n  built:  %s\n", version, commit, date)
	}
	return fmt.Sprintf("mcpswap %s\n", version)
}
