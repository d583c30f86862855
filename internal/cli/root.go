package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "histmig",
	Short: "Migrate Safari browsing history into a Chrome profile",
	Long: `histmig copies browsing history from Safari's History.db into a
Chrome profile's History database as a one-shot, transactional migration.
The destination is backed up before any write and restored on failure.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("source", "", "Path to Safari History.db (overrides HISTMIG_SOURCE_PATH)")
	rootCmd.PersistentFlags().String("dest", "", "Path to Chrome History file (overrides profile selection)")
	rootCmd.PersistentFlags().String("profile", "", "Chrome profile name, e.g. 'Default' or 'Profile 2'")
	rootCmd.PersistentFlags().String("log-dir", "", "Directory for per-run log files (overrides HISTMIG_LOG_DIR)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Echo debug logging to stderr")
}
