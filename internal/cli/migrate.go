package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/histmig/internal/cli/appctx"
	"github.com/lherron/histmig/internal/config"
	"github.com/lherron/histmig/internal/engine"
	"github.com/lherron/histmig/internal/safari"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run the Safari to Chrome history migration",
	Long: `Migrates Safari browsing history into a Chrome profile's History
database. Both browsers must be closed. The destination is backed up
before any write; on failure it is restored and the run exits non-zero.

Examples:
  histmig migrate                          # Default paths, Default profile
  histmig migrate --profile "Profile 2"    # Another Chrome profile
  histmig migrate --dry-run                # Full run, rolled back at the end
  histmig migrate --limit 100              # Import at most 100 entries
  histmig migrate --extractor tool         # Use the sqlite3 CLI to read Safari
  histmig migrate --direct-copy            # Copy the whole source file instead
`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.WithLogger(), runMigrate),
}

var (
	migrateDryRun     bool
	migrateLimit      int
	migrateDirectCopy bool
	migrateExtractor  string
)

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "Perform every step except the final commit")
	migrateCmd.Flags().IntVar(&migrateLimit, "limit", 0, "Maximum number of entries to import (0 for all)")
	migrateCmd.Flags().BoolVar(&migrateDirectCopy, "direct-copy", false, "Copy the source file wholesale instead of extracting records")
	migrateCmd.Flags().StringVar(&migrateExtractor, "extractor", "", "Extraction strategy: library or tool (default from config)")
}

func runMigrate(app *appctx.App, cmd *cobra.Command, args []string) error {
	sourcePath, err := app.Config.ResolveSource()
	if err != nil {
		return err
	}
	destPath, err := app.Config.ResolveDest()
	if err != nil {
		return err
	}

	extractorKind := migrateExtractor
	if extractorKind == "" {
		extractorKind = app.Config.Extractor
	}
	if err := config.ValidateExtractor(extractorKind); err != nil {
		return err
	}

	var extractor safari.Extractor
	switch extractorKind {
	case "tool":
		extractor = &safari.ToolExtractor{Path: sourcePath}
	default:
		extractor = &safari.LibraryExtractor{Path: sourcePath}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Source:      %s\n", sourcePath)
	fmt.Fprintf(cmd.OutOrStdout(), "Destination: %s\n", destPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Log:         %s\n", app.LogPath)

	eng := engine.New(engine.Config{
		SourcePath: sourcePath,
		DestPath:   destPath,
		Limit:      migrateLimit,
		DryRun:     migrateDryRun,
		DirectCopy: migrateDirectCopy,
		Extractor:  extractor,
		Logger:     app.Logger,
	})

	result, runErr := eng.Run()

	if runErr != nil {
		if result.DestinationModified {
			fmt.Fprintln(cmd.OutOrStdout(), "Migration aborted: destination was left MODIFIED")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Migration aborted: destination was left unchanged")
		}
		return runErr
	}

	switch {
	case result.DirectCopy && result.DryRun:
		fmt.Fprintln(cmd.OutOrStdout(), "Dry run: would replace the destination with a copy of the source file")
	case result.DirectCopy:
		fmt.Fprintln(cmd.OutOrStdout(), "Replaced the destination with a copy of the source file")
	case result.DryRun:
		fmt.Fprintf(cmd.OutOrStdout(), "Dry run: would import %d entries (%d skipped as duplicates, %d failed)\n",
			result.Imported, result.Skipped, result.Failed)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries (%d skipped as duplicates, %d failed)\n",
			result.Imported, result.Skipped, result.Failed)
	}
	if result.BackupPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Backup retained at %s\n", result.BackupPath)
	}

	if result.Failed > 0 {
		return fmt.Errorf("%d record(s) could not be converted; see %s", result.Failed, app.LogPath)
	}
	return nil
}
