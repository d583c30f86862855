package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lherron/histmig/internal/cli/appctx"
	"github.com/lherron/histmig/internal/db"
	"github.com/lherron/histmig/internal/guard"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that a migration could run",
	Long: `Performs health checks on the source and destination databases and
reports browser processes that would block a migration. Nothing is modified.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runDoctor),
}

var doctorJSON bool

type checkResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Message string `json:"message,omitempty"`
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Output as JSON")
}

func runDoctor(app *appctx.App, cmd *cobra.Command, args []string) error {
	var checks []checkResult

	sourcePath, err := app.Config.ResolveSource()
	if err != nil {
		checks = append(checks, checkResult{Name: "source_path", Status: "error", Message: err.Error()})
	} else {
		checks = append(checks, checkResult{Name: "source_path", Status: "ok", Message: sourcePath})
		checks = append(checks, checkHistoryDB("source", sourcePath, []string{"history_items", "history_visits"})...)
	}

	destPath, err := app.Config.ResolveDest()
	if err != nil {
		checks = append(checks, checkResult{Name: "dest_path", Status: "error", Message: err.Error()})
	} else {
		checks = append(checks, checkResult{Name: "dest_path", Status: "ok", Message: destPath})
		checks = append(checks, checkHistoryDB("dest", destPath, []string{"urls", "visits"})...)
	}

	checks = append(checks, checkBrowsers())

	errors := 0
	for _, c := range checks {
		if c.Status == "error" {
			errors++
		}
	}

	if doctorJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(checks); err != nil {
			return err
		}
	} else {
		for _, c := range checks {
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-22s %s\n", c.Status, c.Name, c.Message)
		}
	}

	if errors > 0 {
		return fmt.Errorf("%d check(s) failed", errors)
	}
	return nil
}

// checkHistoryDB verifies the file exists, is readable as SQLite, has the
// expected tables, and passes an integrity check. Read-only throughout.
func checkHistoryDB(prefix, path string, tables []string) []checkResult {
	if _, err := os.Stat(path); err != nil {
		return []checkResult{{Name: prefix + "_file", Status: "error", Message: err.Error()}}
	}

	database, err := db.OpenReadOnly(path)
	if err != nil {
		return []checkResult{{Name: prefix + "_open", Status: "error", Message: err.Error()}}
	}
	defer database.Close()

	var checks []checkResult
	for _, table := range tables {
		exists, err := database.TableExists(table)
		switch {
		case err != nil:
			checks = append(checks, checkResult{Name: prefix + "_schema", Status: "error", Message: err.Error()})
			return checks
		case !exists:
			checks = append(checks, checkResult{
				Name:    prefix + "_schema",
				Status:  "error",
				Message: fmt.Sprintf("missing %s table", table),
			})
			return checks
		}
	}
	checks = append(checks, checkResult{Name: prefix + "_schema", Status: "ok"})

	verdict, err := database.IntegrityCheck()
	switch {
	case err != nil:
		checks = append(checks, checkResult{Name: prefix + "_integrity", Status: "error", Message: err.Error()})
	case verdict != "ok":
		checks = append(checks, checkResult{Name: prefix + "_integrity", Status: "warning", Message: verdict})
	default:
		checks = append(checks, checkResult{Name: prefix + "_integrity", Status: "ok"})
	}

	return checks
}

func checkBrowsers() checkResult {
	if err := guard.NewProcessChecker().CheckSafeToRun(); err != nil {
		return checkResult{Name: "browsers_closed", Status: "error", Message: err.Error()}
	}
	return checkResult{Name: "browsers_closed", Status: "ok"}
}
