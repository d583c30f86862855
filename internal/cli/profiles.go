package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lherron/histmig/internal/cli/appctx"
	"github.com/lherron/histmig/internal/config"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List Chrome profiles that have a History database",
	Long: `Lists the profiles found under the Chrome user data directory.
Pass a profile name to 'histmig migrate --profile' to select one.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runProfiles),
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(app *appctx.App, cmd *cobra.Command, args []string) error {
	userDataDir, err := config.ChromeUserDataDir()
	if err != nil {
		return err
	}

	profiles, err := config.FindProfiles(userDataDir)
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		return fmt.Errorf("no Chrome profiles with a History database found under %s", userDataDir)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tHISTORY")
	for _, p := range profiles {
		fmt.Fprintf(w, "%s\t%s\n", p.Name, p.HistoryPath)
	}
	return w.Flush()
}
