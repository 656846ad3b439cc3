package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass",
	Long:  `sync pushes every queued record and then pulls and resolves every mapped table once.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		err := app.SyncOnce(cmd.Context())
		stats := app.Engine().Stats()

		if jsonOutput {
			if perr := printJSON(stats); perr != nil {
				return perr
			}
			return err
		}

		fmt.Printf("pushed %s, pulled %s, inserted %d, remote wins %d, local wins %d\n",
			okColor.Sprint(stats.Pushed), okColor.Sprint(stats.Pulled),
			stats.Inserted, stats.RemoteWins, stats.LocalWins)
		if pending := app.Engine().Queue().Len(); pending > 0 {
			warnColor.Printf("%d record(s) could not be pushed in this pass\n", pending)
		}
		return err
	},
}
