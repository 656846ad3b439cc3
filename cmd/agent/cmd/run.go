package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var syncOnStart bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent with periodic sync until interrupted",
	Long: `run re-queues records left unsynced by a previous run, starts the
periodic sync timer and prints every push and resolution until SIGINT or
SIGTERM is received.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if syncOnStart {
			if err := app.SyncOnce(ctx); err != nil {
				log.Warn("initial sync finished with errors", "error", err)
			}
		}

		app.StartSync(ctx)
		headerColor.Printf("iotsync agent running, sync every %s\n", cfg.Sync.Interval)

		<-ctx.Done()
		fmt.Println()
		log.Info("stopping agent")
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&syncOnStart, "now", true, "run one sync pass before the first tick")
}
