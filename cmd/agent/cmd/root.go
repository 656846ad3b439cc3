// Package cmd implements the iotsync agent command line.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"iotsync/internal/app/agent"
	"iotsync/internal/app/agent/config"
	"iotsync/internal/utils/logger"
)

var (
	cfg        *config.Config
	log        *slog.Logger
	app        *agent.App
	debug      bool
	jsonOutput bool
	serverURL  string
	dataPath   string
	tablesFile string
)

var rootCmd = &cobra.Command{
	Use:   "iotsync",
	Short: "iotsync keeps a device's local tables in sync with the cloud",
	Long: `iotsync is the on-device sync agent. Writes land in a local SQLite
store first and are pushed to the remote backends in the background. Remote
changes are pulled periodically and merged by last-modified time.`,
	PersistentPreRunE: setupApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	err := rootCmd.Execute()
	if app != nil {
		if cerr := app.Close(context.Background()); cerr != nil {
			log.Error("close agent", "error", cerr)
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, errorColor.Sprint("Error: "), err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	opts := logger.Options{Env: cfg.Env, Level: cfg.LogLevel, File: cfg.LogFile}
	if debug {
		opts.Level = "debug"
	}
	log = logger.NewWithOptions(opts)

	if cmd.Name() == tablesCmd.Name() {
		return nil
	}

	var appOpts []agent.Option
	if cmd.Name() == runCmd.Name() && !jsonOutput {
		appOpts = append(appOpts, agent.WithObserver(printEvent))
	}

	app, err = agent.New(cmd.Context(), cfg, log, appOpts...)
	if err != nil {
		return fmt.Errorf("init agent: %w", err)
	}
	return nil
}

func loadConfig() (c *config.Config, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	c = config.MustLoad()
	if serverURL != "" {
		c.Flat.ServerAddress = serverURL
	}
	if dataPath != "" {
		c.DataPath = dataPath
	}
	if tablesFile != "" {
		c.TablesFile = tablesFile
	}
	return c, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print output as JSON")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "flat-store server address (overrides FLAT_SERVER_ADDRESS)")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "local database file (overrides DATA_PATH)")
	rootCmd.PersistentFlags().StringVar(&tablesFile, "tables", "", "YAML table mapping file (overrides TABLES_FILE)")

	rootCmd.AddCommand(runCmd, syncCmd, putCmd, getCmd, statusCmd, tablesCmd)
}
