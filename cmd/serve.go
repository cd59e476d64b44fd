package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mihaisavezi/mutual-dissent/internal/process"
	"github.com/mihaisavezi/mutual-dissent/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API in the foreground",
	Long:  `Starts the debate engine's HTTP API and blocks until interrupted.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logFile, _ := cmd.Flags().GetBool("log-file")
	setupLogging(verbose, logFile)

	if err := ensureConfigExists(); err != nil {
		return err
	}

	cfg, err := cfgMgr.Load()
	if err != nil {
		return err
	}

	eng, err := buildEngine(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer eng.Router.Close()

	color.Green("Starting %s v%s...", AppName, Version)
	logger.Info("starting server", "host", cfg.Host, "port", cfg.Port, "vendors", len(cfg.Vendors))

	procMgr := process.NewManager(baseDir)
	if err := procMgr.WritePID(); err != nil {
		return err
	}
	defer procMgr.CleanupPID()

	srv := server.New(cfgMgr, eng.Orchestrator, eng.Store, logger)

	return srv.Start()
}
