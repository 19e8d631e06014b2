package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pgctl/pgctl/internal/api"
)

var (
	serveAddr    string
	serveLogFile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP API for the companion GUI",
	Long: `Serves a JSON API over localhost for the desktop GUI: registry search,
config inspection, install and remove. The listener refuses non-loopback
addresses.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8976", "Listen address (loopback only)")
	serveCmd.Flags().StringVar(&serveLogFile, "log-file", "", "Also log to a rotating file")
}

func runServe() error {
	reg, err := newRegistry()
	if err != nil {
		return err
	}
	path, err := configPath()
	if err != nil {
		return err
	}

	serveLogger := logger
	if serveLogFile != "" {
		rotating := &lumberjack.Logger{
			Filename:   serveLogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		serveLogger = log.NewWithOptions(rotating, log.Options{
			ReportTimestamp: true,
		})
		if flagVerbose {
			serveLogger.SetLevel(log.DebugLevel)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return api.NewServer(reg, path, serveLogger).Serve(ctx, serveAddr)
}
