package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wirebus/wirebus/internal/config"
	"github.com/wirebus/wirebus/internal/event"
	"github.com/wirebus/wirebus/internal/logging"
	"github.com/wirebus/wirebus/internal/server"
)

var (
	servePort     int
	serveHostname string
	serveDir      string
	serveWatch    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the wirebus server",
	Long: `Start wirebus as a server that exposes the dispatch system over HTTP:
SSE event streaming, event injection, and hook dispatch.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveHostname, "hostname", "", "Hostname to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveDir, "directory", "", "Working directory")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", true, "Reload config on change")
}

func runServe(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(serveDir)
	if err != nil {
		return err
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveHostname != "" {
		cfg.Server.Hostname = serveHostname
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(cfg.Log.Level)
	logCfg.Pretty = cfg.Log.Pretty
	logging.Init(logCfg)

	logging.Info().
		Str("version", Version).
		Str("directory", workDir).
		Msg("starting wirebus")

	system := event.Default()

	if serveWatch {
		watcher, err := config.NewWatcher(workDir, system.Events)
		if err != nil {
			logging.Warn().Err(err).Msg("config watcher disabled")
		} else {
			watcher.Start()
			defer watcher.Stop()
		}
	}

	srv := server.New(cfg, system)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
