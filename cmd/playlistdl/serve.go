package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fentz26/playlistdl/internal/audit"
	"github.com/fentz26/playlistdl/internal/connectors/simulate"
	"github.com/fentz26/playlistdl/internal/scheduler"
	"github.com/fentz26/playlistdl/internal/server"
	"github.com/fentz26/playlistdl/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

var (
	listenAddr string
	dbPath     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local stub conversion service",
	Long: `Runs a conversion service that implements the playlistdl HTTP API with a simulated
pipeline. It never downloads media; each job produces an archive holding a manifest of
the request. URLs containing fail-ratelimit, fail-notfound, fail-network or fail-empty
make the job fail the corresponding way.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default from config)")
	serveCmd.Flags().StringVar(&dbPath, "db", "", "Path to the SQLite job database (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	sc := cfg.Server
	if listenAddr != "" {
		sc.Listen = listenAddr
	}
	if dbPath != "" {
		sc.DB = dbPath
	}

	logger, err := newLogger(true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	s, err := store.New(sc.DB)
	if err != nil {
		return err
	}
	defer func() {
		logger.Info("closing database connection")
		if err := s.Close(); err != nil {
			logger.Error("database close error", zap.Error(err))
		}
	}()

	rec := audit.NewRecorder(s, logger.Named("audit"))
	conv := simulate.New(sc.ArtifactsDir, sc.StepDelay, sc.SpotifyConfigured(), logger.Named("simulate"))

	schedCfg := scheduler.DefaultConfig()
	schedCfg.Workers = sc.Workers
	schedCfg.CleanupAge = sc.CleanupAge
	schedCfg.CleanupInterval = sc.CleanupInterval
	sched := scheduler.New(s, rec, conv, schedCfg, logger.Named("scheduler"))

	svc := server.NewService(s, rec, sched, server.Options{
		ArtifactsDir: sc.ArtifactsDir,
		SpotifyAuth:  sc.SpotifyConfigured(),
	})
	srv := server.NewServer(svc, sc.Listen, logger.Named("http"))

	ln, err := net.Listen("tcp", sc.Listen)
	if err != nil {
		return err
	}

	if err := sched.Start(); err != nil {
		ln.Close()
		return err
	}
	defer sched.Stop()

	if !sc.SpotifyConfigured() {
		logger.Warn("spotify credentials not configured; spotify jobs may be rate limited")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(ln)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", zap.Error(err))
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
