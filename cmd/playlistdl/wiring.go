package main

import (
	"fmt"

	"github.com/fentz26/playlistdl/internal/lifecycle"
	"github.com/fentz26/playlistdl/internal/logging"
	"github.com/fentz26/playlistdl/internal/notify"
	"github.com/fentz26/playlistdl/internal/poll"
	"github.com/fentz26/playlistdl/internal/remote"
	"github.com/fentz26/playlistdl/internal/retrieve"
	"go.uber.org/zap"
)

// newLogger builds the logger for a command. console controls stderr output; the
// log file from the config is always written.
func newLogger(console bool) (*zap.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Console: console,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

func newClient(logger *zap.Logger) *remote.Client {
	return remote.NewClient(cfg.API,
		remote.WithTimeout(cfg.RequestTimeout),
		remote.WithLogger(logger.Named("remote")),
	)
}

// newController wires the lifecycle controller with everything it drives.
// Notifications go to surface.
func newController(surface notify.Surface, logger *zap.Logger) *lifecycle.Controller {
	client := newClient(logger)
	notifier := notify.NewDispatcher(surface, notify.WithLogger(logger.Named("notify")))

	return lifecycle.New(lifecycle.Config{
		Submitter: client,
		Poller:    poll.New(client, cfg.PollInterval, logger.Named("poll")),
		Retriever: retrieve.New(client, retrieve.NewDirSaver(cfg.DownloadDir), notifier, logger.Named("retrieve")),
		Notifier:  notifier,
		Logger:    logger.Named("lifecycle"),
	})
}
