package main

import (
	"fmt"
	"os"

	"github.com/fentz26/playlistdl/internal/notify"
	"github.com/fentz26/playlistdl/internal/retrieve"
	"github.com/spf13/cobra"
)

var (
	fetchName   string
	fetchOutDir string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <task-id>",
	Short: "Save the archive of a completed job",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchName, "name", "", "File name to save as (default from the service)")
	fetchCmd.Flags().StringVarP(&fetchOutDir, "out", "o", "", "Directory to save the archive in (default from config)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	dir := cfg.DownloadDir
	if fetchOutDir != "" {
		dir = fetchOutDir
	}

	logger, err := newLogger(false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	client := newClient(logger)
	notifier := notify.NewDispatcher(notify.NewWriter(os.Stderr), notify.WithLogger(logger.Named("notify")))
	r := retrieve.New(client, retrieve.NewDirSaver(dir), notifier, logger.Named("retrieve"))

	path, err := r.Retrieve(cmd.Context(), args[0], fetchName)
	if err != nil {
		return err
	}
	fmt.Println("Saved to", path)
	return nil
}
