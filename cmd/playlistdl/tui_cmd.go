package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/fentz26/playlistdl/internal/notify"
	"github.com/fentz26/playlistdl/internal/remote"
	"github.com/fentz26/playlistdl/internal/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var tuiStartService bool

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive TUI",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().BoolVar(&tuiStartService, "start-service", false, "Start the local stub service in the background when the API is unreachable")
}

func runTUI(cmd *cobra.Command, args []string) error {
	// The alt screen owns the terminal, so logs only go to the file.
	logger, err := newLogger(false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	client := newClient(logger)
	if !isServiceRunning(ctx, client) {
		if !tuiStartService {
			fmt.Fprintf(os.Stderr, "Warning: conversion service at %s is not reachable.\n", cfg.API)
		} else if err := startService(ctx, client); err != nil {
			return fmt.Errorf("failed to start service: %w", err)
		}
	}

	board := notify.NewBoard()
	ctrl := newController(board, logger)
	app := tui.New(ctx, ctrl, board)

	logger.Info("tui started", zap.String("api", cfg.API))
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func isServiceRunning(ctx context.Context, client *remote.Client) bool {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	_, err := client.Health(ctx)
	return err == nil
}

// startService runs "playlistdl serve" detached, listening on the API address.
func startService(ctx context.Context, client *remote.Client) error {
	u, err := url.Parse(cfg.API)
	if err != nil || u.Host == "" {
		return fmt.Errorf("cannot derive a listen address from %q", cfg.API)
	}

	exe, err := os.Executable()
	if err != nil {
		return err
	}

	args := []string{"serve", "--listen", u.Host}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	c := exec.Command(exe, args...)
	configureServiceProc(c)
	c.Stdin = nil
	c.Stdout = nil
	c.Stderr = nil

	if err := c.Start(); err != nil {
		return err
	}

	fmt.Print("   Waiting for service...")
	for i := 0; i < 20; i++ {
		if isServiceRunning(ctx, client) {
			fmt.Println(" Done.")
			return nil
		}
		time.Sleep(250 * time.Millisecond)
		fmt.Print(".")
	}
	fmt.Println(" Timeout!")
	return fmt.Errorf("service started but API not reachable at %s", cfg.API)
}
