package main

import (
	"fmt"

	"github.com/fentz26/playlistdl/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	// A broken config file must not prevent writing a fresh one.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultPath()
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.WriteDefault(path, configForce); err != nil {
			return err
		}
		fmt.Println("Wrote", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := map[string]interface{}{
			"api":             cfg.API,
			"format":          cfg.Format,
			"poll_interval":   cfg.PollInterval.String(),
			"request_timeout": cfg.RequestTimeout.String(),
			"download_dir":    cfg.DownloadDir,
			"log":             map[string]string{"level": cfg.Log.Level, "file": cfg.Log.File},
			"server": map[string]interface{}{
				"listen":           cfg.Server.Listen,
				"db":               cfg.Server.DB,
				"artifacts_dir":    cfg.Server.ArtifactsDir,
				"workers":          cfg.Server.Workers,
				"step_delay":       cfg.Server.StepDelay.String(),
				"spotify_auth":     cfg.Server.SpotifyConfigured(),
				"cleanup_age":      cfg.Server.CleanupAge.String(),
				"cleanup_interval": cfg.Server.CleanupInterval.String(),
			},
		}
		data, err := yaml.Marshal(out)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
