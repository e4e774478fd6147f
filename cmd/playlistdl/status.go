package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [task-id...]",
	Short: "Show job status, or service health without arguments",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	client := newClient(logger)
	ctx := cmd.Context()

	if len(args) == 0 {
		h, err := client.Health(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Service: %s (%s)\nActive tasks: %d\nChecked: %s\n", cfg.API, h.Status, h.ActiveTasks, h.Timestamp)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tMESSAGE")
	var firstErr error
	for _, id := range args {
		st, err := client.Status(ctx, id)
		if err != nil {
			fmt.Fprintf(w, "%s\t-\t-\t%v\n", id, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		msg := st.Message
		if st.Error != "" {
			msg = st.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%d%%\t%s\n", id, st.Status, st.Progress, msg)
	}
	w.Flush()
	return firstErr
}
