package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/playlistdl/internal/lifecycle"
	"github.com/fentz26/playlistdl/internal/notify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	getFormat string
	getNoSave bool
	getOutDir string
)

var (
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6366F1"))
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	failStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

var errDownloadFailed = errors.New("download failed")

var getCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "Convert a playlist and save the archive without the TUI",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().StringVarP(&getFormat, "format", "f", "", "Output format: mp3, flac, wav (default from config)")
	getCmd.Flags().BoolVar(&getNoSave, "no-save", false, "Do not download the archive when the job completes")
	getCmd.Flags().StringVarP(&getOutDir, "out", "o", "", "Directory to save the archive in (default from config)")
}

// progressPrinter prints a line whenever the displayed progress or message changes.
type progressPrinter struct {
	mu   sync.Mutex
	out  io.Writer
	last lifecycle.View
	done chan lifecycle.Task
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, done: make(chan lifecycle.Task, 1)}
}

func (p *progressPrinter) observe(task lifecycle.Task, view lifecycle.View) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if view.Section == lifecycle.SectionProgress &&
		(view.Progress != p.last.Progress || view.Message != p.last.Message || p.last.Section != view.Section) {
		fmt.Fprintln(p.out, progressStyle.Render(fmt.Sprintf("[%3d%%] %s", view.Progress, view.Message)))
	}
	p.last = view

	if task.Status.Terminal() {
		select {
		case p.done <- task:
		default:
		}
	}
}

func runGet(cmd *cobra.Command, args []string) error {
	if getOutDir != "" {
		cfg.DownloadDir = getOutDir
	}
	format := getFormat
	if format == "" {
		format = cfg.Format
	}

	logger, err := newLogger(false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := newController(notify.NewWriter(os.Stderr), logger)
	printer := newProgressPrinter(os.Stdout)
	ctrl.Subscribe(printer.observe)

	logger.Info("starting download", zap.String("url", args[0]), zap.String("format", format))
	if err := ctrl.Submit(ctx, args[0], format); err != nil {
		var verr *lifecycle.ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		_, view := ctrl.Snapshot()
		fmt.Fprintln(os.Stderr, failStyle.Render(view.ErrorText))
		return errDownloadFailed
	}

	task, err := waitTerminal(ctx, printer)
	if err != nil {
		ctrl.Reset()
		return err
	}

	_, view := ctrl.Snapshot()
	if task.Status == lifecycle.StatusError {
		fmt.Fprintln(os.Stderr, failStyle.Render(view.ErrorText))
		return errDownloadFailed
	}

	fmt.Println(doneStyle.Render("✓ " + view.Message))
	if getNoSave {
		fmt.Printf("Task %s is ready: playlistdl fetch %s\n", task.ID, task.ID)
		return nil
	}

	path, err := ctrl.Retrieve(ctx)
	if err != nil {
		return err
	}
	fmt.Println("Saved to", path)
	return nil
}

// waitTerminal blocks until the printer sees a terminal state or ctx ends.
func waitTerminal(ctx context.Context, p *progressPrinter) (lifecycle.Task, error) {
	select {
	case t := <-p.done:
		return t, nil
	case <-ctx.Done():
		return lifecycle.Task{}, ctx.Err()
	}
}
