// Package tui provides the interactive terminal UI for playlistdl.
package tui

import (
	"context"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fentz26/playlistdl/internal/lifecycle"
	"github.com/fentz26/playlistdl/internal/notify"
	"github.com/fentz26/playlistdl/internal/validate"
)

// Labels of the start action.
const (
	LabelStart = "Start Download"
	LabelBusy  = "Processing..."
)

// QuitWarning is shown on the first quit attempt while a task is running.
const QuitWarning = "A download is in progress. Press ctrl+c again to quit."

// Controller is the task lifecycle the UI drives. *lifecycle.Controller implements it.
type Controller interface {
	Submit(ctx context.Context, url, format string) error
	Reset()
	Retrieve(ctx context.Context) (string, error)
	SetInput(input string)
	Snapshot() (lifecycle.Task, lifecycle.View)
	Subscribe(fn lifecycle.Observer)
}

// changeFeed coalesces change signals from the controller and the notification
// board. Producers never block.
type changeFeed struct {
	ch chan struct{}
}

func newChangeFeed() *changeFeed {
	return &changeFeed{ch: make(chan struct{}, 1)}
}

func (f *changeFeed) poke() {
	select {
	case f.ch <- struct{}{}:
	default:
	}
}

func (f *changeFeed) wait() tea.Cmd {
	return func() tea.Msg {
		<-f.ch
		return changedMsg{}
	}
}

type changedMsg struct{}

type savedMsg struct {
	path string
	err  error
}

// App is the main TUI application model.
type App struct {
	ctx   context.Context
	ctrl  Controller
	board *notify.Board
	feed  *changeFeed
	once  sync.Once

	url     *URLField
	format  int
	spinner spinner.Model
	bar     progress.Model

	task lifecycle.Task
	view lifecycle.View

	saving      bool
	savedPath   string
	confirmQuit bool

	width  int
	height int
}

// New creates the application for ctrl. Notifications shown on board are rendered
// above the status bar.
func New(ctx context.Context, ctrl Controller, board *notify.Board) *App {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = sp.Style.Foreground(secondaryColor)

	a := &App{
		ctx:     ctx,
		ctrl:    ctrl,
		board:   board,
		feed:    newChangeFeed(),
		url:     NewURLField(),
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient()),
		width:   80,
	}
	a.refresh()
	a.format = formatIndex(a.task.Format)
	return a
}

// Run starts the TUI application and blocks until the user quits.
func (a *App) Run() error {
	a.attach()
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// attach subscribes the change feed to the controller and the board.
func (a *App) attach() {
	a.once.Do(func() {
		a.ctrl.Subscribe(func(lifecycle.Task, lifecycle.View) { a.feed.poke() })
		if a.board != nil {
			a.board.OnChange(a.feed.poke)
		}
	})
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		a.spinner.Tick,
		a.feed.wait(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		if key != "ctrl+c" {
			a.confirmQuit = false
		}

		switch key {
		case "ctrl+c":
			if a.task.Status.Active() && !a.confirmQuit {
				a.confirmQuit = true
				return a, nil
			}
			a.ctrl.Reset()
			return a, tea.Quit

		case "enter":
			if !a.view.InputEnabled {
				return a, nil
			}
			a.savedPath = ""
			return a, a.submit(a.url.Value(), validate.Formats[a.format])

		case "tab", "shift+tab":
			if a.view.InputEnabled {
				a.cycleFormat(key == "tab")
			}
			return a, nil

		case "ctrl+r":
			a.saving = false
			a.savedPath = ""
			a.ctrl.Reset()
			return a, nil

		case "ctrl+s":
			if a.task.Status != lifecycle.StatusCompleted || a.saving {
				return a, nil
			}
			a.saving = true
			return a, a.retrieve()
		}

		cmd, changed := a.url.Update(msg)
		if changed {
			a.ctrl.SetInput(a.url.Value())
		}
		return a, cmd

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.url.SetWidth(msg.Width)
		a.bar.Width = max(10, min(msg.Width-8, 60))
		return a, nil

	case changedMsg:
		cmds = append(cmds, a.refresh(), a.feed.wait())

	case savedMsg:
		a.saving = false
		if msg.err == nil {
			a.savedPath = msg.path
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		cmds = append(cmds, cmd)

	default:
		cmd, _ := a.url.Update(msg)
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

// refresh copies the controller state into the model.
func (a *App) refresh() tea.Cmd {
	a.task, a.view = a.ctrl.Snapshot()
	if !a.task.Status.Active() {
		a.confirmQuit = false
	}
	return a.url.Apply(a.view.InputEnabled, a.view.InputInvalid, a.view.FocusInput, a.view.Validation)
}

func (a *App) submit(url, format string) tea.Cmd {
	return func() tea.Msg {
		// Failures are reflected in the controller state.
		a.ctrl.Submit(a.ctx, url, format)
		return nil
	}
}

func (a *App) retrieve() tea.Cmd {
	return func() tea.Msg {
		path, err := a.ctrl.Retrieve(a.ctx)
		return savedMsg{path: path, err: err}
	}
}

func (a *App) cycleFormat(forward bool) {
	n := len(validate.Formats)
	if forward {
		a.format = (a.format + 1) % n
	} else {
		a.format = (a.format + n - 1) % n
	}
}

func formatIndex(format string) int {
	for i, f := range validate.Formats {
		if f == format {
			return i
		}
	}
	return 0
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("♫ playlistdl") + "\n")
	b.WriteString(strings.Repeat("─", a.width) + "\n")

	b.WriteString(a.url.View() + "\n")
	b.WriteString(a.renderFormats() + "  " + a.renderAction() + "\n")

	switch a.view.Section {
	case lifecycle.SectionProgress:
		b.WriteString(renderProgress(a.spinner, a.bar, a.view) + "\n")
	case lifecycle.SectionSuccess:
		b.WriteString(renderSuccess(a.view, a.saving, a.savedPath) + "\n")
	case lifecycle.SectionError:
		b.WriteString(renderError(a.view) + "\n")
	}

	if a.board != nil {
		if notes := renderNotifications(a.board.Active(), a.width); notes != "" {
			b.WriteString("\n" + notes + "\n")
		}
	}

	if a.confirmQuit {
		b.WriteString("\n" + warningStyle.Render(QuitWarning) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(statusBarStyle.Width(a.width).Render(" enter:start | tab:format | ctrl+r:reset | ctrl+s:save | ctrl+c:quit"))
	return b.String()
}

func (a *App) renderFormats() string {
	parts := make([]string, len(validate.Formats))
	for i, f := range validate.Formats {
		if i == a.format {
			parts[i] = formatSelectedStyle.Render(f)
		} else {
			parts[i] = formatStyle.Render(f)
		}
	}
	return "Format: " + strings.Join(parts, "")
}

func (a *App) renderAction() string {
	if a.view.Busy {
		return actionBusyStyle.Render(LabelBusy)
	}
	return actionStyle.Render(LabelStart)
}
