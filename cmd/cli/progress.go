package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jamfkit/sgscan/internal/scanner"
)

type progressMsg scanner.Progress

type progressDoneMsg struct{}

type progressModel struct {
	label    string
	spinner  spinner.Model
	done     int
	total    int
	failed   int
	current  string
	quitting bool
}

func newProgressModel(label string) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return progressModel{
		label:   label,
		spinner: s,
	}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressMsg:
		m.done = msg.Done
		m.total = msg.Total
		m.current = msg.Group.Name
		if msg.Err != nil {
			m.failed++
		}
		return m, nil

	case progressDoneMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m progressModel) View() string {
	if m.quitting {
		return ""
	}

	status := fmt.Sprintf("%s %s %d/%d groups", m.spinner.View(), m.label, m.done, m.total)
	if m.failed > 0 {
		status += warningStyle.Render(fmt.Sprintf(" (%d failed)", m.failed))
	}
	if len(m.current) > 0 {
		status += infoStyle.Render(" " + m.current)
	}
	return status + "\n"
}

// progressDisplay draws a spinner with scan progress on a terminal.
type progressDisplay struct {
	program *tea.Program
	done    chan struct{}
}

func startProgress(label string, out io.Writer) *progressDisplay {
	program := tea.NewProgram(
		newProgressModel(label),
		tea.WithOutput(out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)

	display := &progressDisplay{program: program, done: make(chan struct{})}
	go func() {
		defer close(display.done)
		if _, err := program.Run(); err != nil {
			logrus.WithError(err).Debugln("Progress display stopped")
		}
	}()
	return display
}

func (d *progressDisplay) Update(progress scanner.Progress) {
	d.program.Send(progressMsg(progress))
}

// Stop clears the display and waits for it to exit. It is a no-op on a
// nil display.
func (d *progressDisplay) Stop() {
	if d == nil {
		return
	}
	d.program.Send(progressDoneMsg{})
	<-d.done
}

// attachProgress starts a display and routes the scanner's progress to it
// when progress output is wanted.
func attachProgress(cmd *cobra.Command, label string, opts *scanner.Options) *progressDisplay {
	if !showProgress() {
		return nil
	}
	display := startProgress(label, cmd.ErrOrStderr())
	opts.OnProgress = display.Update
	return display
}

// showProgress reports whether progress was requested and stderr is a
// terminal.
func showProgress() bool {
	if !cfg.Output.Progress {
		return false
	}
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// stdinIsTerminal decides whether missing input may be asked for.
var stdinIsTerminal = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
