// Package tui is the terminal popup: item count, a status line, the save,
// export and clear actions, and the auto-export settings.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hpungsan/tinycapture/internal/capture"
	"github.com/hpungsan/tinycapture/internal/dispatch"
	"github.com/hpungsan/tinycapture/internal/errors"
	"github.com/hpungsan/tinycapture/internal/logging"
	"github.com/hpungsan/tinycapture/internal/ops"
)

// field indices
const (
	fieldURL = iota
	fieldEnabled
	fieldSubdir
	fieldCount
)

type statusKind int

const (
	statusNone statusKind = iota
	statusOK
	statusWarn
	statusError
)

// Messages delivered by the operation commands.
type (
	stateMsg struct {
		count    int
		settings capture.Settings
		err      error
	}
	captureMsg struct {
		out *ops.CaptureOutput
		err error
	}
	exportMsg struct {
		out *ops.ExportOutput
		err error
	}
	clearMsg struct {
		out *ops.ClearOutput
		err error
	}
	settingsMsg struct {
		out *ops.SettingsOutput
		err error
	}
)

// Model is the popup's bubbletea model.
type Model struct {
	ctx    context.Context
	env    *ops.Env
	runner *dispatch.Runner
	logger *slog.Logger

	urlInput    textinput.Model
	subdirInput textinput.Model
	savedSubdir string
	enabled     bool
	focus       int

	count      int
	status     string
	statusKind statusKind
	busy       bool

	width    int
	height   int
	quitting bool
}

// NewModel builds the popup. Every action is submitted to runner.
func NewModel(ctx context.Context, env *ops.Env, runner *dispatch.Runner) Model {
	ui := textinput.New()
	ui.Placeholder = "blank uses the focused tab"
	ui.CharLimit = 2048
	ui.Focus()

	si := textinput.New()
	si.Placeholder = capture.DefaultSubdir
	si.CharLimit = 300

	logger := env.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	return Model{
		ctx:         ctx,
		env:         env,
		runner:      runner,
		logger:      logger.With("component", "tui"),
		urlInput:    ui,
		subdirInput: si,
		focus:       fieldURL,
		width:       80,
		height:      24,
	}
}

// Init loads the count and settings.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadState())
}

// Update handles key presses and operation results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case stateMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.count = msg.count
		m.applySettings(msg.settings)
		return m, nil

	case captureMsg:
		m.busy = false
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.status = msg.out.Message
		m.statusKind = captureKind(msg.out.Status)
		if msg.out.Saved() {
			m.count = msg.out.Count
			m.urlInput.Reset()
		}
		return m, nil

	case exportMsg:
		m.busy = false
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.status = fmt.Sprintf("Exported %d item(s) to %s", msg.out.Count, msg.out.Path)
		m.statusKind = statusOK
		return m, nil

	case clearMsg:
		m.busy = false
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.count = msg.out.Count
		m.status = msg.out.Message
		m.statusKind = statusOK
		return m, nil

	case settingsMsg:
		m.busy = false
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.applySettings(msg.out.Settings)
		m.status = msg.out.Message
		m.statusKind = statusOK
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "tab", "down":
		return m.shiftFocus(1)

	case "shift+tab", "up":
		return m.shiftFocus(-1)

	case "ctrl+s":
		return m.start(m.captureCmd(strings.TrimSpace(m.urlInput.Value())))

	case "ctrl+e":
		return m.start(m.exportCmd())

	case "ctrl+x":
		return m.start(m.clearCmd())
	}

	switch m.focus {
	case fieldURL:
		if key == "enter" {
			return m.start(m.captureCmd(strings.TrimSpace(m.urlInput.Value())))
		}
		var cmd tea.Cmd
		m.urlInput, cmd = m.urlInput.Update(msg)
		return m, cmd

	case fieldEnabled:
		if key == "enter" || key == " " {
			enabled := !m.enabled
			return m.start(m.settingsCmd(capture.SettingsPatch{AutoExportEnabled: &enabled}))
		}

	case fieldSubdir:
		if key == "enter" {
			subdir := m.subdirInput.Value()
			return m.start(m.settingsCmd(capture.SettingsPatch{AutoExportSubdir: &subdir}))
		}
		var cmd tea.Cmd
		m.subdirInput, cmd = m.subdirInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

// start runs cmd unless another action is still in flight.
func (m Model) start(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.busy = true
	return m, cmd
}

// shiftFocus moves focus and saves the folder field when focus leaves it with
// an unsaved edit, the way the field's change event does in a browser popup.
func (m Model) shiftFocus(delta int) (tea.Model, tea.Cmd) {
	leaving := m.focus == fieldSubdir
	m.moveFocus(delta)
	if leaving && m.subdirInput.Value() != m.savedSubdir {
		subdir := m.subdirInput.Value()
		return m.start(m.settingsCmd(capture.SettingsPatch{AutoExportSubdir: &subdir}))
	}
	return m, nil
}

func (m *Model) moveFocus(delta int) {
	m.urlInput.Blur()
	m.subdirInput.Blur()
	m.focus = (m.focus + delta + fieldCount) % fieldCount
	switch m.focus {
	case fieldURL:
		m.urlInput.Focus()
	case fieldSubdir:
		m.subdirInput.Focus()
		m.subdirInput.CursorEnd()
	}
}

// applySettings writes stored settings back into the controls, so the folder
// field shows the sanitized value.
func (m *Model) applySettings(s capture.Settings) {
	m.enabled = s.AutoExportEnabled
	m.savedSubdir = s.AutoExportSubdir
	m.subdirInput.SetValue(s.AutoExportSubdir)
	m.subdirInput.CursorEnd()
}

func (m *Model) setError(err error) {
	cErr := errors.As(err)
	m.statusKind = statusError
	if cErr.Code == errors.ErrInternal {
		m.logger.Error("popup action failed", "error", err)
		m.status = "Something went wrong. Please try again."
		return
	}
	m.status = cErr.Message
}

func (m Model) loadState() tea.Cmd {
	return func() tea.Msg {
		type state struct {
			count    int
			settings capture.Settings
		}
		s, err := dispatch.Run(m.ctx, m.runner, "status", func(ctx context.Context) (state, error) {
			count, err := ops.CountQueue(ctx, m.env)
			if err != nil {
				return state{}, err
			}
			settings, err := ops.GetSettings(ctx, m.env)
			if err != nil {
				return state{}, err
			}
			return state{count: count.Count, settings: settings}, nil
		})
		return stateMsg{count: s.count, settings: s.settings, err: err}
	}
}

func (m Model) captureCmd(url string) tea.Cmd {
	return func() tea.Msg {
		out, err := dispatch.Run(m.ctx, m.runner, "capture", func(ctx context.Context) (*ops.CaptureOutput, error) {
			return ops.Capture(ctx, m.env, ops.CaptureInput{URL: url})
		})
		return captureMsg{out: out, err: err}
	}
}

func (m Model) exportCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := dispatch.Run(m.ctx, m.runner, "export", func(ctx context.Context) (*ops.ExportOutput, error) {
			return ops.ExportQueue(ctx, m.env, ops.ExportInput{})
		})
		return exportMsg{out: out, err: err}
	}
}

func (m Model) clearCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := dispatch.Run(m.ctx, m.runner, "clear", func(ctx context.Context) (*ops.ClearOutput, error) {
			return ops.ClearQueue(ctx, m.env)
		})
		return clearMsg{out: out, err: err}
	}
}

func (m Model) settingsCmd(patch capture.SettingsPatch) tea.Cmd {
	return func() tea.Msg {
		out, err := dispatch.Run(m.ctx, m.runner, "settings", func(ctx context.Context) (*ops.SettingsOutput, error) {
			return ops.UpdateSettings(ctx, m.env, patch)
		})
		return settingsMsg{out: out, err: err}
	}
}

func captureKind(status ops.CaptureStatus) statusKind {
	switch status {
	case ops.StatusSaved, ops.StatusSavedExported:
		return statusOK
	case ops.StatusRejected, ops.StatusSavedExportFailed:
		return statusWarn
	default:
		return statusNone
	}
}

// View renders the popup box.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	title := titleStyle.Render("tinycapture")
	count := fmt.Sprintf("Queued: %s", countStyle.Render(fmt.Sprintf("%d", m.count)))

	checkbox := "[ ]"
	if m.enabled {
		checkbox = "[x]"
	}

	var status string
	switch m.statusKind {
	case statusOK:
		status = okStyle.Render(m.status)
	case statusWarn:
		status = warnStyle.Render(m.status)
	case statusError:
		status = errorStyle.Render(m.status)
	}
	if m.busy {
		status = dimStyle.Render("Working...")
	}

	content := fmt.Sprintf(
		"%s  %s\n\n%s %s\n\n%s %s Auto-export each capture\n%s %s\n\n%s\n\n%s",
		title, count,
		m.label("URL:", fieldURL), m.urlInput.View(),
		m.label("Export:", fieldEnabled), checkbox,
		m.label("Folder:", fieldSubdir), m.subdirInput.View(),
		status,
		dimStyle.Render("Enter/^S: save  ^E: export  ^X: clear  Tab: next  Esc: quit"),
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, boxStyle.Render(content))
}

func (m Model) label(text string, field int) string {
	if m.focus == field {
		return focusedLabelStyle.Render(text)
	}
	return labelStyle.Render(text)
}

// Run starts the popup and blocks until the user quits.
func Run(ctx context.Context, env *ops.Env, runner *dispatch.Runner) error {
	p := tea.NewProgram(NewModel(ctx, env, runner), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
