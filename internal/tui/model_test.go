package tui

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tinycapture/internal/browser"
	"github.com/hpungsan/tinycapture/internal/capture"
	"github.com/hpungsan/tinycapture/internal/config"
	"github.com/hpungsan/tinycapture/internal/db"
	"github.com/hpungsan/tinycapture/internal/dispatch"
	"github.com/hpungsan/tinycapture/internal/ops"
)

func newTestModel(t *testing.T) (Model, *ops.Env) {
	t.Helper()
	baseDir := t.TempDir()
	database, err := db.Init(baseDir)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.DownloadsDir = t.TempDir()
	cfg.ObjectURLTTLSeconds = -1

	env, err := ops.NewEnv(baseDir, database, cfg, nil)
	require.NoError(t, err)
	env.Now = func() time.Time { return time.Date(2026, 2, 12, 15, 30, 0, 0, time.UTC) }

	runner := dispatch.New(nil)
	t.Cleanup(runner.Close)

	return NewModel(context.Background(), env, runner), env
}

// send feeds msg to m and runs the resulting command to completion,
// feeding its message back in. Commands that are not operation results
// (cursor blink, quit) are ignored.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		return m
	}
	switch res := cmd().(type) {
	case stateMsg, captureMsg, exportMsg, clearMsg, settingsMsg:
		next, _ = m.Update(res)
		m = next.(Model)
	}
	return m
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return next.(Model)
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

type failingDownloader struct{}

func (failingDownloader) Download(ctx context.Context, req browser.DownloadRequest) (*browser.DownloadResult, error) {
	return nil, stderrors.New("download rejected")
}

func TestModel_InitLoadsState(t *testing.T) {
	m, env := newTestModel(t)
	_, err := ops.Capture(context.Background(), env, ops.CaptureInput{URL: "https://example.com/"})
	require.NoError(t, err)

	m = send(t, m, m.loadState()())

	require.Equal(t, 1, m.count)
	require.False(t, m.enabled)
	require.Equal(t, capture.DefaultSubdir, m.subdirInput.Value())
	require.Contains(t, m.View(), "Queued:")
}

func TestModel_EnterCapturesTypedURL(t *testing.T) {
	m, env := newTestModel(t)

	m = typeText(t, m, "https://example.com/")
	m = send(t, m, key(tea.KeyEnter))

	require.Equal(t, 1, m.count)
	require.Equal(t, ops.MessageSaved, m.status)
	require.Equal(t, statusOK, m.statusKind)
	require.False(t, m.busy)
	require.Empty(t, m.urlInput.Value())

	items, err := ops.LoadQueue(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "https://example.com/", items[0].PayloadRef)
}

func TestModel_RejectedKeepsInput(t *testing.T) {
	m, _ := newTestModel(t)

	m = typeText(t, m, "about:preferences")
	m = send(t, m, key(tea.KeyCtrlS))

	require.Equal(t, 0, m.count)
	require.Equal(t, ops.MessageRejected, m.status)
	require.Equal(t, statusWarn, m.statusKind)
	require.Equal(t, "about:preferences", m.urlInput.Value())
}

func TestModel_NoTabIsSilent(t *testing.T) {
	m, _ := newTestModel(t)

	m = send(t, m, key(tea.KeyEnter))

	require.Equal(t, 0, m.count)
	require.Empty(t, m.status)
	require.Equal(t, statusNone, m.statusKind)
}

func TestModel_ToggleAutoExport(t *testing.T) {
	m, env := newTestModel(t)

	m = send(t, m, key(tea.KeyTab))
	require.Equal(t, fieldEnabled, m.focus)

	m = send(t, m, key(tea.KeySpace))
	require.True(t, m.enabled)
	require.Equal(t, "Auto-export enabled.", m.status)
	require.Contains(t, m.View(), "[x]")

	settings, err := ops.GetSettings(context.Background(), env)
	require.NoError(t, err)
	require.True(t, settings.AutoExportEnabled)
	require.Equal(t, capture.DefaultSubdir, settings.AutoExportSubdir)
}

func TestModel_FolderSanitizedOnSave(t *testing.T) {
	m, env := newTestModel(t)

	m = send(t, m, key(tea.KeyShiftTab))
	require.Equal(t, fieldSubdir, m.focus)

	m.subdirInput.SetValue(`\books\inbox\`)
	m = send(t, m, key(tea.KeyEnter))

	require.Equal(t, "books/inbox", m.subdirInput.Value())
	require.Equal(t, "Auto-export folder saved.", m.status)

	settings, err := ops.GetSettings(context.Background(), env)
	require.NoError(t, err)
	require.Equal(t, "books/inbox", settings.AutoExportSubdir)
}

func TestModel_FolderSavedWhenFocusLeaves(t *testing.T) {
	m, env := newTestModel(t)
	m = send(t, m, m.loadState()())

	m = send(t, m, key(tea.KeyShiftTab))
	m.subdirInput.SetValue(" /reading\\later/ ")
	m = send(t, m, key(tea.KeyTab))

	require.Equal(t, fieldURL, m.focus)
	require.Equal(t, "reading/later", m.subdirInput.Value())
	require.Equal(t, "Auto-export folder saved.", m.status)
	require.False(t, m.busy)

	settings, err := ops.GetSettings(context.Background(), env)
	require.NoError(t, err)
	require.Equal(t, "reading/later", settings.AutoExportSubdir)
}

func TestModel_UnchangedFolderNotSavedOnBlur(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, m.loadState()())

	m = send(t, m, key(tea.KeyShiftTab))
	m = send(t, m, key(tea.KeyShiftTab))

	require.Equal(t, fieldEnabled, m.focus)
	require.Empty(t, m.status)
	require.False(t, m.busy)
}

func TestModel_ExportAndClear(t *testing.T) {
	m, env := newTestModel(t)
	for _, u := range []string{"https://a.example/", "https://b.example/"} {
		_, err := ops.Capture(context.Background(), env, ops.CaptureInput{URL: u})
		require.NoError(t, err)
	}
	m = send(t, m, m.loadState()())

	m = send(t, m, key(tea.KeyCtrlE))
	require.Equal(t, statusOK, m.statusKind)
	require.True(t, strings.HasPrefix(m.status, "Exported 2 item(s) to "))

	m = send(t, m, key(tea.KeyCtrlX))
	require.Equal(t, 0, m.count)
	require.Equal(t, "Cleared ✓", m.status)
}

func TestModel_AutoExportFailureIsDegraded(t *testing.T) {
	m, env := newTestModel(t)
	env.Downloads = failingDownloader{}
	enabled := true
	_, err := ops.UpdateSettings(context.Background(), env, capture.SettingsPatch{AutoExportEnabled: &enabled})
	require.NoError(t, err)

	m = typeText(t, m, "https://example.com/")
	m = send(t, m, key(tea.KeyEnter))

	require.Equal(t, 1, m.count)
	require.Equal(t, ops.MessageSavedExportFailed, m.status)
	require.Equal(t, statusWarn, m.statusKind)
}

func TestModel_BusyIgnoresSecondAction(t *testing.T) {
	m, _ := newTestModel(t)

	next, cmd := m.Update(key(tea.KeyCtrlX))
	require.NotNil(t, cmd)
	m = next.(Model)
	require.True(t, m.busy)

	_, cmd = m.Update(key(tea.KeyCtrlE))
	require.Nil(t, cmd)
	require.Contains(t, m.View(), "Working...")
}

func TestModel_ErrorStatus(t *testing.T) {
	m, _ := newTestModel(t)

	next, _ := m.Update(settingsMsg{err: stderrors.New("disk I/O error")})
	m = next.(Model)
	require.Equal(t, statusError, m.statusKind)
	require.NotContains(t, m.status, "disk")
}

func TestModel_Quit(t *testing.T) {
	m, _ := newTestModel(t)

	next, cmd := m.Update(key(tea.KeyEsc))
	m = next.(Model)
	require.True(t, m.quitting)
	require.NotNil(t, cmd)
	require.Empty(t, m.View())
}
