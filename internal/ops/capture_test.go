package ops

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/tinycapture/internal/browser"
	"github.com/hpungsan/tinycapture/internal/capture"
	"github.com/hpungsan/tinycapture/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestCapture_AppendsOneItem(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()

	out, err := Capture(ctx, env, CaptureInput{URL: "https://example.com/"})
	require.NoError(t, err)
	require.Equal(t, StatusSaved, out.Status)
	require.Equal(t, "Saved ✓", out.Message)
	require.Equal(t, 1, out.Count)
	require.True(t, out.Saved())

	queue, err := LoadQueue(ctx, env)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	require.Equal(t, "https://example.com/", queue[0].PayloadRef)
	require.Equal(t, "url", queue[0].PayloadType)
	require.Equal(t, "browser_extension", queue[0].Source)
	require.Equal(t, "2026-02-12T15:30:00.465Z", queue[0].CapturedAt)
}

func TestCapture_SameTabTwiceQueuesTwice(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := Capture(ctx, env, CaptureInput{URL: "https://example.com/"})
		require.NoError(t, err)
	}

	queue, err := LoadQueue(ctx, env)
	require.NoError(t, err)
	require.Len(t, queue, 2)
}

func TestCapture_URLStoredVerbatim(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()

	raw := "HTTPS://Example.com/Path?utm_source=x#frag"
	_, err := Capture(ctx, env, CaptureInput{URL: raw})
	require.NoError(t, err)

	queue, err := LoadQueue(ctx, env)
	require.NoError(t, err)
	require.Equal(t, raw, queue[0].PayloadRef)
}

func TestCapture_RejectsInternalPages(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()

	_, err := Capture(ctx, env, CaptureInput{URL: "https://kept.example/"})
	require.NoError(t, err)

	for _, u := range []string{"about:preferences", "chrome://settings", "moz-extension://abc/popup.html"} {
		t.Run(u, func(t *testing.T) {
			out, err := Capture(ctx, env, CaptureInput{URL: u})
			require.NoError(t, err, "rejection is an outcome, not an error")
			require.Equal(t, StatusRejected, out.Status)
			require.Equal(t, "Cannot save internal browser pages.", out.Message)
			require.False(t, out.Saved())

			count, err := CountQueue(ctx, env)
			require.NoError(t, err)
			require.Equal(t, 1, count.Count)
		})
	}
}

func TestCapture_NoTab(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()

	// No URL and no tab source.
	out, err := Capture(ctx, env, CaptureInput{})
	require.NoError(t, err)
	require.Equal(t, StatusNoTab, out.Status)
	require.Empty(t, out.Message)

	// Tab source reports no tab.
	env.Tabs = browser.TabFunc(func(ctx context.Context) (*browser.Tab, error) { return nil, nil })
	out, err = Capture(ctx, env, CaptureInput{})
	require.NoError(t, err)
	require.Equal(t, StatusNoTab, out.Status)

	// Tab without a URL.
	env.Tabs = browser.TabFunc(func(ctx context.Context) (*browser.Tab, error) { return &browser.Tab{ID: "1"}, nil })
	out, err = Capture(ctx, env, CaptureInput{})
	require.NoError(t, err)
	require.Equal(t, StatusNoTab, out.Status)

	count, err := CountQueue(ctx, env)
	require.NoError(t, err)
	require.Equal(t, 0, count.Count)
}

func TestCapture_UsesTabSource(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()

	env.Tabs = browser.StaticTab{URL: "https://from-tab.example/"}
	out, err := Capture(ctx, env, CaptureInput{})
	require.NoError(t, err)
	require.Equal(t, "https://from-tab.example/", out.Item.PayloadRef)

	// An explicit URL wins over the tab source.
	out, err = Capture(ctx, env, CaptureInput{URL: "https://explicit.example/"})
	require.NoError(t, err)
	require.Equal(t, "https://explicit.example/", out.Item.PayloadRef)
}

func TestCapture_TabQueryError(t *testing.T) {
	env, _ := newTestEnv(t)
	env.Tabs = browser.TabFunc(func(ctx context.Context) (*browser.Tab, error) {
		return nil, stderrors.New("devtools unreachable")
	})

	_, err := Capture(context.Background(), env, CaptureInput{})
	require.True(t, errors.Is(err, errors.ErrInternal))
}

func TestCapture_AutoExport(t *testing.T) {
	env, downloads := newTestEnv(t)
	ctx := context.Background()

	_, err := UpdateSettings(ctx, env, capture.SettingsPatch{
		AutoExportEnabled: boolPtr(true),
		AutoExportSubdir:  stringPtr("reading/inbox"),
	})
	require.NoError(t, err)

	rec := &recordingDownloader{next: env.Downloads}
	env.Downloads = rec

	out, err := Capture(ctx, env, CaptureInput{URL: "https://example.com/"})
	require.NoError(t, err)
	require.Equal(t, StatusSavedExported, out.Status)
	require.Equal(t, "Saved + auto-exported ✓", out.Message)
	require.NotNil(t, out.Export)

	require.Len(t, rec.reqs, 1)
	req := rec.reqs[0]
	require.False(t, req.SaveAs)
	require.Equal(t, browser.ConflictUniquify, req.ConflictAction)
	require.True(t, strings.HasPrefix(req.Filename, "reading/inbox/aku_capture_item_2026-02-12T15-30-00Z_"), req.Filename)

	require.Equal(t, filepath.Join(downloads, "reading", "inbox"), filepath.Dir(out.Export.Path))
	data, err := os.ReadFile(out.Export.Path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "[\n  {\n    \"captured_at\""), string(data))
	require.Contains(t, string(data), `"payload_ref": "https://example.com/"`)

	require.Equal(t, 0, env.Blobs.Len(), "staged export is released")
}

func TestCapture_AutoExportFailureKeepsItem(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()

	_, err := UpdateSettings(ctx, env, capture.SettingsPatch{AutoExportEnabled: boolPtr(true)})
	require.NoError(t, err)

	failing := &failingDownloader{}
	env.Downloads = failing

	out, err := Capture(ctx, env, CaptureInput{URL: "https://example.com/"})
	require.NoError(t, err)
	require.Equal(t, StatusSavedExportFailed, out.Status)
	require.NotEqual(t, StatusSaved, out.Status)
	require.NotEqual(t, StatusRejected, out.Status)
	require.Equal(t, "Saved, auto-export failed.", out.Message)
	require.Contains(t, out.ExportError, "disk full")
	require.Equal(t, 1, out.Count)
	require.Equal(t, 1, failing.calls)

	count, err := CountQueue(ctx, env)
	require.NoError(t, err)
	require.Equal(t, 1, count.Count, "append is never rolled back")

	require.Equal(t, 0, env.Blobs.Len(), "staged export is released on failure too")
}

func TestRunCommand(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()
	env.Tabs = browser.StaticTab{URL: "https://hotkey.example/"}

	out, err := RunCommand(ctx, env, CommandSaveCurrentTab)
	require.NoError(t, err)
	require.Equal(t, StatusSaved, out.Status)

	_, err = RunCommand(ctx, env, "open-popup")
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
