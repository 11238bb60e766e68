package ops

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/hpungsan/tinycapture/internal/capture"
	"github.com/stretchr/testify/require"
)

// TestFullWorkflow exercises the capture lifecycle:
// settings → capture (plain, rejected, auto-exported) → list → export → clear
func TestFullWorkflow(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()

	// 1. Defaults
	s, err := GetSettings(ctx, env)
	require.NoError(t, err)
	require.False(t, s.AutoExportEnabled)
	require.Equal(t, "any2ebook/inbox", s.AutoExportSubdir)

	// 2. Plain capture
	out, err := Capture(ctx, env, CaptureInput{URL: "https://go.dev/doc/"})
	require.NoError(t, err)
	require.Equal(t, StatusSaved, out.Status)

	// 3. Internal page is turned away
	out, err = Capture(ctx, env, CaptureInput{URL: "about:config"})
	require.NoError(t, err)
	require.Equal(t, StatusRejected, out.Status)

	// 4. Enable auto-export and capture again
	_, err = UpdateSettings(ctx, env, capture.SettingsPatch{AutoExportEnabled: boolPtr(true)})
	require.NoError(t, err)
	out, err = Capture(ctx, env, CaptureInput{URL: "https://pkg.go.dev/"})
	require.NoError(t, err)
	require.Equal(t, StatusSavedExported, out.Status)
	require.Equal(t, 2, out.Count)

	// 5. List
	list, err := ListQueue(ctx, env, ListInput{})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	require.Equal(t, "https://go.dev/doc/", list.Items[0].PayloadRef)
	require.Equal(t, "https://pkg.go.dev/", list.Items[1].PayloadRef)

	// 6. Bulk export reproduces the queue
	queue, err := LoadQueue(ctx, env)
	require.NoError(t, err)
	exported, err := ExportQueue(ctx, env, ExportInput{})
	require.NoError(t, err)
	data, err := os.ReadFile(exported.Path)
	require.NoError(t, err)
	var decoded []capture.Item
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, queue, decoded)

	// 7. Clear
	cleared, err := ClearQueue(ctx, env)
	require.NoError(t, err)
	require.Equal(t, 2, cleared.Cleared)

	count, err := CountQueue(ctx, env)
	require.NoError(t, err)
	require.Equal(t, 0, count.Count)

	// Settings survive a clear.
	s, err = GetSettings(ctx, env)
	require.NoError(t, err)
	require.True(t, s.AutoExportEnabled)
}
