package ops

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/hpungsan/tinycapture/internal/browser"
	"github.com/hpungsan/tinycapture/internal/config"
	"github.com/hpungsan/tinycapture/internal/db"
	"github.com/stretchr/testify/require"
)

// fixedNow is the clock used by every test Env.
var fixedNow = time.Date(2026, 2, 12, 15, 30, 0, 465_000_000, time.UTC)

// newTestEnv returns an Env backed by a temp database that downloads into a
// temp directory. The downloads directory is returned alongside.
func newTestEnv(t *testing.T) (*Env, string) {
	t.Helper()

	baseDir := t.TempDir()
	database, err := db.Init(baseDir)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.DownloadsDir = t.TempDir()
	cfg.ObjectURLTTLSeconds = -1

	env, err := NewEnv(baseDir, database, cfg, nil)
	require.NoError(t, err)
	env.Now = func() time.Time { return fixedNow }
	return env, cfg.DownloadsDir
}

// failingDownloader rejects every download, the way a browser does on quota
// or permission errors.
type failingDownloader struct {
	calls int
}

func (f *failingDownloader) Download(ctx context.Context, req browser.DownloadRequest) (*browser.DownloadResult, error) {
	f.calls++
	return nil, stderrors.New("download rejected: disk full")
}

// recordingDownloader captures the last request and delegates to next.
type recordingDownloader struct {
	next browser.Downloader
	reqs []browser.DownloadRequest
}

func (r *recordingDownloader) Download(ctx context.Context, req browser.DownloadRequest) (*browser.DownloadResult, error) {
	r.reqs = append(r.reqs, req)
	return r.next.Download(ctx, req)
}

func boolPtr(b bool) *bool       { return &b }
func stringPtr(s string) *string { return &s }

func requireQueueLen(t *testing.T, env *Env, want int) {
	t.Helper()
	items, err := LoadQueue(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, items, want)
}
