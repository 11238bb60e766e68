package browser

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/hpungsan/tinycapture/internal/errors"
	"github.com/stretchr/testify/require"
)

func newDownloader(t *testing.T) (*DirDownloader, string) {
	t.Helper()
	dir := t.TempDir()
	return &DirDownloader{Dir: dir, Blobs: NewObjectURLs()}, dir
}

func TestDownload_WritesUnderDir(t *testing.T) {
	d, dir := newDownloader(t)
	url := d.Blobs.Create([]byte(`["a"]`), "application/json")

	res, err := d.Download(context.Background(), DownloadRequest{
		URL:            url,
		Filename:       "any2ebook/inbox/item.json",
		ConflictAction: ConflictUniquify,
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "any2ebook", "inbox", "item.json"), res.Path)
	require.Equal(t, 5, res.Bytes)
	require.NotEmpty(t, res.ID)

	got, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	require.Equal(t, `["a"]`, string(got))
}

func TestDownload_Uniquify(t *testing.T) {
	d, dir := newDownloader(t)
	ctx := context.Background()

	var paths []string
	for i, body := range []string{"one", "two", "three"} {
		url := d.Blobs.Create([]byte(body), "")
		res, err := d.Download(ctx, DownloadRequest{URL: url, Filename: "q.json"})
		require.NoError(t, err, "download %d", i)
		paths = append(paths, res.Path)
	}

	require.Equal(t, []string{
		filepath.Join(dir, "q.json"),
		filepath.Join(dir, "q (1).json"),
		filepath.Join(dir, "q (2).json"),
	}, paths)

	first, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	require.Equal(t, "one", string(first), "existing file is never overwritten")
}

func TestDownload_Overwrite(t *testing.T) {
	d, dir := newDownloader(t)
	ctx := context.Background()

	for _, body := range []string{"old", "new"} {
		url := d.Blobs.Create([]byte(body), "")
		_, err := d.Download(ctx, DownloadRequest{URL: url, Filename: "q.json", ConflictAction: ConflictOverwrite})
		require.NoError(t, err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "q.json"))
	require.NoError(t, err)
	require.Equal(t, "new", string(got))
}

func TestDownload_Rejections(t *testing.T) {
	d, _ := newDownloader(t)
	url := d.Blobs.Create([]byte("x"), "")

	tests := []struct {
		name string
		req  DownloadRequest
	}{
		{"save as", DownloadRequest{URL: url, Filename: "a.json", SaveAs: true}},
		{"prompt", DownloadRequest{URL: url, Filename: "a.json", ConflictAction: ConflictPrompt}},
		{"empty name", DownloadRequest{URL: url, Filename: " "}},
		{"absolute", DownloadRequest{URL: url, Filename: "/etc/a.json"}},
		{"traversal", DownloadRequest{URL: url, Filename: "inbox/../../a.json"}},
		{"backslash traversal", DownloadRequest{URL: url, Filename: `..\a.json`}},
		{"directory", DownloadRequest{URL: url, Filename: "inbox/"}},
		{"revoked url", DownloadRequest{URL: ObjectURLPrefix + "gone", Filename: "a.json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Download(context.Background(), tt.req)
			require.Error(t, err)
			require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
		})
	}
}

func TestDownload_CancelledContext(t *testing.T) {
	d, dir := newDownloader(t)
	url := d.Blobs.Create([]byte("x"), "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Download(ctx, DownloadRequest{URL: url, Filename: "a.json"})
	require.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDownload_SkipsSymlinkTarget(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	d, dir := newDownloader(t)
	outside := filepath.Join(t.TempDir(), "victim.json")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0644))
	require.NoError(t, os.Symlink(outside, filepath.Join(dir, "a.json")))

	url := d.Blobs.Create([]byte("x"), "")
	res, err := d.Download(context.Background(), DownloadRequest{URL: url, Filename: "a.json"})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "a (1).json"), res.Path)

	got, err := os.ReadFile(outside)
	require.NoError(t, err)
	require.Equal(t, "keep", string(got))
}
