package browser

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/tinycapture/internal/errors"
	"github.com/hpungsan/tinycapture/internal/fileutil"
)

// ConflictAction decides what happens when the target filename exists.
type ConflictAction string

const (
	ConflictUniquify  ConflictAction = "uniquify"
	ConflictOverwrite ConflictAction = "overwrite"
	ConflictPrompt    ConflictAction = "prompt"
)

// maxUniquify bounds the "name (n).ext" search.
const maxUniquify = 10000

// DownloadRequest asks the platform to save the body behind URL.
// Filename is relative to the downloads directory and uses forward slashes.
type DownloadRequest struct {
	URL            string
	Filename       string
	SaveAs         bool
	ConflictAction ConflictAction
}

// DownloadResult describes a completed download.
type DownloadResult struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

// Downloader saves staged bytes to disk.
type Downloader interface {
	Download(ctx context.Context, req DownloadRequest) (*DownloadResult, error)
}

// DirDownloader writes downloads under Dir without ever prompting.
type DirDownloader struct {
	Dir   string
	Blobs *ObjectURLs
}

// Download resolves req.URL and writes it to Dir/req.Filename.
func (d *DirDownloader) Download(ctx context.Context, req DownloadRequest) (*DownloadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.SaveAs {
		return nil, errors.NewInvalidRequest("save-as prompts are not supported")
	}

	conflict := req.ConflictAction
	if conflict == "" {
		conflict = ConflictUniquify
	}
	if conflict != ConflictUniquify && conflict != ConflictOverwrite {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unsupported conflict action %q", conflict))
	}

	rel, err := cleanRelative(req.Filename)
	if err != nil {
		return nil, err
	}

	blob, ok := d.Blobs.Resolve(req.URL)
	if !ok {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("object URL %s is not live", req.URL))
	}

	target := filepath.Join(d.Dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}

	written, err := writeNew(target, blob.Data, conflict)
	if err != nil {
		return nil, err
	}

	return &DownloadResult{
		ID:    ulid.Make().String(),
		Path:  written,
		Bytes: len(blob.Data),
	}, nil
}

// cleanRelative validates a download filename and returns it cleaned.
func cleanRelative(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if strings.TrimSpace(name) == "" {
		return "", errors.NewInvalidRequest("filename is required")
	}
	if strings.HasPrefix(name, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", errors.NewInvalidRequest("filename must be relative to the downloads directory")
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", errors.NewInvalidRequest("filename must not contain directory traversal (..)")
		}
	}
	cleaned := path.Clean(name)
	if cleaned == "." || strings.HasSuffix(name, "/") {
		return "", errors.NewInvalidRequest("filename must name a file")
	}
	return cleaned, nil
}

// writeNew writes data to target. With ConflictUniquify an existing file is
// never touched; "name (1).ext", "name (2).ext", ... are tried instead.
func writeNew(target string, data []byte, conflict ConflictAction) (string, error) {
	if conflict == ConflictOverwrite {
		return target, writeFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, data)
	}

	ext := filepath.Ext(target)
	stem := strings.TrimSuffix(target, ext)
	for n := 0; n < maxUniquify; n++ {
		candidate := target
		if n > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
		}
		err := writeFile(candidate, os.O_WRONLY|os.O_CREATE|os.O_EXCL, data)
		if err == nil {
			return candidate, nil
		}
		if !stderrors.Is(err, os.ErrExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("no free filename for %s", filepath.Base(target))
}

func writeFile(p string, flag int, data []byte) error {
	f, err := fileutil.OpenNoFollow(p, flag, 0644)
	if err != nil {
		if stderrors.Is(err, fileutil.ErrSymlink) {
			return errors.NewInvalidRequest("cannot write to symlink")
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(p)
		return fmt.Errorf("write %s: %w", filepath.Base(p), err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync %s: %w", filepath.Base(p), err)
	}
	return f.Close()
}
