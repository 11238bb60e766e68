package ops

import (
	"context"
	"path"
	"strings"

	"github.com/hpungsan/tinycapture/internal/browser"
	"github.com/hpungsan/tinycapture/internal/capture"
	"github.com/hpungsan/tinycapture/internal/errors"
)

// JSONMediaType is the type staged behind every export object URL.
const JSONMediaType = "application/json"

// ExportInput contains parameters for the ExportQueue operation.
type ExportInput struct {
	Filename string // optional, default: aku_capture_queue_<stamp>.json (relative to the downloads dir)
}

// ExportOutput contains the result of an export.
type ExportOutput struct {
	Filename   string `json:"filename"`
	Path       string `json:"path"`
	Count      int    `json:"count"`
	Bytes      int    `json:"bytes"`
	DownloadID string `json:"download_id"`
	ExportedAt string `json:"exported_at"`
}

// RenderedExport is a serialized bulk export that has not been saved anywhere.
type RenderedExport struct {
	Filename string
	Data     []byte
	Count    int
}

// ExportQueue saves the whole queue as a JSON array in the downloads directory.
func ExportQueue(ctx context.Context, env *Env, input ExportInput) (*ExportOutput, error) {
	now := env.now()

	filename := strings.TrimSpace(input.Filename)
	if filename == "" {
		filename = capture.QueueExportFilename(now)
	}
	if path.Ext(strings.ReplaceAll(filename, `\`, "/")) != ".json" {
		return nil, errors.NewInvalidRequest("filename must have .json extension")
	}

	items, err := LoadQueue(ctx, env)
	if err != nil {
		return nil, err
	}

	out, err := saveJSON(ctx, env, filename, items)
	if err != nil {
		return nil, err
	}
	out.ExportedAt = now.UTC().Format(capture.TimestampLayout)

	env.logger().Info("queue exported", "filename", filename, "path", out.Path, "count", out.Count)
	return out, nil
}

// ExportItem saves a single item as a one-element array under subdir.
func ExportItem(ctx context.Context, env *Env, item capture.Item, subdir string) (*ExportOutput, error) {
	now := env.now()

	suffix, err := capture.RandomSuffix()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	filename := capture.ItemExportFilename(subdir, now, suffix)

	out, err := saveJSON(ctx, env, filename, []capture.Item{item})
	if err != nil {
		return nil, err
	}
	out.ExportedAt = now.UTC().Format(capture.TimestampLayout)

	env.logger().Debug("item exported", "filename", filename, "path", out.Path)
	return out, nil
}

// RenderQueueExport serializes the queue for callers that deliver the bytes
// themselves, such as the export page's attachment response.
func RenderQueueExport(ctx context.Context, env *Env) (*RenderedExport, error) {
	items, err := LoadQueue(ctx, env)
	if err != nil {
		return nil, err
	}
	data, err := capture.Marshal(items)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &RenderedExport{
		Filename: capture.QueueExportFilename(env.now()),
		Data:     data,
		Count:    len(items),
	}, nil
}

// saveJSON stages items behind an object URL and hands it to the downloader.
// The URL is revoked after the configured TTL on every return path.
func saveJSON(ctx context.Context, env *Env, filename string, items []capture.Item) (*ExportOutput, error) {
	data, err := capture.Marshal(items)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	url := env.Blobs.Create(data, JSONMediaType)
	defer env.Blobs.RevokeAfter(url, env.Config.ObjectURLTTL())

	res, err := env.Downloads.Download(ctx, browser.DownloadRequest{
		URL:            url,
		Filename:       filename,
		SaveAs:         false,
		ConflictAction: browser.ConflictUniquify,
	})
	if err != nil {
		return nil, errors.NewExportFailed(filename, err)
	}

	return &ExportOutput{
		Filename:   filename,
		Path:       res.Path,
		Count:      len(items),
		Bytes:      res.Bytes,
		DownloadID: res.ID,
	}, nil
}
