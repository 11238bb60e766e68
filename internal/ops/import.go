package ops

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/hpungsan/tinycapture/internal/capture"
	"github.com/hpungsan/tinycapture/internal/errors"
	"github.com/hpungsan/tinycapture/internal/fileutil"
)

// MaxImportBytes bounds how much of an import file is read.
const MaxImportBytes = 64 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string // required, a queue or item export (.json array) in an allowed directory
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Count    int `json:"count"`
}

// Import appends the url items of an exported JSON array to the queue.
// Entries that are not url items with a reference are skipped. Nothing is
// deduplicated: importing the same file twice queues its items twice.
func Import(ctx context.Context, env *Env, input ImportInput) (*ImportOutput, error) {
	allowed, err := importDirs(ctx, env)
	if err != nil {
		return nil, err
	}
	absPath, err := ValidateImportPath(input.Path, allowed)
	if err != nil {
		return nil, err
	}

	file, err := fileutil.OpenNoFollow(absPath, os.O_RDONLY, 0)
	if err != nil {
		switch {
		case stderrors.Is(err, fileutil.ErrSymlink):
			return nil, errors.NewInvalidRequest("cannot read from symlink")
		case stderrors.Is(err, os.ErrNotExist):
			return nil, errors.NewFileNotFound(input.Path)
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxImportBytes+1))
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read import file: %w", err))
	}
	if len(data) > MaxImportBytes {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("import file exceeds %d bytes", MaxImportBytes))
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("import file must be a JSON array: %v", err))
	}

	items := make([]capture.Item, 0, len(raw))
	skipped := 0
	for _, entry := range raw {
		var item capture.Item
		if err := json.Unmarshal(entry, &item); err != nil || !item.Valid() {
			skipped++
			continue
		}
		items = append(items, item)
	}

	out := &ImportOutput{Imported: len(items), Skipped: skipped}
	if len(items) == 0 {
		c, err := CountQueue(ctx, env)
		if err != nil {
			return nil, err
		}
		out.Count = c.Count
		return out, nil
	}

	count, err := appendItems(ctx, env, items...)
	if err != nil {
		return nil, err
	}
	out.Count = count

	env.logger().Info("queue imported", "path", absPath, "imported", out.Imported, "skipped", skipped, "count", count)
	return out, nil
}
