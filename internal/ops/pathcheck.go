package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/tinycapture/internal/errors"
)

// ValidateImportPath checks an import path:
// 1. Path traversal (.. sequences)
// 2. Extension (.json required)
// 3. Directory restriction (file must be DIRECTLY in one of allowedDirs, no subdirectories)
// 4. The file exists and is not a symlink, and its parent is not a symlink
//
// Requiring the file to sit directly in an allowed directory leaves no
// intermediate component to swap between validation and open; O_NOFOLLOW at
// open time covers the final one.
func ValidateImportPath(path string, allowedDirs []string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.NewInvalidRequest("path is required")
	}

	if containsTraversal(path) {
		return "", errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	if filepath.Ext(cleaned) != ".json" {
		return "", errors.NewInvalidRequest("path must have .json extension")
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	parentDir := filepath.Dir(absPath)
	if !isDirectlyInAllowedDir(parentDir, allowedDirs) {
		return "", errors.NewInvalidRequest(
			fmt.Sprintf("file must be directly in an allowed directory (no subdirectories); allowed: %v", allowedDirs))
	}
	if info, err := os.Lstat(parentDir); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return "", errors.NewInvalidRequest("parent directory must not be a symlink")
	}

	info, err := os.Lstat(absPath)
	if os.IsNotExist(err) {
		return "", errors.NewFileNotFound(path)
	}
	if err != nil {
		return "", errors.NewInternal(err)
	}
	// O_NOFOLLOW would reject this at open time too; this gives a clearer error.
	if info.Mode()&os.ModeSymlink != 0 {
		return "", errors.NewInvalidRequest("path must not be a symlink")
	}
	if info.IsDir() {
		return "", errors.NewInvalidRequest("path must be a file")
	}

	return absPath, nil
}

// importDirs returns the directories import may read from: the downloads
// directory, the current auto-export folder under it, and the absolute
// entries of allowed_paths. Symlinked entries are resolved to their target.
func importDirs(ctx context.Context, env *Env) ([]string, error) {
	settings, err := GetSettings(ctx, env)
	if err != nil {
		return nil, err
	}

	dirs := []string{
		env.DownloadsDir,
		filepath.Join(env.DownloadsDir, filepath.FromSlash(settings.AutoExportSubdir)),
	}
	if env.Config != nil {
		for _, p := range env.Config.AllowedPaths {
			if filepath.IsAbs(p) {
				dirs = append(dirs, p)
			}
		}
	}

	result := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if d == "" {
			continue
		}
		abs, err := filepath.Abs(filepath.Clean(d))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path: %v", err))
		}
		if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(abs)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
			abs = resolved
		}
		result = append(result, abs)
	}
	return result, nil
}

// isDirectlyInAllowedDir checks if parentDir exactly matches one of the allowed directories.
func isDirectlyInAllowedDir(parentDir string, allowedDirs []string) bool {
	parentDir = filepath.Clean(parentDir)
	for _, dir := range allowedDirs {
		if parentDir == filepath.Clean(dir) {
			return true
		}
	}
	return false
}

// containsTraversal checks if path contains ".." directory traversal.
func containsTraversal(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	// Also check for forward slashes on all platforms (e.g., user input)
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, "/") {
			if part == ".." {
				return true
			}
		}
	}
	return false
}
