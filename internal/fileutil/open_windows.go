//go:build windows

package fileutil

import "os"

// OpenNoFollow opens path. O_NOFOLLOW is not available on Windows; callers
// Lstat the path first.
func OpenNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}
