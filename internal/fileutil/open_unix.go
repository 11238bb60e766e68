//go:build !windows

package fileutil

import (
	"errors"
	"os"
	"syscall"
)

// OpenNoFollow opens path with O_NOFOLLOW so a symlink at the final component
// is never followed, and O_CLOEXEC so the descriptor does not leak across exec.
// A symlink yields an error wrapping ErrSymlink; other failures are *os.PathError
// and match os.ErrNotExist / os.ErrExist.
func OpenNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		if errors.Is(err, syscall.ELOOP) {
			return nil, &os.PathError{Op: "open", Path: path, Err: ErrSymlink}
		}
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(fd), path), nil
}
