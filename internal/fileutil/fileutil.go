// Package fileutil holds file helpers shared by the export writer and the
// import reader.
package fileutil

import "errors"

// ErrSymlink is returned when the final path component is a symlink.
var ErrSymlink = errors.New("path is a symlink")
