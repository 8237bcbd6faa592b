package autoindex

import (
	"os"
	"path/filepath"
)

// sourceMtime stats root/relPath and returns its modification time as unix
// seconds. ok is false if the file no longer exists.
func sourceMtime(root, relPath string) (int64, bool) {
	info, err := os.Stat(filepath.Join(root, relPath))
	if err != nil {
		return 0, false
	}
	return info.ModTime().Unix(), true
}
