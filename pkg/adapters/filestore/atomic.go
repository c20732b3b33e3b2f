package filestore

import (
	"fmt"
	"os"
	"path/filepath"
)

// TempFilePrefix marks in-flight atomic writes. The watcher and the path
// resolver skip files carrying it.
const TempFilePrefix = "trellis-tmp-"

// writeFileAtomic writes data to a temp file beside filename and renames it
// into place, so a reader never observes a partially written document. The
// temp file must live in the target directory; rename is only atomic within
// one filesystem.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), TempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write temp file for %s: %w", filepath.Base(filename), err)
	}

	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("rename %s into place: %w", filepath.Base(filename), err)
	}
	return nil
}
