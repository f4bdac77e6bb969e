package artifacts

import (
	"os"
	"path/filepath"
)

// writeFileAtomic writes data to a temporary file next to path, syncs it and renames it over
// path. Parent directories are created as needed. A reader never observes a partially written
// file, and an existing file is replaced as a whole.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return err
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return err
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmpName)

		return err
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)

		return err
	}

	if err = os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)

		return err
	}

	return nil
}
