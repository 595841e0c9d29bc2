package upload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoDirectory is returned by ListFiles when the local path is missing or not a directory.
var ErrNoDirectory = errors.New("no such directory")

// Job is one local file headed for one remote path.
type Job struct {
	LocalPath  string
	Name       string
	RemotePath string
}

// NewJobs pairs every local file with its target under the resolved destination.
func NewJobs(files []string, dest string) []Job {
	jobs := make([]Job, 0, len(files))
	for _, f := range files {
		name := filepath.Base(f)
		jobs = append(jobs, Job{
			LocalPath:  f,
			Name:       name,
			RemotePath: dest + name,
		})
	}
	return jobs
}

// ListFiles returns the regular files directly inside dir, sorted by name. Subdirectories
// are skipped; symlinks count when they point at a regular file.
func ListFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoDirectory
		}
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, ErrNoDirectory
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if e.Type()&os.ModeSymlink != 0 {
			target, err := os.Stat(p)
			if err != nil || !target.Mode().IsRegular() {
				continue
			}
			files = append(files, p)
			continue
		}
		if e.Type().IsRegular() {
			files = append(files, p)
		}
	}
	return files, nil
}
