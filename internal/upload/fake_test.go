package upload

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hwuu/diskup/internal/remote"
)

type call struct {
	Op   string
	Path string
}

// fakeStorage records every call and keeps directories and uploaded files in memory.
// Directory paths carry a trailing separator, like the resolver produces them.
type fakeStorage struct {
	mu        sync.Mutex
	dirs      map[string]bool
	uploads   map[string]string
	overwrite map[string]bool
	calls     []call
	closed    bool

	// errFor, when set, may fail a call before it takes effect
	errFor func(op, path string) error
	// onUpload runs inside Upload before the body is read
	onUpload func(path string)
}

func newFakeStorage(existing ...string) *fakeStorage {
	f := &fakeStorage{
		dirs:      map[string]bool{"/": true},
		uploads:   map[string]string{},
		overwrite: map[string]bool{},
	}
	for _, d := range existing {
		f.dirs[d] = true
	}
	return f
}

func (f *fakeStorage) record(op, p string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{Op: op, Path: p})
	errFor := f.errFor
	f.mu.Unlock()
	if errFor != nil {
		return errFor(op, p)
	}
	return nil
}

func (f *fakeStorage) GetMetadata(ctx context.Context, p string) (*remote.Resource, error) {
	if err := f.record("metadata", p); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.dirs[p] {
		return nil, remote.ErrNotFound
	}
	res := &remote.Resource{Path: p}
	for d := range f.dirs {
		if d == "/" {
			continue
		}
		parent := path.Dir(strings.TrimSuffix(d, "/"))
		if parent != "/" {
			parent += "/"
		}
		if parent == p {
			res.Items = append(res.Items, remote.Item{Name: path.Base(d), Type: remote.TypeDir})
		}
	}
	return res, nil
}

func (f *fakeStorage) CreateDirectory(ctx context.Context, p string) error {
	if err := f.record("create", p); err != nil {
		return err
	}
	f.mu.Lock()
	f.dirs[p] = true
	f.mu.Unlock()
	return nil
}

func (f *fakeStorage) GetUploadLink(ctx context.Context, p string, overwrite bool) (*remote.Link, error) {
	if err := f.record("link", p); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.overwrite[p] = overwrite
	f.mu.Unlock()
	return &remote.Link{Href: p, Method: "PUT"}, nil
}

func (f *fakeStorage) Upload(ctx context.Context, link *remote.Link, r io.Reader, size int64) error {
	if err := f.record("upload", link.Href); err != nil {
		return err
	}
	if f.onUpload != nil {
		f.onUpload(link.Href)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.uploads[link.Href] = string(data)
	f.mu.Unlock()
	return nil
}

func (f *fakeStorage) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeStorage) callsOf(op string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var paths []string
	for _, c := range f.calls {
		if c.Op == op {
			paths = append(paths, c.Path)
		}
	}
	return paths
}

func (f *fakeStorage) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// writeFiles creates name → content files in a fresh temp directory.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile %s failed: %v", name, err)
		}
	}
	return dir
}

// syncBuffer is a goroutine-safe output sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Lines() []string {
	s := strings.TrimSpace(b.String())
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
