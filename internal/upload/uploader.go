package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hwuu/diskup/internal/remote"
)

// Uploader sends local files to a resolved remote directory concurrently.
type Uploader struct {
	Storage remote.Storage
	Output  io.Writer
	Logger  zerolog.Logger
	// Jobs caps the number of concurrent uploads; 0 starts every upload at once.
	Jobs int

	mu sync.Mutex
}

func (u *Uploader) printf(format string, args ...interface{}) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintf(u.Output, format, args...)
}

// UploadAll uploads every file to dest+basename and waits for all of them. It returns the
// first failure. Once an upload has failed, the others still run to the end but print no
// completion line. With a Jobs cap, uploads still queued behind the cap are skipped instead.
// Nothing is rolled back remotely.
func (u *Uploader) UploadAll(ctx context.Context, files []string, dest string) error {
	g, gctx := errgroup.WithContext(ctx)
	if u.Jobs > 0 {
		g.SetLimit(u.Jobs)
	}

	for _, job := range NewJobs(files, dest) {
		g.Go(func() error {
			if u.Jobs > 0 && gctx.Err() != nil {
				return nil
			}
			// in-flight uploads use ctx, not gctx: a sibling's failure does not abort them
			if err := u.upload(ctx, job); err != nil {
				return fmt.Errorf("upload %s: %w", job.Name, err)
			}
			if gctx.Err() == nil {
				u.printf("%s is uploaded\n", job.Name)
			}
			return nil
		})
	}

	return g.Wait()
}

func (u *Uploader) upload(ctx context.Context, job Job) error {
	u.printf("%s is being uploaded...\n", job.Name)

	link, err := u.Storage.GetUploadLink(ctx, job.RemotePath, true)
	if err != nil {
		return err
	}

	f, err := os.Open(job.LocalPath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	start := time.Now()
	u.Logger.Debug().
		Str("file", job.LocalPath).
		Str("remote", job.RemotePath).
		Str("size", humanize.Bytes(uint64(info.Size()))).
		Msg("upload started")

	if err := u.Storage.Upload(ctx, link, f, info.Size()); err != nil {
		return err
	}

	u.Logger.Debug().
		Str("remote", job.RemotePath).
		Dur("elapsed", time.Since(start)).
		Msg("upload finished")
	return nil
}
