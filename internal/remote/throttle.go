package remote

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// throttled delays every call on the wrapped Storage until the limiter admits it.
type throttled struct {
	next    Storage
	limiter *rate.Limiter
}

// Throttle limits the request rate against s to perSecond calls with a burst of the same size.
// A non-positive rate returns s unchanged.
func Throttle(s Storage, perSecond int) Storage {
	if perSecond <= 0 {
		return s
	}
	return &throttled{
		next:    s,
		limiter: rate.NewLimiter(rate.Limit(perSecond), perSecond),
	}
}

func (t *throttled) GetMetadata(ctx context.Context, path string) (*Resource, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.next.GetMetadata(ctx, path)
}

func (t *throttled) CreateDirectory(ctx context.Context, path string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.next.CreateDirectory(ctx, path)
}

func (t *throttled) GetUploadLink(ctx context.Context, path string, overwrite bool) (*Link, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.next.GetUploadLink(ctx, path, overwrite)
}

func (t *throttled) Upload(ctx context.Context, link *Link, r io.Reader, size int64) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.next.Upload(ctx, link, r, size)
}

func (t *throttled) Close() error {
	return t.next.Close()
}
