package upload

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hwuu/diskup/internal/remote"
)

// SplitSegments normalizes the platform separator to "/" and returns the non-empty path
// segments of dest in order.
func SplitSegments(dest string) []string {
	return strings.FieldsFunc(filepath.ToSlash(dest), func(r rune) bool {
		return r == '/'
	})
}

// Resolver makes sure a destination directory exists on the remote side.
type Resolver struct {
	Storage remote.Storage
	Logger  zerolog.Logger
}

// Resolve walks dest segment by segment from the root, creating what is missing, and returns
// the resolved path with a trailing separator.
//
// Segments are looked up only among the immediate children of the previous one. After the
// first missing segment every remaining segment is created without checking, since a
// directory cannot exist under a parent that does not.
func (r *Resolver) Resolve(ctx context.Context, dest string) (string, error) {
	segments := SplitSegments(dest)
	current := remote.Separator

	dir, err := r.Storage.GetMetadata(ctx, current)
	if err != nil {
		return "", fmt.Errorf("get metadata %s: %w", current, err)
	}

	i := 0
	for ; i < len(segments); i++ {
		if !dir.HasChild(segments[i]) {
			break
		}
		current += segments[i] + remote.Separator
		r.Logger.Debug().Str("path", current).Msg("remote directory exists")

		dir, err = r.Storage.GetMetadata(ctx, current)
		if err != nil {
			return "", fmt.Errorf("get metadata %s: %w", current, err)
		}
	}

	for ; i < len(segments); i++ {
		current += segments[i] + remote.Separator
		r.Logger.Debug().Str("path", current).Msg("creating remote directory")

		if err := r.Storage.CreateDirectory(ctx, current); err != nil {
			return "", fmt.Errorf("create directory %s: %w", current, err)
		}
	}

	return current, nil
}
