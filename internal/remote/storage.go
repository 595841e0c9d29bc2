// Package remote defines the capability set every storage backend provides to the uploader,
// plus the SFTP backend and a request throttle that wraps any backend.
package remote

import (
	"context"
	"errors"
	"io"
)

// Separator is the canonical remote path separator.
const Separator = "/"

var (
	// ErrNotAuthorized is returned when the service rejects the credential.
	ErrNotAuthorized = errors.New("not authorized")
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
)

// ItemType distinguishes directories from files in a listing.
type ItemType string

const (
	TypeDir  ItemType = "dir"
	TypeFile ItemType = "file"
)

// Item is one immediate child of a remote directory.
type Item struct {
	Name string
	Type ItemType
}

// Resource is the metadata of a remote path with its immediate children.
type Resource struct {
	Path  string
	Items []Item
}

// HasChild reports whether an immediate child with exactly this name exists.
func (r *Resource) HasChild(name string) bool {
	if r == nil {
		return false
	}
	for _, item := range r.Items {
		if item.Name == name {
			return true
		}
	}
	return false
}

// Link is an opaque, short-lived handle authorizing a single upload.
type Link struct {
	Href   string
	Method string
	Header map[string]string
}

// Storage is the remote capability set consumed by the uploader. Implementations must be safe
// for concurrent use.
type Storage interface {
	GetMetadata(ctx context.Context, path string) (*Resource, error)
	CreateDirectory(ctx context.Context, path string) error
	GetUploadLink(ctx context.Context, path string, overwrite bool) (*Link, error)
	Upload(ctx context.Context, link *Link, r io.Reader, size int64) error
	Close() error
}

// OpenFunc connects to a backend. Callers defer it until a remote call is actually needed.
type OpenFunc func(ctx context.Context) (Storage, error)
