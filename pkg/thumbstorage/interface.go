// Pluggable file storage for source images and generated thumbnails
package thumbstorage

import (
	"context"
	"io"
)

// the capability set the thumbnailer needs from a backend. implementations must
// make Save() atomic at the file level (write-then-rename or equivalent) so a
// concurrent reader never observes a partially written derivative.
type Storage interface {
	// must not leave a partial file visible under "name" on failure
	Save(ctx context.Context, name string, content io.Reader) error

	Open(ctx context.Context, name string) (io.ReadCloser, error)

	Exists(ctx context.Context, name string) (bool, error)

	// publicly servable URL for a stored file
	URL(name string) string
}

// optional capability: backends that live on a local filesystem can map a name to
// a path. remote backends (S3 etc.) simply don't implement this - absence of the
// capability is how callers detect remoteness, not an error.
type Pather interface {
	Path(name string) string
}

func IsLocal(storage Storage) bool {
	_, hasPath := storage.(Pather)
	return hasPath
}
