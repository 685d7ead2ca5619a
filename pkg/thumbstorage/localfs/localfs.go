// Local filesystem storage backend
package localfs

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/function61/gokit/atomicfilewrite"
	"github.com/function61/gokit/fileexists"
	"github.com/function61/gokit/logex"
)

func New(root string, baseURL string, logger *log.Logger) *localFs {
	return &localFs{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     logex.Levels(logex.NonNil(logger)),
	}
}

type localFs struct {
	root    string
	baseURL string
	log     *logex.Leveled
}

func (l *localFs) Save(ctx context.Context, name string, content io.Reader) error {
	filename := l.Path(name)

	// does not error if already exists
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}

	// atomic so a concurrent Open()/Exists() never sees a torn file. an existing
	// file gets replaced, which is fine: generation is deterministic so replacement
	// content is identical anyway.
	return atomicfilewrite.Write(filename, func(writer io.Writer) error {
		_, err := io.Copy(writer, content)
		return err
	})
}

func (l *localFs) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return os.Open(l.Path(name))
}

func (l *localFs) Exists(ctx context.Context, name string) (bool, error) {
	return fileexists.Exists(l.Path(name))
}

func (l *localFs) URL(name string) string {
	return l.baseURL + "/" + name
}

func (l *localFs) Path(name string) string {
	return filepath.Join(l.root, filepath.FromSlash(name))
}
