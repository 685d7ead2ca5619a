// Orchestrates thumbnail generation: canonicalize options, consult the cache,
// render + persist on a miss.
package thumbnailer

import (
	"bytes"
	"context"
	"log"
	"time"

	"github.com/disintegration/imageorient"
	"github.com/function61/gokit/logex"
	"github.com/function61/kuvasto/pkg/kuvatypes"
	"github.com/function61/kuvasto/pkg/thumbcache"
	"github.com/function61/kuvasto/pkg/thumboption"
	"github.com/function61/kuvasto/pkg/thumbresize"
	"github.com/function61/kuvasto/pkg/thumbstorage"
)

// explicit config instead of process-global settings, so tests and embedders can
// run several differently-configured thumbnailers side by side
type Config struct {
	Subdir string // derivatives live under this storage subdirectory. default "thumbs"
	Debug  bool   // surface source/storage errors instead of degrading quietly
}

type Thumbnailer struct {
	conf     Config
	storage  thumbstorage.Storage
	cache    *thumbcache.Store
	genLocks *generationLocks
	logl     *logex.Leveled
}

func New(conf Config, storage thumbstorage.Storage, cache *thumbcache.Store, logger *log.Logger) *Thumbnailer {
	if conf.Subdir == "" {
		conf.Subdir = "thumbs"
	}

	return &Thumbnailer{
		conf:     conf,
		storage:  storage,
		cache:    cache,
		genLocks: newGenerationLocks(),
		logl:     logex.Levels(logex.NonNil(logger)),
	}
}

func (t *Thumbnailer) Storage() thumbstorage.Storage { return t.storage }

func (t *Thumbnailer) Debug() bool { return t.conf.Debug }

// returns the cached derivative or creates one. errors: syntax class on malformed
// options (always), source class when the original is missing/undecodable, render
// class on encode trouble.
func (t *Thumbnailer) GetThumbnail(ctx context.Context, sourcePath string, optionTokens []string) (*kuvatypes.Thumbnail, error) {
	opts, err := thumboption.Parse(optionTokens)
	if err != nil {
		return nil, err
	}

	return t.Generate(ctx, sourcePath, opts)
}

func (t *Thumbnailer) Generate(ctx context.Context, sourcePath string, opts *thumboption.Options) (*kuvatypes.Thumbnail, error) {
	canonical := opts.Canonical()

	if hit, err := t.cache.Lookup(ctx, sourcePath, canonical); err != nil || hit != nil {
		return hit, err
	}

	// one render per cache key at a time. racing generators would converge on
	// byte-identical output anyway (rendering is deterministic), this just avoids
	// burning CPU on redundant work.
	unlock := t.genLocks.Lock(sourcePath + "\x00" + canonical)
	defer unlock()

	// someone else may have generated it while we waited for the lock
	if hit, err := t.cache.Lookup(ctx, sourcePath, canonical); err != nil || hit != nil {
		return hit, err
	}

	source, err := t.storage.Open(ctx, sourcePath)
	if err != nil {
		return nil, kuvatypes.NewSourceError(sourcePath, err)
	}
	defer source.Close()

	// imageorient handles JPEGs whose EXIF says "you should rotate this image"
	orig, _, err := imageorient.Decode(source)
	if err != nil {
		return nil, kuvatypes.NewSourceError(sourcePath, err)
	}

	ext := thumboption.TargetExtension(sourcePath)

	rendered, err := thumbresize.Render(orig, opts, ext)
	if err != nil {
		return nil, err
	}

	derivativePath := thumboption.DerivativeName(t.conf.Subdir, sourcePath, canonical, ext)

	if err := t.storage.Save(ctx, derivativePath, bytes.NewReader(rendered.Data)); err != nil {
		return nil, err
	}

	thumb := &kuvatypes.Thumbnail{
		SourcePath: sourcePath,
		Options:    canonical,
		Path:       derivativePath,
		Width:      rendered.Width,
		Height:     rendered.Height,
		Created:    time.Now(),
	}

	if err := t.cache.Insert(thumb); err != nil {
		return nil, err
	}

	t.logl.Debug.Printf("generated %s", derivativePath)

	return thumb, nil
}

// public URL for a generated thumbnail
func (t *Thumbnailer) URL(thumb *kuvatypes.Thumbnail) string {
	return t.storage.URL(thumb.Path)
}
