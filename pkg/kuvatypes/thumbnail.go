// Core record types for kuvasto ("KUVA STOrage", thumbnail cache)
package kuvatypes

import (
	"time"
)

// cached derivative image's metadata. identified by (SourcePath, Options) - the
// derivative file itself lives in a storage backend at Path.
//
// a record whose file has vanished from storage is treated as a cache miss, never
// as corruption.
type Thumbnail struct {
	SourcePath string // relative path of the original in storage
	Options    string // canonical option string, e.g. "240x240_q95_crop_sharpen"
	Path       string // derivative's location in storage (includes the thumb subdir)
	Width      int    // actual width (can differ from requested when not cropping)
	Height     int
	Created    time.Time
}

// composite primary key for the cache. NUL separator because it cannot appear in
// either component (paths and canonical option strings are NUL-free).
func ThumbnailKey(sourcePath string, canonicalOptions string) []byte {
	return []byte(sourcePath + "\x00" + canonicalOptions)
}

func (t *Thumbnail) Key() []byte {
	return ThumbnailKey(t.SourcePath, t.Options)
}
