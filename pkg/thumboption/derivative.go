package thumboption

import (
	"path"
	"strings"
)

// maps (source path, canonical options, extension) to the derivative's name in
// storage, e.g. "thumbs/test.jpg.240x240_q95_crop_sharpen.jpg"
func DerivativeName(subdir string, sourcePath string, canonicalOptions string, ext string) string {
	return path.Join(subdir, sourcePath) + "." + canonicalOptions + "." + ext
}

// encoded output format follows the source's format so transparency survives for
// formats that have it. unrecognized extensions fall back to JPEG.
func TargetExtension(sourcePath string) string {
	switch strings.ToLower(path.Ext(sourcePath)) {
	case ".jpg", ".jpeg":
		return "jpg"
	case ".png":
		return "png"
	case ".gif":
		return "gif"
	case ".bmp":
		return "bmp"
	default:
		return "jpg"
	}
}
