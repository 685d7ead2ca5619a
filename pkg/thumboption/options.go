// Parses raw thumbnail option tokens into a canonical, order-independent option set.
// The canonical string doubles as part of the derivative's filename, so it has to be
// deterministic: quality first, then flag names alphabetically.
package thumboption

import (
	"sort"
	"strconv"
	"strings"

	"github.com/function61/kuvasto/pkg/kuvatypes"
	"github.com/samber/lo"
)

const DefaultQuality = 85

// 0 means wildcard ("derive me from the other dimension and the source's aspect ratio")
type Size struct {
	Width  int
	Height int
}

type Options struct {
	Size    Size
	Quality int      // 0-100, JPEG-style
	flags   []string // sorted + deduplicated, all present in the flag registry
}

// tokens = exactly one size token ("240x240", "x240", ...) followed by zero or more
// flag names or key=value pairs. input ordering of the flags does not matter.
func Parse(tokens []string) (*Options, error) {
	if len(tokens) == 0 {
		return nil, kuvatypes.Syntaxf("no options given - at least a size is required")
	}

	// legacy single-token form: "80x80,crop,quality=95". accepted only when quality
	// is the only key that uses an equals sign.
	if strings.Contains(tokens[0], ",") {
		legacyParts := strings.Split(tokens[0], ",")

		for _, part := range legacyParts[1:] {
			if idx := strings.IndexByte(part, '='); idx != -1 && part[0:idx] != "quality" {
				return nil, kuvatypes.Syntaxf(
					"legacy comma-separated options may only use key=value for quality, got %q",
					part)
			}
		}

		tokens = append(legacyParts, tokens[1:]...)
	}

	for _, token := range tokens[1:] {
		if strings.Contains(token, ",") {
			return nil, kuvatypes.Syntaxf("unexpected comma in option %q", token)
		}
	}

	size, err := ParseSize(tokens[0])
	if err != nil {
		// covers both garbage sizes and a flag given before the size token
		return nil, err
	}

	quality := DefaultQuality
	flags := []string{}

	for _, token := range tokens[1:] {
		if key, value, isPair := strings.Cut(token, "="); isPair {
			if key != "quality" {
				return nil, kuvatypes.Syntaxf("unknown option %q (only quality takes a value)", key)
			}

			quality, err = parseQuality(value)
			if err != nil {
				return nil, err
			}

			continue
		}

		if _, known := registry[token]; !known {
			return nil, kuvatypes.Syntaxf("unknown option %q", token)
		}

		flags = append(flags, token)
	}

	flags = lo.Uniq(flags)
	sort.Strings(flags)

	return &Options{
		Size:    size,
		Quality: quality,
		flags:   flags,
	}, nil
}

// "240x240", "x240" (wildcard width), "240x" (wildcard height)
func ParseSize(token string) (Size, error) {
	width, height, found := strings.Cut(token, "x")
	if !found {
		return Size{}, kuvatypes.Syntaxf("size %q not in <width>x<height> form", token)
	}

	parseDimension := func(dim string) (int, error) {
		if dim == "" { // wildcard
			return 0, nil
		}

		num, err := strconv.Atoi(dim)
		if err != nil || num <= 0 {
			return 0, kuvatypes.Syntaxf("size %q: dimension %q is not a positive integer", token, dim)
		}

		return num, nil
	}

	widthNum, err := parseDimension(width)
	if err != nil {
		return Size{}, err
	}

	heightNum, err := parseDimension(height)
	if err != nil {
		return Size{}, err
	}

	return Size{Width: widthNum, Height: heightNum}, nil
}

// inverse of ParseSize. wildcards render as empty, e.g. Size{0, 240} => "x240"
func FormatSize(size Size) string {
	return dimensionString(size.Width) + "x" + dimensionString(size.Height)
}

func parseQuality(value string) (int, error) {
	quality, err := strconv.Atoi(value)
	if err != nil {
		return 0, kuvatypes.Syntaxf("quality %q is not an integer", value)
	}

	if quality < 0 || quality > 100 {
		return 0, kuvatypes.Syntaxf("quality %d outside range 0-100", quality)
	}

	return quality, nil
}

func (o *Options) HasFlag(name string) bool {
	for _, flag := range o.flags {
		if flag == name {
			return true
		}
	}

	return false
}

// alphabetical
func (o *Options) Flags() []string {
	return append([]string{}, o.flags...)
}

// deterministic serialization: set-equal option sets always yield the same string
// irrespective of input ordering. examples: "90x100_q85", "240x240_q95_crop_sharpen",
// "x240_q85" (wildcard width).
func (o *Options) Canonical() string {
	canonical := FormatSize(o.Size) + "_q" + strconv.Itoa(o.Quality)

	for _, flag := range o.flags {
		canonical += "_" + flag
	}

	return canonical
}

func dimensionString(dim int) string {
	if dim == 0 {
		return ""
	}

	return strconv.Itoa(dim)
}
