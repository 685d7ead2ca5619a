package thumboption

import (
	"fmt"
	"testing"

	"github.com/function61/gokit/assert"
	"github.com/function61/kuvasto/pkg/kuvatypes"
)

func TestCanonicalIsOrderIndependent(t *testing.T) {
	permutations := [][]string{
		{"240x240", "crop", "sharpen", "quality=95"},
		{"240x240", "quality=95", "sharpen", "crop"},
		{"240x240", "sharpen", "quality=95", "crop"},
		{"240x240", "crop", "crop", "sharpen", "quality=95"}, // duplicates collapse
	}

	for i, tokens := range permutations {
		t.Run(fmt.Sprintf("permutation %d", i), func(t *testing.T) {
			opts, err := Parse(tokens)
			assert.Ok(t, err)

			assert.EqualString(t, opts.Canonical(), "240x240_q95_crop_sharpen")
		})
	}
}

func TestCanonical(t *testing.T) {
	tcs := []struct {
		tokens   []string
		expected string
	}{
		{[]string{"90x100"}, "90x100_q85"},
		{[]string{"80x90"}, "80x90_q85"},
		{[]string{"x240"}, "x240_q85"},
		{[]string{"240x"}, "240x_q85"},
		{[]string{"240x240", "quality=95"}, "240x240_q95"},
		{[]string{"240x240", "grayscale"}, "240x240_q85_grayscale"},
		{[]string{"80x80,crop,quality=95"}, "80x80_q95_crop"}, // legacy comma form
	}

	for _, tc := range tcs {
		t.Run(tc.expected, func(t *testing.T) {
			opts, err := Parse(tc.tokens)
			assert.Ok(t, err)

			assert.EqualString(t, opts.Canonical(), tc.expected)
		})
	}
}

func TestParseFailures(t *testing.T) {
	tcs := []struct {
		name   string
		tokens []string
	}{
		{"no tokens", []string{}},
		{"flag before size", []string{"crop", "240x240"}},
		{"unknown flag", []string{"240x200", "invalid"}},
		{"unknown key=value", []string{"240x200", "crop=1"}},
		{"quality not a number", []string{"240x200", "quality=notanumber"}},
		{"quality above range", []string{"240x200", "quality=101"}},
		{"quality below range", []string{"240x200", "quality=-1"}},
		{"size missing delimiter", []string{"1notasize2"}},
		{"size dimension garbage", []string{"90xfish"}},
		{"legacy comma with non-quality key", []string{"80x80,crop=1,quality=1"}},
		{"comma in later token", []string{"80x80", "crop,sharpen"}},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.tokens)

			assert.Assert(t, err != nil)
			assert.Assert(t, kuvatypes.IsSyntaxClass(err))
		})
	}
}

func TestParseSize(t *testing.T) {
	size, err := ParseSize("x240")
	assert.Ok(t, err)
	assert.Assert(t, size.Width == 0 && size.Height == 240)

	size, err = ParseSize("320x")
	assert.Ok(t, err)
	assert.Assert(t, size.Width == 320 && size.Height == 0)

	// both wildcards parse fine - the transform engine rejects them
	size, err = ParseSize("x")
	assert.Ok(t, err)
	assert.Assert(t, size.Width == 0 && size.Height == 0)

	assert.EqualString(t, FormatSize(Size{0, 240}), "x240")
	assert.EqualString(t, FormatSize(Size{90, 100}), "90x100")
}

func TestQualityDefaults(t *testing.T) {
	opts, err := Parse([]string{"240x240"})
	assert.Ok(t, err)
	assert.Assert(t, opts.Quality == 85)

	opts, err = Parse([]string{"240x240", "quality=0"})
	assert.Ok(t, err)
	assert.Assert(t, opts.Quality == 0)
}

func TestDerivativeName(t *testing.T) {
	assert.EqualString(t,
		DerivativeName("thumbs", "test.jpg", "240x240_q95_crop_sharpen", "jpg"),
		"thumbs/test.jpg.240x240_q95_crop_sharpen.jpg")

	assert.EqualString(t,
		DerivativeName("thumbs", "photos/cat.png", "x120_q85", "png"),
		"thumbs/photos/cat.png.x120_q85.png")
}

func TestTargetExtension(t *testing.T) {
	tcs := []struct {
		sourcePath string
		expected   string
	}{
		{"test.jpg", "jpg"},
		{"test.JPEG", "jpg"},
		{"test.png", "png"},
		{"anim.gif", "gif"},
		{"old.bmp", "bmp"},
		{"unknown.webp", "jpg"},
		{"noextension", "jpg"},
	}

	for _, tc := range tcs {
		t.Run(tc.sourcePath, func(t *testing.T) {
			assert.EqualString(t, TargetExtension(tc.sourcePath), tc.expected)
		})
	}
}

func TestFlags(t *testing.T) {
	opts, err := Parse([]string{"240x240", "sharpen", "crop"})
	assert.Ok(t, err)

	assert.Assert(t, opts.HasFlag("crop"))
	assert.Assert(t, opts.HasFlag("sharpen"))
	assert.Assert(t, !opts.HasFlag("grayscale"))

	// alphabetical regardless of input order
	flags := opts.Flags()
	assert.Assert(t, len(flags) == 2)
	assert.EqualString(t, flags[0], "crop")
	assert.EqualString(t, flags[1], "sharpen")
}
