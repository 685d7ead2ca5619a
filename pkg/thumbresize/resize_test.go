package thumbresize

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/function61/gokit/assert"
	"github.com/function61/kuvasto/pkg/kuvatypes"
	"github.com/function61/kuvasto/pkg/thumboption"
)

func TestFitDimensions(t *testing.T) {
	tcs := []struct {
		width        int
		height       int
		targetWidth  int
		targetHeight int
		expected     string
	}{
		{800, 600, 240, 240, "240x180"},
		{800, 600, 90, 100, "90x67"},
		{800, 600, 80, 90, "80x60"},
		{16, 16, 300, 533, "300x300"},
		{3264, 1836, 300, 533, "300x168"},
		{400, 200, 300, 533, "300x150"}, // 2:1 ratio
	}

	for _, tc := range tcs {
		t.Run(tc.expected, func(t *testing.T) {
			w, h := fitDimensions(tc.width, tc.height, tc.targetWidth, tc.targetHeight)

			assert.EqualString(t, fmt.Sprintf("%dx%d", w, h), tc.expected)
		})
	}
}

func TestTargetBoxWildcards(t *testing.T) {
	w, h, err := targetBox(800, 600, thumboption.Size{Width: 0, Height: 240})
	assert.Ok(t, err)
	assert.EqualString(t, fmt.Sprintf("%dx%d", w, h), "320x240")

	w, h, err = targetBox(800, 600, thumboption.Size{Width: 240, Height: 0})
	assert.Ok(t, err)
	assert.EqualString(t, fmt.Sprintf("%dx%d", w, h), "240x180")

	_, _, err = targetBox(800, 600, thumboption.Size{})
	assert.Assert(t, err != nil)
	assert.Assert(t, kuvatypes.IsSyntaxClass(err))
}

func TestRenderFitsWithoutCrop(t *testing.T) {
	rendered := renderHelper(t, testImage(800, 600), []string{"240x240"}, "jpg")

	// fit within the box: height follows the source's 4:3 aspect
	assert.Assert(t, rendered.Width == 240)
	assert.Assert(t, rendered.Height == 180)

	decodeDimensions(t, rendered, 240, 180)
}

func TestRenderCropsToExactBox(t *testing.T) {
	rendered := renderHelper(t, testImage(800, 600), []string{"240x240", "crop"}, "jpg")

	assert.Assert(t, rendered.Width == 240)
	assert.Assert(t, rendered.Height == 240)

	decodeDimensions(t, rendered, 240, 240)
}

func TestRenderWildcardWidth(t *testing.T) {
	rendered := renderHelper(t, testImage(800, 600), []string{"x240"}, "jpg")

	assert.Assert(t, rendered.Width == 320)
	assert.Assert(t, rendered.Height == 240)
}

func TestRenderBothWildcardsFails(t *testing.T) {
	opts, err := thumboption.Parse([]string{"x"})
	assert.Ok(t, err)

	_, err = Render(testImage(800, 600), opts, "jpg")

	assert.Assert(t, err != nil)
	assert.Assert(t, kuvatypes.IsSyntaxClass(err))
}

func TestRenderIsDeterministic(t *testing.T) {
	opts, err := thumboption.Parse([]string{"240x240", "sharpen", "crop", "quality=95"})
	assert.Ok(t, err)

	first, err := Render(testImage(800, 600), opts, "jpg")
	assert.Ok(t, err)

	second, err := Render(testImage(800, 600), opts, "jpg")
	assert.Ok(t, err)

	assert.Assert(t, bytes.Equal(first.Data, second.Data))
}

func TestRenderPngKeepsAlpha(t *testing.T) {
	transparent := image.NewNRGBA(image.Rect(0, 0, 100, 100)) // all pixels zero = fully transparent

	rendered := renderOptsHelper(t, transparent, []string{"50x50"}, "png")

	decoded, err := png.Decode(bytes.NewReader(rendered.Data))
	assert.Ok(t, err)

	_, _, _, alpha := decoded.At(10, 10).RGBA()
	assert.Assert(t, alpha == 0)
}

func TestRenderJpegFlattensAlpha(t *testing.T) {
	transparent := image.NewNRGBA(image.Rect(0, 0, 100, 100))

	rendered := renderOptsHelper(t, transparent, []string{"50x50"}, "jpg")

	decoded, err := jpeg.Decode(bytes.NewReader(rendered.Data))
	assert.Ok(t, err)

	// transparency flattened onto an opaque white background
	r, g, b, _ := decoded.At(10, 10).RGBA()
	assert.Assert(t, r>>8 > 250 && g>>8 > 250 && b>>8 > 250)
}

func testImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	return img
}

func renderHelper(t *testing.T, img image.Image, tokens []string, ext string) *Result {
	return renderOptsHelper(t, img, tokens, ext)
}

func renderOptsHelper(t *testing.T, img image.Image, tokens []string, ext string) *Result {
	opts, err := thumboption.Parse(tokens)
	assert.Ok(t, err)

	rendered, err := Render(img, opts, ext)
	assert.Ok(t, err)

	return rendered
}

func decodeDimensions(t *testing.T, rendered *Result, width int, height int) {
	decoded, _, err := image.Decode(bytes.NewReader(rendered.Data))
	assert.Ok(t, err)

	bounds := decoded.Bounds()
	assert.Assert(t, bounds.Dx() == width)
	assert.Assert(t, bounds.Dy() == height)
}
