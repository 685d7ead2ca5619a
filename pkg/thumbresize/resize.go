// Applies a canonical option set to decoded pixel data: resize (aspect-fit or
// center-crop), flag filters, and mode-aware encode.
package thumbresize

// importing the encoders also registers their decoders, so sources in these
// formats decode transparently

import (
	"bytes"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/disintegration/gift"
	"github.com/function61/kuvasto/pkg/kuvatypes"
	"github.com/function61/kuvasto/pkg/thumboption"
	"golang.org/x/image/bmp"
)

type Result struct {
	Data   []byte
	Width  int // actual - differs from requested on one axis when fitting without crop
	Height int
}

// deterministic: same source pixels + same canonical options = byte-identical
// output
func Render(orig image.Image, opts *thumboption.Options, ext string) (*Result, error) {
	origBounds := orig.Bounds()

	targetWidth, targetHeight, err := targetBox(
		origBounds.Dx(),
		origBounds.Dy(),
		opts.Size)
	if err != nil {
		return nil, err
	}

	var resizeStep gift.Filter
	if opts.HasFlag("crop") {
		// scale up (preserving aspect) until the target box is covered, then
		// center-crop to the exact box
		resizeStep = gift.ResizeToFill(targetWidth, targetHeight, gift.LanczosResampling, gift.CenterAnchor)
	} else {
		// fit within the box, so the result can be smaller than requested on one axis
		fitWidth, fitHeight := fitDimensions(origBounds.Dx(), origBounds.Dy(), targetWidth, targetHeight)
		resizeStep = gift.Resize(fitWidth, fitHeight, gift.LanczosResampling)
	}

	pipeline := gift.New(append([]gift.Filter{resizeStep}, opts.Filters()...)...)

	thumb := image.NewNRGBA(pipeline.Bounds(origBounds))
	pipeline.Draw(thumb, orig)

	encoded, err := encode(thumb, ext, opts.Quality)
	if err != nil {
		return nil, kuvatypes.NewRenderError(err)
	}

	return &Result{
		Data:   encoded,
		Width:  thumb.Bounds().Dx(),
		Height: thumb.Bounds().Dy(),
	}, nil
}

// resolves wildcard dimensions against the source's aspect ratio
func targetBox(origWidth int, origHeight int, size thumboption.Size) (int, int, error) {
	width := size.Width
	height := size.Height

	switch {
	case width == 0 && height == 0:
		return 0, 0, kuvatypes.Configurationf("at least one dimension must be given")
	case width == 0:
		width = int(math.Round(float64(origWidth) * float64(height) / float64(origHeight)))
	case height == 0:
		height = int(math.Round(float64(origHeight) * float64(width) / float64(origWidth)))
	}

	return width, height, nil
}

func fitDimensions(width, height, targetWidth, targetHeight int) (int, int) {
	return fitDimensionsInternal(
		float64(width),
		float64(height),
		float64(targetWidth),
		float64(targetHeight))
}

func fitDimensionsInternal(width, height, targetWidth, targetHeight float64) (int, int) {
	ratioWidth := targetWidth / width
	ratioHeight := targetHeight / height

	ratio := math.Min(ratioWidth, ratioHeight)

	return int(width * ratio), int(height * ratio)
}

func encode(thumb image.Image, ext string, quality int) ([]byte, error) {
	output := &bytes.Buffer{}

	switch ext {
	case "png": // alpha channel survives
		if err := png.Encode(output, thumb); err != nil {
			return nil, err
		}
	case "gif":
		if err := gif.Encode(output, thumb, nil); err != nil {
			return nil, err
		}
	case "bmp":
		if err := bmp.Encode(output, flattenOpaque(thumb)); err != nil {
			return nil, err
		}
	default: // jpg. no transparency, so flatten onto an opaque background
		if err := jpeg.Encode(output, flattenOpaque(thumb), &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	}

	return output.Bytes(), nil
}

func flattenOpaque(img image.Image) *image.RGBA {
	flat := image.NewRGBA(img.Bounds())
	draw.Draw(flat, flat.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, img.Bounds().Min, draw.Over)
	return flat
}
