package native

import (
	"context"
	"errors"
	"image"

	"github.com/disintegration/imaging"

	"github.com/jo-hoe/goimages/internal/engine"
)

var errNoPixels = errors.New("image has no pixel source")

// nativeImage is an 8-bit non-premultiplied RGBA raster. Grey images keep
// R=G=B and images without alpha keep A=255, so bands only changes how the
// pixels are interpreted and saved.
type nativeImage struct {
	pix  *image.NRGBA
	load func(ctx context.Context) (*image.NRGBA, error)

	width, height int
	bands         int
	space         engine.Interpretation
	premultiplied bool
	meta          engine.Metadata
}

func newImage(pix *image.NRGBA, bands int, meta engine.Metadata) *nativeImage {
	space := engine.InterpretationSRGB
	if bands <= 2 {
		space = engine.InterpretationBW
	}
	return &nativeImage{
		pix:    pix,
		width:  pix.Bounds().Dx(),
		height: pix.Bounds().Dy(),
		bands:  bands,
		space:  space,
		meta:   meta,
	}
}

// lazyImage reports the header dimensions and decodes on first pixel access.
func lazyImage(width, height, bands int, meta engine.Metadata, load func(ctx context.Context) (*image.NRGBA, error)) *nativeImage {
	img := &nativeImage{
		load:   load,
		width:  width,
		height: height,
		bands:  bands,
		space:  engine.InterpretationSRGB,
		meta:   meta,
	}
	if bands <= 2 {
		img.space = engine.InterpretationBW
	}
	return img
}

func (img *nativeImage) Width() int                            { return img.width }
func (img *nativeImage) Height() int                           { return img.height }
func (img *nativeImage) Bands() int                            { return img.bands }
func (img *nativeImage) HasAlpha() bool                        { return img.bands == 2 || img.bands == 4 }
func (img *nativeImage) Interpretation() engine.Interpretation { return img.space }
func (img *nativeImage) Metadata() engine.Metadata             { return img.meta.Clone() }

func (img *nativeImage) WithMetadata(m engine.Metadata) engine.Image {
	out := *img
	out.meta = m.Clone()
	return &out
}

// pixels decodes the image if needed.
func (img *nativeImage) pixels(ctx context.Context) (*image.NRGBA, error) {
	if img.pix != nil {
		return img.pix, nil
	}
	if img.load == nil {
		return nil, engine.NewError("pixels", errNoPixels)
	}
	if err := engine.CheckContext(ctx, "decode"); err != nil {
		return nil, err
	}

	pix, err := img.load(ctx)
	if err != nil {
		return nil, err
	}
	img.pix = pix
	img.load = nil
	img.width = pix.Bounds().Dx()
	img.height = pix.Bounds().Dy()
	return pix, nil
}

// derive returns a copy of img holding pix.
func (img *nativeImage) derive(pix *image.NRGBA) *nativeImage {
	out := *img
	out.pix = pix
	out.load = nil
	out.width = pix.Bounds().Dx()
	out.height = pix.Bounds().Dy()
	out.meta = img.meta.Clone()
	return &out
}

func (img *nativeImage) withBands(bands int) *nativeImage {
	img.bands = bands
	if bands <= 2 {
		img.space = engine.InterpretationBW
	} else if img.space == engine.InterpretationBW {
		img.space = engine.InterpretationSRGB
	}
	return img
}

// colorBands is the number of bands excluding alpha.
func (img *nativeImage) colorBands() int {
	if img.HasAlpha() {
		return img.bands - 1
	}
	return img.bands
}

// asNative unwraps an image created by this engine.
func asNative(op string, img engine.Image) (*nativeImage, error) {
	native, ok := img.(*nativeImage)
	if !ok {
		return nil, engine.NewError(op, errors.New("image was not created by the native engine"))
	}
	return native, nil
}

// toNRGBA converts any decoded image to a zero-origin NRGBA raster.
func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(src)
}

// mapPixels applies fn to every pixel of a copy of src.
func mapPixels(ctx context.Context, src *image.NRGBA, fn func(p []uint8)) (*image.NRGBA, error) {
	dst := imaging.Clone(src)
	width := dst.Rect.Dx()
	err := parallelRows(ctx, dst.Rect.Dy(), func(y int) {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+width*4]
		for x := 0; x < len(row); x += 4 {
			fn(row[x : x+4 : x+4])
		}
	})
	return dst, err
}

func clampUint8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
