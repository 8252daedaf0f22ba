package enginetest

import (
	"context"
	"errors"
	"image/color"
	"math"

	"github.com/jo-hoe/goimages/internal/engine"
)

var errBadArea = errors.New("bad extract area")

// Image tracks only the size, bands and metadata of an image.
type Image struct {
	engine        *Engine
	width, height int
	bands         int
	space         engine.Interpretation
	premultiplied bool
	meta          engine.Metadata
}

// NewImage returns a standalone image, e.g. to feed a single stage.
func NewImage(e *Engine, width, height, bands int) *Image {
	return &Image{engine: e, width: width, height: height, bands: bands, meta: engine.Metadata{Pages: 1, PageHeight: height}}
}

func (img *Image) derive(width, height int) *Image {
	out := *img
	out.width = width
	out.height = height
	out.meta = img.meta.Clone()
	return &out
}

func (img *Image) op(name string, width, height int) *Image {
	img.engine.record(name)
	return img.derive(width, height)
}

// Premultiplied reports whether Premultiply was applied last.
func (img *Image) Premultiplied() bool { return img.premultiplied }

func (img *Image) Width() int                            { return img.width }
func (img *Image) Height() int                           { return img.height }
func (img *Image) Bands() int                            { return img.bands }
func (img *Image) HasAlpha() bool                        { return img.bands == 2 || img.bands == 4 }
func (img *Image) Interpretation() engine.Interpretation { return img.space }
func (img *Image) Metadata() engine.Metadata             { return img.meta.Clone() }

func (img *Image) WithMetadata(m engine.Metadata) engine.Image {
	out := img.derive(img.width, img.height)
	out.meta = m.Clone()
	return out
}

func (img *Image) same(name string) (engine.Image, error) {
	return img.op(name, img.width, img.height), nil
}

func (img *Image) Resize(_ context.Context, hscale, vscale float64) (engine.Image, error) {
	width := max(1, int(math.Round(float64(img.width)*hscale)))
	height := max(1, int(math.Round(float64(img.height)*vscale)))
	return img.op("resize", width, height), nil
}

func (img *Image) ExtractArea(_ context.Context, left, top, width, height int) (engine.Image, error) {
	if left < 0 || top < 0 || width <= 0 || height <= 0 || left+width > img.width || top+height > img.height {
		return nil, engine.NewError("extract_area", errBadArea)
	}
	return img.op("extract_area", width, height), nil
}

func (img *Image) Embed(_ context.Context, _, _, width, height int, _ color.NRGBA) (engine.Image, error) {
	return img.op("embed", width, height), nil
}

func (img *Image) SmartCrop(_ context.Context, width, height int, _ engine.Interesting) (engine.Image, error) {
	return img.op("smartcrop", min(width, img.width), min(height, img.height)), nil
}

// FindTrim reports the engine's TrimArea.
func (img *Image) FindTrim(_ context.Context, _ float64, _ color.NRGBA) (int, int, int, int, error) {
	img.engine.record("find_trim")
	if r := img.engine.TrimArea; !r.Empty() {
		return r.Min.X, r.Min.Y, r.Dx(), r.Dy(), nil
	}
	return 0, 0, img.width, img.height, nil
}

// Point returns the engine's Background color everywhere.
func (img *Image) Point(_ context.Context, _, _ int) (color.NRGBA, error) {
	return img.engine.Background, nil
}

func (img *Image) Rot(_ context.Context, angle engine.Angle) (engine.Image, error) {
	if angle == engine.D90 || angle == engine.D270 {
		return img.op("rot", img.height, img.width), nil
	}
	return img.same("rot")
}

func (img *Image) Rotate(_ context.Context, degrees float64, _ color.NRGBA) (engine.Image, error) {
	rad := degrees * math.Pi / 180
	sin, cos := math.Abs(math.Sin(rad)), math.Abs(math.Cos(rad))
	width := int(math.Ceil(float64(img.width)*cos + float64(img.height)*sin))
	height := int(math.Ceil(float64(img.width)*sin + float64(img.height)*cos))
	return img.op("rotate", width, height), nil
}

func (img *Image) Flip(_ context.Context, _ engine.Direction) (engine.Image, error) {
	return img.same("flip")
}

func (img *Image) Colourspace(_ context.Context, space engine.Interpretation) (engine.Image, error) {
	out := img.op("colourspace", img.width, img.height)
	out.space = space
	if space == engine.InterpretationBW {
		out.bands = img.bands - colorBands(img) + 1
	} else {
		out.bands = img.bands - colorBands(img) + 3
	}
	return out, nil
}

func (img *Image) Premultiply(_ context.Context) (engine.Image, error) {
	out := img.op("premultiply", img.width, img.height)
	out.premultiplied = true
	return out, nil
}

func (img *Image) Unpremultiply(_ context.Context) (engine.Image, error) {
	out := img.op("unpremultiply", img.width, img.height)
	out.premultiplied = false
	return out, nil
}

func (img *Image) Linear(_ context.Context, _, _ []float64) (engine.Image, error) {
	return img.same("linear")
}

func (img *Image) Gamma(_ context.Context, _ float64) (engine.Image, error) {
	return img.same("gamma")
}

func (img *Image) Sharpen(_ context.Context, _, _, _ float64) (engine.Image, error) {
	return img.same("sharpen")
}

func (img *Image) Conv3x3(_ context.Context, _ [9]float64, _, _ float64) (engine.Image, error) {
	return img.same("conv")
}

func (img *Image) GaussBlur(_ context.Context, _ float64) (engine.Image, error) {
	return img.same("gaussblur")
}

func (img *Image) BoxBlur(_ context.Context, _ int) (engine.Image, error) {
	return img.same("boxblur")
}

func (img *Image) Recomb(_ context.Context, _ [3][3]float64) (engine.Image, error) {
	out := img.op("recomb", img.width, img.height)
	out.bands = img.bands - colorBands(img) + 3
	return out, nil
}

func (img *Image) Invert(_ context.Context) (engine.Image, error) {
	return img.same("invert")
}

func (img *Image) MapLUT(_ context.Context, _ *[256][3]uint8) (engine.Image, error) {
	out := img.op("maplut", img.width, img.height)
	out.bands = img.bands - colorBands(img) + 3
	return out, nil
}

func (img *Image) TintLAB(_ context.Context, _, _ float64) (engine.Image, error) {
	return img.same("tint")
}

func (img *Image) Modulate(_ context.Context, _, _, _ float64) (engine.Image, error) {
	return img.same("modulate")
}

func (img *Image) Flatten(_ context.Context, _ color.NRGBA) (engine.Image, error) {
	out := img.op("flatten", img.width, img.height)
	if img.HasAlpha() {
		out.bands--
	}
	return out, nil
}

func (img *Image) Composite(_ context.Context, _ engine.Image, mode engine.BlendMode, _, _ int) (engine.Image, error) {
	out := img.op("composite", img.width, img.height)
	if mode == engine.BlendDestIn && !img.HasAlpha() {
		out.bands++
	}
	return out, nil
}

func (img *Image) SplitAlpha(_ context.Context) (engine.Image, engine.Image, error) {
	if !img.HasAlpha() {
		return img, nil, nil
	}
	colors := img.op("extract_band", img.width, img.height)
	colors.bands--
	alpha := img.derive(img.width, img.height)
	alpha.bands = 1
	return colors, alpha, nil
}

func (img *Image) JoinAlpha(_ context.Context, _ engine.Image) (engine.Image, error) {
	out := img.op("bandjoin", img.width, img.height)
	out.bands = colorBands(img) + 1
	return out, nil
}

func (img *Image) AddAlpha(_ context.Context) (engine.Image, error) {
	if img.HasAlpha() {
		return img, nil
	}
	out := img.op("addalpha", img.width, img.height)
	out.bands++
	return out, nil
}

func colorBands(img *Image) int {
	if img.HasAlpha() {
		return img.bands - 1
	}
	return img.bands
}
