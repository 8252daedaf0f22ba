// Package engine defines the boundary to the image operations engine: loading,
// saving and the functional pixel operations the pipeline composes.
package engine

import (
	"context"
	"image/color"
	"io"

	"github.com/jo-hoe/goimages/internal/stream"
)

// LoadOptions controls how a loader decodes a source.
type LoadOptions struct {
	// Page is the first page to load.
	Page int

	// Pages is the number of pages to load, -1 for all remaining pages.
	Pages int

	// Shrink is an integer JPEG shrink-on-load factor (1, 2, 4 or 8).
	Shrink int

	// Scale is a continuous scale for vector and WebP loaders, 0 when unset.
	Scale float64

	// Thumbnail loads the embedded thumbnail (HEIF).
	Thumbnail bool

	// FailOnError makes truncated or damaged input an error.
	FailOnError bool
}

// DefaultLoadOptions loads the first page at full resolution.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{Page: 0, Pages: 1, Shrink: 1}
}

// SaveOptions controls how an image is encoded.
type SaveOptions struct {
	Format ImageType

	Quality        int
	Interlace      bool
	OptimizeCoding bool

	// Compression is the zlib level for PNG.
	Compression int

	AdaptiveFiltering bool
	AlphaQuality      int
	Lossless          bool
	Effort            int

	// TiffCompression names the TIFF compression, e.g. "jpeg".
	TiffCompression string

	// AV1 selects the AV1 codec for AVIF.
	AV1 bool

	// FormatHint names the encoder format when Effort is not supported.
	FormatHint string

	PageHeight int
	Loop       int
	Delay      []int
}

// Capabilities describes optional engine features.
type Capabilities struct {
	// GifEffort is set when the GIF saver accepts an effort level.
	GifEffort bool
}

// Engine loads, creates and saves images.
type Engine interface {
	// FindLoader sniffs the source and names the loader able to read it.
	FindLoader(src *stream.Source) (string, error)
	// Load reads the image header. Pixels are decoded on first use, so
	// size checks on the returned image are cheap.
	Load(ctx context.Context, src *stream.Source, loader string, opts LoadOptions) (Image, error)
	// LoadSVG renders an SVG document at the given size.
	LoadSVG(ctx context.Context, svg []byte, width, height int) (Image, error)
	// NewSolid returns a width x height image filled with c.
	NewSolid(width, height, bands int, c color.NRGBA) Image
	// JoinPages stacks images of equal size vertically.
	JoinPages(ctx context.Context, pages []Image) (Image, error)
	// Save encodes img to w.
	Save(ctx context.Context, img Image, opts SaveOptions, w io.Writer) error
	// HasSaver reports whether the engine can encode t.
	HasSaver(t ImageType) bool
	Capabilities() Capabilities
	// ClearState releases per-request engine state. It is called after every request.
	ClearState()
}

// Image is an immutable image handle. Operations return a new handle and
// leave the receiver unchanged.
type Image interface {
	Width() int
	Height() int
	Bands() int
	HasAlpha() bool
	Interpretation() Interpretation
	Metadata() Metadata
	WithMetadata(m Metadata) Image

	Resize(ctx context.Context, hscale, vscale float64) (Image, error)
	ExtractArea(ctx context.Context, left, top, width, height int) (Image, error)
	Embed(ctx context.Context, left, top, width, height int, background color.NRGBA) (Image, error)
	SmartCrop(ctx context.Context, width, height int, interesting Interesting) (Image, error)
	// FindTrim returns the bounding box of pixels that differ from background
	// by more than threshold. An empty box means nothing differs.
	FindTrim(ctx context.Context, threshold float64, background color.NRGBA) (left, top, width, height int, err error)
	// Point returns the pixel at (x, y).
	Point(ctx context.Context, x, y int) (color.NRGBA, error)
	Rot(ctx context.Context, angle Angle) (Image, error)
	// Rotate turns the image clockwise by degrees, filling the corners with background.
	Rotate(ctx context.Context, degrees float64, background color.NRGBA) (Image, error)
	Flip(ctx context.Context, direction Direction) (Image, error)

	Colourspace(ctx context.Context, space Interpretation) (Image, error)
	Premultiply(ctx context.Context) (Image, error)
	Unpremultiply(ctx context.Context) (Image, error)
	// Linear computes a*in+b per color band. The alpha band is untouched.
	Linear(ctx context.Context, a, b []float64) (Image, error)
	// Gamma raises normalised values to the power 1/exponent.
	Gamma(ctx context.Context, exponent float64) (Image, error)
	Sharpen(ctx context.Context, sigma, flat, jagged float64) (Image, error)
	// Conv3x3 convolves with kernel, divides by scale and adds offset.
	Conv3x3(ctx context.Context, kernel [9]float64, scale, offset float64) (Image, error)
	GaussBlur(ctx context.Context, sigma float64) (Image, error)
	BoxBlur(ctx context.Context, radius int) (Image, error)
	Recomb(ctx context.Context, matrix [3][3]float64) (Image, error)
	Invert(ctx context.Context) (Image, error)
	// MapLUT maps the first band through lut to three color bands.
	MapLUT(ctx context.Context, lut *[256][3]uint8) (Image, error)
	// TintLAB keeps the lightness and replaces the chroma with (a, b).
	TintLAB(ctx context.Context, a, b float64) (Image, error)
	// Modulate scales lightness and chroma and rotates the hue in degrees.
	Modulate(ctx context.Context, brightness, saturation, hue float64) (Image, error)

	Flatten(ctx context.Context, background color.NRGBA) (Image, error)
	Composite(ctx context.Context, overlay Image, mode BlendMode, x, y int) (Image, error)
	// SplitAlpha separates the color bands from the alpha band.
	SplitAlpha(ctx context.Context) (colors Image, alpha Image, err error)
	JoinAlpha(ctx context.Context, alpha Image) (Image, error)
	AddAlpha(ctx context.Context) (Image, error)
}
