package geometry

import (
	"math"

	"github.com/jo-hoe/goimages/internal/query"
)

// MaxDPR is the largest device pixel ratio honoured.
const MaxDPR = 8

// ShrinkParams describes a resize request.
type ShrinkParams struct {
	InputWidth   int
	InputHeight  int
	TargetWidth  int
	TargetHeight int
	Canvas       query.Canvas

	// WithoutEnlargement keeps both factors at or above 1.
	WithoutEnlargement bool

	// Swap is set when a 90 or 270 degree rotation is applied after resizing.
	Swap bool
}

// ResolveShrink returns the horizontal and vertical shrink factors. A factor
// above 1 reduces the axis, below 1 enlarges it.
func ResolveShrink(p ShrinkParams) (hshrink, vshrink float64) {
	inputWidth, inputHeight := p.InputWidth, p.InputHeight
	if p.Swap && p.Canvas != query.CanvasIgnoreAspect {
		inputWidth, inputHeight = inputHeight, inputWidth
	}

	hshrink, vshrink = 1.0, 1.0
	targetWidth := float64(p.TargetWidth)
	targetHeight := float64(p.TargetHeight)

	switch {
	case p.TargetWidth > 0 && p.TargetHeight > 0:
		hshrink = float64(inputWidth) / targetWidth
		vshrink = float64(inputHeight) / targetHeight

		switch p.Canvas {
		case query.CanvasCrop, query.CanvasMin:
			hshrink = math.Min(hshrink, vshrink)
			vshrink = hshrink
		case query.CanvasEmbed, query.CanvasMax:
			hshrink = math.Max(hshrink, vshrink)
			vshrink = hshrink
		case query.CanvasIgnoreAspect:
			if p.Swap {
				hshrink, vshrink = vshrink, hshrink
			}
		}
	case p.TargetWidth > 0:
		hshrink = float64(inputWidth) / targetWidth
		if p.Canvas != query.CanvasIgnoreAspect {
			vshrink = hshrink
		}
	case p.TargetHeight > 0:
		vshrink = float64(inputHeight) / targetHeight
		if p.Canvas != query.CanvasIgnoreAspect {
			hshrink = vshrink
		}
	}

	// never reduce an axis below one pixel
	hshrink = math.Min(hshrink, float64(inputWidth))
	vshrink = math.Min(vshrink, float64(inputHeight))

	if p.WithoutEnlargement {
		hshrink = math.Max(hshrink, 1.0)
		vshrink = math.Max(vshrink, 1.0)
	}
	return hshrink, vshrink
}

// CommonShrink is the least aggressive of both factors.
func CommonShrink(hshrink, vshrink float64) float64 {
	return math.Min(hshrink, vshrink)
}

// TargetSize returns w and h multiplied by dpr. Unset or invalid dimensions are 0.
func TargetSize(d *query.Directives) (width, height int) {
	inRange := func(v int) bool { return v > 0 && v <= query.MaxCoordinate }
	dpr := d.FloatIf(query.KeyDPR, func(f float64) bool { return f > 0 && f <= MaxDPR }, 1.0)

	if w := d.IntIf(query.KeyWidth, inRange, 0); w > 0 {
		width = int(math.Round(float64(w) * dpr))
	}
	if h := d.IntIf(query.KeyHeight, inRange, 0); h > 0 {
		height = int(math.Round(float64(h) * dpr))
	}
	return width, height
}

// Shrink resolves the shrink factors for an image of the given size using the
// resize directives. A pending 90 or 270 degree rotation (the derived "angle"
// key) swaps the axes unless the image is cropped before resizing.
func Shrink(d *query.Directives, inputWidth, inputHeight int) (hshrink, vshrink float64) {
	targetWidth, targetHeight := TargetSize(d)
	angle := d.Int(query.KeyAngle, 0)

	return ResolveShrink(ShrinkParams{
		InputWidth:         inputWidth,
		InputHeight:        inputHeight,
		TargetWidth:        targetWidth,
		TargetHeight:       targetHeight,
		Canvas:             d.Canvas(),
		WithoutEnlargement: d.Bool(query.KeyWithoutEnlarge, false),
		Swap:               (angle == 90 || angle == 270) && !d.Bool(query.KeyPrecrop, false),
	})
}
