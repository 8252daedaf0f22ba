// Package geometry resolves crop rectangles, anchor positions and shrink
// factors from the Directive Map and the current image dimensions.
package geometry

import (
	"math"

	"github.com/jo-hoe/goimages/internal/query"
)

// Rect is an area in pixels.
type Rect struct {
	Left, Top, Width, Height int
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Point is a position expressed as fractions of a width and a height.
type Point struct {
	X, Y float64
}

// CenterPoint is the default focal point.
var CenterPoint = Point{X: 0.5, Y: 0.5}

// FocalPoint reads fpx and fpy, falling back to the center for values outside [0,1].
func FocalPoint(d *query.Directives) Point {
	inUnit := func(f float64) bool { return f >= 0 && f <= 1 }
	return Point{
		X: d.FloatIf(query.KeyFocalX, inUnit, CenterPoint.X),
		Y: d.FloatIf(query.KeyFocalY, inUnit, CenterPoint.Y),
	}
}

// IsMultiPage reports whether more than one page is stacked vertically.
func IsMultiPage(d *query.Directives) bool {
	return d.Int(query.KeyPages, 1) > 1
}

// ResolveCrop returns the rectangle described by cx, cy, cw and ch. Offsets
// default to 0 and sizes to the remaining boundary. With several pages the
// rectangle always spans the full height.
func ResolveCrop(d *query.Directives, imageWidth, imageHeight int) Rect {
	left := resolveOffset(d.Coordinate(query.KeyCropX), imageWidth)
	top := resolveOffset(d.Coordinate(query.KeyCropY), imageHeight)
	width := resolveLength(d.Coordinate(query.KeyCropWidth), imageWidth, left)
	height := resolveLength(d.Coordinate(query.KeyCropHeight), imageHeight, top)

	if IsMultiPage(d) {
		top = 0
		height = imageHeight
	}
	return Rect{Left: left, Top: top, Width: width, Height: height}
}

func resolveOffset(c query.Coordinate, dimension int) int {
	if !c.Valid() {
		return 0
	}
	return clamp(c.ToPixels(dimension), 0, dimension-1)
}

func resolveLength(c query.Coordinate, dimension, offset int) int {
	remaining := dimension - offset
	if !c.Valid() {
		return remaining
	}
	length := c.ToPixels(dimension)
	if length <= 0 {
		return remaining
	}
	return clamp(length, 1, remaining)
}

// CalculatePosition returns the offset of an out-sized window inside an
// in-sized image for a compass position. Entropy and attention fall back to
// the center, focal uses the focal point.
func CalculatePosition(inWidth, inHeight, outWidth, outHeight int, position query.Position, focal Point) (left, top int) {
	dx := inWidth - outWidth
	dy := inHeight - outHeight

	switch position {
	case query.PositionTop:
		return (dx + 1) / 2, 0
	case query.PositionRight:
		return dx, (dy + 1) / 2
	case query.PositionBottom:
		return (dx + 1) / 2, dy
	case query.PositionLeft:
		return 0, (dy + 1) / 2
	case query.PositionTopRight:
		return dx, 0
	case query.PositionBottomRight:
		return dx, dy
	case query.PositionBottomLeft:
		return 0, dy
	case query.PositionTopLeft:
		return 0, 0
	case query.PositionFocal:
		return int(math.Round(float64(dx) * focal.X)), int(math.Round(float64(dy) * focal.Y))
	default:
		return (dx + 1) / 2, (dy + 1) / 2
	}
}

// CalculateEmbedPosition returns where an in-sized image is placed on an
// out-sized canvas.
func CalculateEmbedPosition(inWidth, inHeight, outWidth, outHeight int, position query.Position, focal Point) (left, top int) {
	dx := outWidth - inWidth
	dy := outHeight - inHeight

	switch position {
	case query.PositionTop:
		return dx / 2, 0
	case query.PositionRight:
		return dx, dy / 2
	case query.PositionBottom:
		return dx / 2, dy
	case query.PositionLeft:
		return 0, dy / 2
	case query.PositionTopRight:
		return dx, 0
	case query.PositionBottomRight:
		return dx, dy
	case query.PositionBottomLeft:
		return 0, dy
	case query.PositionTopLeft:
		return 0, 0
	case query.PositionFocal:
		return int(math.Round(float64(dx) * focal.X)), int(math.Round(float64(dy) * focal.Y))
	default:
		return dx / 2, dy / 2
	}
}

// FocalCrop picks the window of the image that has the target's aspect ratio,
// is as large as the image allows and keeps the focal point at its relative
// position. It is used when the image is smaller than the target, so the
// window cannot simply be target-sized.
func FocalCrop(imageWidth, imageHeight, targetWidth, targetHeight int, focal Point) Rect {
	if targetWidth <= 0 || targetHeight <= 0 {
		return Rect{Width: imageWidth, Height: imageHeight}
	}

	factor := math.Min(float64(imageWidth)/float64(targetWidth), float64(imageHeight)/float64(targetHeight))
	width := clamp(int(math.Round(float64(targetWidth)*factor)), 1, imageWidth)
	height := clamp(int(math.Round(float64(targetHeight)*factor)), 1, imageHeight)

	left := int(math.Round(focal.X*float64(imageWidth) - float64(width)/2))
	top := int(math.Round(focal.Y*float64(imageHeight) - float64(height)/2))

	return Rect{
		Left:   clamp(left, 0, imageWidth-width),
		Top:    clamp(top, 0, imageHeight-height),
		Width:  width,
		Height: height,
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
