package query

import (
	"fmt"
	"strings"
)

// Position selects where an image is anchored when cropping or embedding.
type Position int

const (
	PositionCenter Position = iota
	PositionTop
	PositionRight
	PositionBottom
	PositionLeft
	PositionTopRight
	PositionBottomRight
	PositionBottomLeft
	PositionTopLeft
	PositionEntropy
	PositionAttention
	PositionFocal
)

var positionNames = map[string]Position{
	"center":       PositionCenter,
	"centre":       PositionCenter,
	"top":          PositionTop,
	"t":            PositionTop,
	"right":        PositionRight,
	"r":            PositionRight,
	"bottom":       PositionBottom,
	"b":            PositionBottom,
	"left":         PositionLeft,
	"l":            PositionLeft,
	"top-right":    PositionTopRight,
	"right-top":    PositionTopRight,
	"bottom-right": PositionBottomRight,
	"right-bottom": PositionBottomRight,
	"bottom-left":  PositionBottomLeft,
	"left-bottom":  PositionBottomLeft,
	"top-left":     PositionTopLeft,
	"left-top":     PositionTopLeft,
	"entropy":      PositionEntropy,
	"attention":    PositionAttention,
	"focal":        PositionFocal,
}

// ParsePosition parses an alignment. Deprecated "crop-X-Y" and "focal-X-Y"
// forms map to PositionFocal.
func ParsePosition(value string) (Position, error) {
	if p, ok := positionNames[value]; ok {
		return p, nil
	}
	if strings.HasPrefix(value, "crop-") || strings.HasPrefix(value, "focal-") {
		return PositionFocal, nil
	}
	return PositionCenter, fmt.Errorf("%w: unknown position %q", ErrInvalidValue, value)
}

// Canvas is the fit mode used when both a width and a height are requested.
type Canvas int

const (
	// CanvasMax fits inside the target ("inside").
	CanvasMax Canvas = iota
	// CanvasCrop covers the target and crops the overflow ("cover").
	CanvasCrop
	// CanvasMin covers the target without cropping ("outside").
	CanvasMin
	// CanvasEmbed fits inside and pads to the target ("contain").
	CanvasEmbed
	// CanvasIgnoreAspect stretches to the target ("fill").
	CanvasIgnoreAspect
)

var canvasNames = map[string]Canvas{
	"inside":     CanvasMax,
	"outside":    CanvasMin,
	"cover":      CanvasCrop,
	"contain":    CanvasEmbed,
	"fill":       CanvasIgnoreAspect,
	"fit":        CanvasMax,
	"fitup":      CanvasMax,
	"square":     CanvasCrop,
	"squaredown": CanvasCrop,
	"absolute":   CanvasIgnoreAspect,
	"letterbox":  CanvasEmbed,
}

// ParseCanvas parses a fit mode including its deprecated spellings.
func ParseCanvas(value string) (Canvas, error) {
	if c, ok := canvasNames[value]; ok {
		return c, nil
	}
	return CanvasMax, fmt.Errorf("%w: unknown fit %q", ErrInvalidValue, value)
}

// FilterType is an effect applied by the filter stage.
type FilterType int

const (
	FilterNone FilterType = iota
	FilterGreyscale
	FilterSepia
	FilterDuotone
	FilterNegate
)

var filterNames = map[string]FilterType{
	"greyscale": FilterGreyscale,
	"grayscale": FilterGreyscale,
	"sepia":     FilterSepia,
	"duotone":   FilterDuotone,
	"negate":    FilterNegate,
}

func ParseFilterType(value string) (FilterType, error) {
	if f, ok := filterNames[value]; ok {
		return f, nil
	}
	return FilterNone, fmt.Errorf("%w: unknown filter %q", ErrInvalidValue, value)
}

// MaskType is a parametric shape used by the mask stage.
type MaskType int

const (
	MaskCircle MaskType = iota
	MaskEllipse
	MaskTriangle
	MaskTriangle180
	MaskPentagon
	MaskPentagon180
	MaskHexagon
	MaskSquare
	MaskStar
	MaskHeart
)

var maskNames = map[string]MaskType{
	"circle":       MaskCircle,
	"ellipse":      MaskEllipse,
	"triangle":     MaskTriangle,
	"triangle-180": MaskTriangle180,
	"pentagon":     MaskPentagon,
	"pentagon-180": MaskPentagon180,
	"hexagon":      MaskHexagon,
	"square":       MaskSquare,
	"star":         MaskStar,
	"heart":        MaskHeart,
}

func (m MaskType) String() string {
	for name, t := range maskNames {
		if t == m {
			return name
		}
	}
	return "unknown"
}

func ParseMaskType(value string) (MaskType, error) {
	if m, ok := maskNames[value]; ok {
		return m, nil
	}
	return MaskCircle, fmt.Errorf("%w: unknown mask %q", ErrInvalidValue, value)
}

// Output is the requested output format.
type Output int

const (
	OutputOrigin Output = iota
	OutputJpeg
	OutputPng
	OutputWebp
	OutputAvif
	OutputTiff
	OutputGif
	OutputJson
)

var outputNames = map[string]Output{
	"origin": OutputOrigin,
	"jpg":    OutputJpeg,
	"jpeg":   OutputJpeg,
	"png":    OutputPng,
	"webp":   OutputWebp,
	"avif":   OutputAvif,
	"tiff":   OutputTiff,
	"tif":    OutputTiff,
	"gif":    OutputGif,
	"json":   OutputJson,
}

func ParseOutput(value string) (Output, error) {
	if o, ok := outputNames[value]; ok {
		return o, nil
	}
	return OutputOrigin, fmt.Errorf("%w: unknown output %q", ErrInvalidValue, value)
}

func (o Output) String() string {
	switch o {
	case OutputJpeg:
		return "jpg"
	case OutputPng:
		return "png"
	case OutputWebp:
		return "webp"
	case OutputAvif:
		return "avif"
	case OutputTiff:
		return "tiff"
	case OutputGif:
		return "gif"
	case OutputJson:
		return "json"
	default:
		return "origin"
	}
}
