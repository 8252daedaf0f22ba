package pipeline

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/geometry"
	"github.com/jo-hoe/goimages/internal/query"
)

// heart is drawn in a 100x100 box.
var heart = []struct {
	command string
	points  []float64
}{
	{"M", []float64{50, 30}},
	{"C", []float64{50, 27, 45, 15, 25, 15}},
	{"C", []float64{0, 15, 0, 42.5, 0, 42.5}},
	{"C", []float64{0, 60, 20, 77, 50, 95}},
	{"C", []float64{80, 77, 100, 60, 100, 42.5}},
	{"C", []float64{100, 42.5, 100, 15, 75, 15}},
	{"C", []float64{60, 15, 50, 27, 50, 30}},
}

// maskShape is an SVG element and the area it covers.
type maskShape struct {
	element string
	bounds  geometry.Rect
}

// newMaskShape centers the shape on a width x height image. Every shape but
// the ellipse fits the largest centered square.
func newMaskShape(mask query.MaskType, width, height int) maskShape {
	size := min(width, height)
	radius := size / 2
	midX := width / 2
	midY := height / 2
	square := geometry.Rect{Left: midX - radius, Top: midY - radius, Width: size, Height: size}

	var points int
	inner := float64(radius)
	initial := 0.0
	switch mask {
	case query.MaskEllipse:
		return maskShape{
			element: fmt.Sprintf(`<ellipse cx="%d" cy="%d" rx="%d" ry="%d"/>`, midX, midY, midX, midY),
			bounds:  geometry.Rect{Width: width, Height: height},
		}
	case query.MaskHeart:
		return maskShape{element: heartPath(square), bounds: square}
	case query.MaskTriangle:
		points = 3
	case query.MaskTriangle180:
		points = 3
		initial = math.Pi
	case query.MaskPentagon:
		points = 5
	case query.MaskPentagon180:
		points = 5
		initial = math.Pi
	case query.MaskHexagon:
		points = 6
	case query.MaskSquare:
		points = 4
		initial = math.Pi / 4
	case query.MaskStar:
		points = 5
		inner = float64(radius) * 0.382
	default:
		return maskShape{
			element: fmt.Sprintf(`<circle cx="%d" cy="%d" r="%d"/>`, midX, midY, radius),
			bounds:  square,
		}
	}
	return polygon(float64(midX), float64(midY), points, float64(radius), inner, initial)
}

// polygon walks the corners clockwise starting at initial radians from the
// top. A star alternates between the outer and inner radius.
func polygon(cx, cy float64, points int, outer, inner, initial float64) maskShape {
	corners := points
	star := inner != outer
	if star {
		corners *= 2
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	var path strings.Builder
	for i := range corners {
		r := outer
		if star && i%2 == 1 {
			r = inner
		}
		theta := initial + 2*math.Pi*float64(i)/float64(corners)
		x := cx + r*math.Sin(theta)
		y := cy - r*math.Cos(theta)

		command := "L"
		if i == 0 {
			command = "M"
		}
		fmt.Fprintf(&path, "%s%s %s ", command, formatFloat(x), formatFloat(y))

		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	path.WriteString("Z")

	left, top := int(math.Floor(minX)), int(math.Floor(minY))
	return maskShape{
		element: `<path d="` + path.String() + `"/>`,
		bounds: geometry.Rect{
			Left:   left,
			Top:    top,
			Width:  int(math.Ceil(maxX)) - left,
			Height: int(math.Ceil(maxY)) - top,
		},
	}
}

func heartPath(box geometry.Rect) string {
	scale := float64(box.Width) / 100
	var path strings.Builder
	for _, segment := range heart {
		path.WriteString(segment.command)
		for i := 0; i < len(segment.points); i += 2 {
			x := float64(box.Left) + segment.points[i]*scale
			y := float64(box.Top) + segment.points[i+1]*scale
			fmt.Fprintf(&path, "%s %s ", formatFloat(x), formatFloat(y))
		}
	}
	path.WriteString("Z")
	return `<path d="` + path.String() + `"/>`
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
}

func maskSVG(shape maskShape, width, height int) []byte {
	return fmt.Appendf(nil, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">%s</svg>`,
		width, height, width, height, shape.element)
}

// maskStage cuts the image to a shape.
type maskStage struct {
	engine engine.Engine
}

func newMaskStage(env *Environment) (Stage, error) {
	return &maskStage{engine: env.Engine}, nil
}

func (s *maskStage) Name() string {
	return StageMask
}

func (s *maskStage) Apply(ctx context.Context, img engine.Image, req *Request) (engine.Image, error) {
	d := req.Directives
	maskType, ok := d.Mask()
	if !ok {
		return img, nil
	}

	width := img.Width()
	height := pageHeight(img, d)
	multiPage := geometry.IsMultiPage(d)
	shape := newMaskShape(maskType, width, height)

	mask, err := s.engine.LoadSVG(ctx, maskSVG(shape, width, height), width, height)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s mask: %w", maskType, err)
	}
	if multiPage {
		if mask, err = replicatePages(ctx, s.engine, mask, img.Height()/height); err != nil {
			return nil, err
		}
	}

	out, err := img.Composite(ctx, mask, engine.BlendDestIn, 0, 0)
	if err != nil {
		return nil, err
	}

	if d.Bool(query.KeyMaskTrim, false) && !multiPage {
		area := clampRect(shape.bounds, width, height)
		if area.Width < width || area.Height < height {
			if out, err = out.ExtractArea(ctx, area.Left, area.Top, area.Width, area.Height); err != nil {
				return nil, err
			}
			d.Update(query.KeyPageHeight, query.IntValue(area.Height))
		}
	}

	hasAlpha := true
	if bg := d.Color(query.KeyMaskBackground, query.Transparent); !bg.IsTransparent() {
		if out, hasAlpha, err = blendBackground(ctx, s.engine, out, bg); err != nil {
			return nil, err
		}
	}
	d.Update(query.KeyHasAlpha, query.BoolValue(hasAlpha))
	return out, nil
}

func clampRect(r geometry.Rect, width, height int) geometry.Rect {
	left := min(max(r.Left, 0), width-1)
	top := min(max(r.Top, 0), height-1)
	return geometry.Rect{
		Left:   left,
		Top:    top,
		Width:  max(1, min(r.Left+r.Width, width)-left),
		Height: max(1, min(r.Top+r.Height, height)-top),
	}
}

func init() {
	mustRegister(StageMask, newMaskStage)
}
