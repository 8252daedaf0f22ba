package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/engine/native"
	"github.com/jo-hoe/goimages/internal/loader"
	"github.com/jo-hoe/goimages/internal/query"
	"github.com/jo-hoe/goimages/internal/stream"
)

var (
	red   = color.NRGBA{255, 0, 0, 255}
	green = color.NRGBA{0, 255, 0, 255}
	blue  = color.NRGBA{0, 0, 255, 255}
	white = color.NRGBA{255, 255, 255, 255}
)

// stripes returns an image with vertical stripes of the given colors.
func stripes(width, height int, colors ...color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	stripe := width / len(colors)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, colors[min(x/stripe, len(colors)-1)])
		}
	}
	return img
}

func runNative(t *testing.T, src image.Image, q string) (*image.NRGBA, engine.Image, *query.Directives) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("Failed to encode source: %v", err)
	}

	e := native.New()
	planner := loader.NewPlanner(e, loader.Limits{LimitInputPixels: 71000000})
	p, err := New(&Environment{Engine: e, Loader: planner}, DefaultRegistry)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	ctx := context.Background()
	d := query.Parse(q)
	img, in, err := planner.Load(ctx, stream.NewBufferSource(buf.Bytes()), d)
	if err != nil {
		t.Fatalf("Failed to load image: %v", err)
	}
	out, err := p.Run(ctx, img, &Request{Directives: d, Input: in})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var encoded bytes.Buffer
	if err := e.Save(ctx, out, engine.SaveOptions{Format: engine.TypePng, Compression: 6}, &encoded); err != nil {
		t.Fatalf("Failed to save result: %v", err)
	}
	decoded, err := png.Decode(&encoded)
	if err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	result := image.NewNRGBA(decoded.Bounds())
	for y := 0; y < decoded.Bounds().Dy(); y++ {
		for x := 0; x < decoded.Bounds().Dx(); x++ {
			result.Set(x, y, decoded.At(x, y))
		}
	}
	return result, out, d
}

func closeTo(a, b color.NRGBA, tolerance int) bool {
	near := func(x, y uint8) bool {
		d := int(x) - int(y)
		return d >= -tolerance && d <= tolerance
	}
	return near(a.R, b.R) && near(a.G, b.G) && near(a.B, b.B) && near(a.A, b.A)
}

func TestNative_CoverTopLeft(t *testing.T) {
	src := stripes(800, 480, red, green, blue, white)

	result, _, _ := runNative(t, src, "w=320&h=240&fit=cover&a=top-left")
	if result.Bounds().Dx() != 320 || result.Bounds().Dy() != 240 {
		t.Fatalf("Expected 320x240, got %v", result.Bounds())
	}

	// the source is halved, so stripes are 100 pixels wide and the crop
	// keeps the first 320 columns
	samples := []struct {
		x    int
		want color.NRGBA
	}{
		{10, red},
		{90, red},
		{150, green},
		{250, blue},
		{310, white},
	}
	for _, s := range samples {
		if got := result.NRGBAAt(s.x, 120); !closeTo(got, s.want, 8) {
			t.Errorf("Expected %v at x=%d, got %v", s.want, s.x, got)
		}
	}
}

func TestNative_EmptyQuery(t *testing.T) {
	src := stripes(30, 20, color.NRGBA{10, 20, 30, 128}, blue)

	result, out, _ := runNative(t, src, "")
	if out.Width() != 30 || out.Height() != 20 || out.Bands() != 4 {
		t.Errorf("Expected 30x20 with 4 bands, got %dx%d with %d bands", out.Width(), out.Height(), out.Bands())
	}
	if got := result.NRGBAAt(0, 0); got != (color.NRGBA{10, 20, 30, 128}) {
		t.Errorf("Expected the pixels to be unchanged, got %v", got)
	}
}

func TestNative_Mask(t *testing.T) {
	src := stripes(40, 40, red)

	result, out, _ := runNative(t, src, "mask=circle")
	if !out.HasAlpha() {
		t.Fatal("Expected the masked image to have alpha")
	}
	if a := result.NRGBAAt(1, 1).A; a != 0 {
		t.Errorf("Expected a transparent corner, got alpha %d", a)
	}
	if got := result.NRGBAAt(20, 20); got != red {
		t.Errorf("Expected an opaque red center, got %v", got)
	}
}

func TestNative_Background(t *testing.T) {
	src := stripes(10, 10, color.NRGBA{0, 0, 0, 0})

	result, out, d := runNative(t, src, "bg=blue")
	if out.HasAlpha() || d.Bool(query.KeyHasAlpha, true) {
		t.Error("Expected the background to remove the alpha band")
	}
	if got := result.NRGBAAt(5, 5); got != blue {
		t.Errorf("Expected blue, got %v", got)
	}
}

func TestNative_Contain(t *testing.T) {
	src := stripes(200, 100, red)

	result, _, _ := runNative(t, src, "w=100&h=100&fit=contain&cbg=ffffff")
	if result.Bounds().Dx() != 100 || result.Bounds().Dy() != 100 {
		t.Fatalf("Expected 100x100, got %v", result.Bounds())
	}
	if got := result.NRGBAAt(50, 5); got != white {
		t.Errorf("Expected a white border, got %v", got)
	}
	if got := result.NRGBAAt(50, 50); !closeTo(got, red, 2) {
		t.Errorf("Expected a red center, got %v", got)
	}
}

func TestNative_Negate(t *testing.T) {
	src := stripes(10, 10, color.NRGBA{255, 0, 0, 200})

	result, _, _ := runNative(t, src, "filt=negate")
	if got := result.NRGBAAt(5, 5); got != (color.NRGBA{0, 255, 255, 200}) {
		t.Errorf("Expected inverted colors with the alpha kept, got %v", got)
	}
}

func TestNative_Rotate(t *testing.T) {
	src := stripes(30, 10, red, green, blue)

	result, _, _ := runNative(t, src, "ro=90")
	if result.Bounds().Dx() != 10 || result.Bounds().Dy() != 30 {
		t.Fatalf("Expected 10x30, got %v", result.Bounds())
	}
	// clockwise: the left stripe ends up on top
	if got := result.NRGBAAt(5, 2); got != red {
		t.Errorf("Expected red on top, got %v", got)
	}
}
