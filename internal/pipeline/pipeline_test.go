package pipeline

import (
	"context"
	"errors"
	"image"
	"slices"
	"strings"
	"testing"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/engine/enginetest"
	"github.com/jo-hoe/goimages/internal/loader"
	"github.com/jo-hoe/goimages/internal/query"
	"github.com/jo-hoe/goimages/internal/stream"
)

// run loads the scripted engine's image for q and runs the default pipeline.
func run(t *testing.T, e *enginetest.Engine, q string) (engine.Image, *query.Directives) {
	t.Helper()
	planner := loader.NewPlanner(e, loader.Limits{})
	p, err := New(&Environment{Engine: e, Loader: planner}, DefaultRegistry)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	d := query.Parse(q)
	img, in, err := planner.Load(context.Background(), stream.NewBufferSource([]byte("image")), d)
	if err != nil {
		t.Fatalf("Failed to load image: %v", err)
	}
	out, err := p.Run(context.Background(), img, &Request{Directives: d, Input: in})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return out, d
}

func checkSize(t *testing.T, img engine.Image, width, height int) {
	t.Helper()
	if img.Width() != width || img.Height() != height {
		t.Errorf("Expected %dx%d, got %dx%d", width, height, img.Width(), img.Height())
	}
}

func hasOp(e *enginetest.Engine, op string) bool {
	return slices.Contains(e.Ops(), op)
}

func TestRun_EmptyQueryIsNoOp(t *testing.T) {
	e := enginetest.New("pngload_source", 300, 200)
	e.Bands = 4

	out, _ := run(t, e, "")
	checkSize(t, out, 300, 200)
	if out.Bands() != 4 {
		t.Errorf("Expected 4 bands, got %d", out.Bands())
	}
	if ops := e.Ops(); len(ops) != 0 {
		t.Errorf("Expected no image operations, got %v", ops)
	}
}

func TestRun_CoverIsExactForAllAlignments(t *testing.T) {
	alignments := []string{
		"center", "top", "right", "bottom", "left", "top-right", "bottom-right",
		"bottom-left", "top-left", "entropy", "attention", "focal", "focal-20-80",
	}
	for _, a := range alignments {
		t.Run(a, func(t *testing.T) {
			e := enginetest.New("jpegload_source", 2725, 2225)
			out, _ := run(t, e, "w=300&h=300&fit=cover&a="+a)
			checkSize(t, out, 300, 300)
		})
	}
}

func TestRun_ShrinkOnLoadThenResize(t *testing.T) {
	e := enginetest.New("jpegload_source", 1000, 800)

	out, _ := run(t, e, "w=100")
	checkSize(t, out, 100, 80)

	loads := e.Loads()
	if len(loads) != 2 || loads[1].Shrink != 8 {
		t.Errorf("Expected a reload with shrink 8, got %+v", loads)
	}
}

func TestRun_Contain(t *testing.T) {
	e := enginetest.New("jpegload_source", 400, 200)

	out, d := run(t, e, "w=100&h=100&fit=contain&fsol=false")
	checkSize(t, out, 100, 100)
	if !hasOp(e, "embed") {
		t.Error("Expected the image to be embedded")
	}
	if out.Bands() != 3 || d.Bool(query.KeyHasAlpha, true) {
		t.Errorf("Expected an opaque black canvas, got %d bands", out.Bands())
	}

	e = enginetest.New("jpegload_source", 400, 200)
	out, d = run(t, e, "w=100&h=100&fit=contain&cbg=transparent")
	if out.Bands() != 4 || !d.Bool(query.KeyHasAlpha, false) {
		t.Errorf("Expected an alpha band for a transparent canvas, got %d bands", out.Bands())
	}
}

func TestRun_PremultipliedAroundResize(t *testing.T) {
	e := enginetest.New("pngload_source", 400, 200)
	e.Bands = 4

	out, d := run(t, e, "w=200")
	checkSize(t, out, 200, 100)
	if !hasOp(e, "premultiply") || !hasOp(e, "unpremultiply") {
		t.Errorf("Expected premultiply and unpremultiply, got %v", e.Ops())
	}
	if out.(*enginetest.Image).Premultiplied() || d.Bool(query.KeyPremultiplied, true) {
		t.Error("Expected the image to be unpremultiplied after embed")
	}
}

func TestRun_ExifOrientation(t *testing.T) {
	e := enginetest.New("jpegload_source", 200, 100)
	e.Meta.Orientation = 6

	out, d := run(t, e, "w=50&fsol=false")
	checkSize(t, out, 50, 100)
	if got := d.Int(query.KeyAngle, -1); got != 90 {
		t.Errorf("Expected angle 90, got %d", got)
	}
	if out.Metadata().Orientation != 0 {
		t.Error("Expected the orientation tag to be removed")
	}
}

func TestResolveRotationAndFlip(t *testing.T) {
	tests := []struct {
		name        string
		orientation int
		query       string
		angle       int
		flip, flop  bool
	}{
		{"no orientation", 0, "", 0, false, false},
		{"requested rotation", 0, "ro=270", 270, false, false},
		{"exif and request add up", 6, "ro=180", 270, false, false},
		{"odd request is left to rotation", 6, "ro=45", 90, false, false},
		{"exif flop", 2, "", 0, false, true},
		{"exif flop cancels requested flop", 2, "flop", 0, false, false},
		{"exif flip and requested flip", 7, "flip", 90, false, false},
		{"stacked pages are not rotated", 6, "n=2&flip", 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := enginetest.New("jpegload_source", 10, 10)
			img := enginetest.NewImage(e, 10, 10, 3).WithMetadata(engine.Metadata{Orientation: tt.orientation})
			d := query.Parse(tt.query)

			ResolveRotationAndFlip(img, d)
			if got := d.Int(query.KeyAngle, -1); got != tt.angle {
				t.Errorf("Expected angle %d, got %d", tt.angle, got)
			}
			if got := d.Bool(query.KeyFlip, false); got != tt.flip {
				t.Errorf("Expected flip %v, got %v", tt.flip, got)
			}
			if got := d.Bool(query.KeyFlop, false); got != tt.flop {
				t.Errorf("Expected flop %v, got %v", tt.flop, got)
			}

			// a second call keeps the resolved values
			d.Update(query.KeyRotate, query.IntValue(90))
			ResolveRotationAndFlip(img, d)
			if got := d.Int(query.KeyAngle, -1); got != tt.angle {
				t.Errorf("Expected angle to stay %d, got %d", tt.angle, got)
			}
		})
	}
}

func TestRun_MultiPage(t *testing.T) {
	newEngine := func() *enginetest.Engine {
		e := enginetest.New("gifload_source", 100, 50)
		e.Pages = []enginetest.Page{{Width: 100, Height: 50}, {Width: 100, Height: 50}, {Width: 100, Height: 50}}
		e.Bands = 4
		return e
	}

	out, d := run(t, newEngine(), "n=-1&w=50")
	checkSize(t, out, 50, 75)
	if got := d.Int(query.KeyPageHeight, 0); got != 25 {
		t.Errorf("Expected page height 25, got %d", got)
	}

	e := newEngine()
	out, d = run(t, e, "n=-1&w=50&h=20&fit=cover")
	checkSize(t, out, 50, 60)
	if got := d.Int(query.KeyPageHeight, 0); got != 20 {
		t.Errorf("Expected page height 20, got %d", got)
	}
	if !hasOp(e, "arrayjoin") {
		t.Error("Expected every page to be cropped separately")
	}

	out, _ = run(t, newEngine(), "n=-1&ro=45&cx=10&cw=50")
	checkSize(t, out, 50, 150)
}

func TestRun_Trim(t *testing.T) {
	e := enginetest.New("jpegload_source", 200, 100)
	e.TrimArea = image.Rect(10, 20, 110, 70)

	out, d := run(t, e, "trim=20&w=50")
	checkSize(t, out, 50, 25)
	if d.Bool(query.KeyShrinkOnLoad, true) {
		t.Error("Expected trim to disable shrink-on-load")
	}
	if len(e.Loads()) != 1 {
		t.Errorf("Expected a single load, got %d", len(e.Loads()))
	}
}

func TestRun_ColorStagesKeepAlpha(t *testing.T) {
	tests := []struct {
		query string
		op    string
	}{
		{"bri=10", "linear"},
		{"con=-20", "linear"},
		{"gam=2.2", "gamma"},
		{"mod=1.2,0.8,90", "modulate"},
		{"tint=f00", "tint"},
		{"filt=greyscale", "colourspace"},
		{"filt=sepia", "recomb"},
		{"filt=duotone", "maplut"},
		{"filt=negate", "invert"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			e := enginetest.New("pngload_source", 40, 30)
			e.Bands = 4

			out, _ := run(t, e, tt.query)
			if !hasOp(e, tt.op) {
				t.Errorf("Expected %s, got %v", tt.op, e.Ops())
			}
			if !hasOp(e, "extract_band") || !hasOp(e, "bandjoin") {
				t.Errorf("Expected the alpha band to be split and rejoined, got %v", e.Ops())
			}
			if !out.HasAlpha() {
				t.Error("Expected the alpha band to survive")
			}
		})
	}
}

func TestRun_Fallbacks(t *testing.T) {
	tests := []struct {
		query string
		op    string
	}{
		{"sharp", "conv"},
		{"sharp=20", "conv"},
		{"sharp=2", "sharpen"},
		{"blur", "boxblur"},
		{"blur=0.1", "boxblur"},
		{"blur=5", "gaussblur"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			e := enginetest.New("jpegload_source", 40, 30)
			run(t, e, tt.query)
			if !hasOp(e, tt.op) {
				t.Errorf("Expected %s, got %v", tt.op, e.Ops())
			}
		})
	}
}

func TestRun_Background(t *testing.T) {
	e := enginetest.New("pngload_source", 40, 30)
	e.Bands = 4
	out, d := run(t, e, "bg=white")
	if out.HasAlpha() || d.Bool(query.KeyHasAlpha, true) {
		t.Error("Expected an opaque background to flatten the image")
	}

	e = enginetest.New("pngload_source", 40, 30)
	e.Bands = 4
	out, d = run(t, e, "bg=80ffffff")
	if !hasOp(e, "composite") || !out.HasAlpha() || !d.Bool(query.KeyHasAlpha, false) {
		t.Errorf("Expected a translucent background to be composited, got %v", e.Ops())
	}

	e = enginetest.New("jpegload_source", 40, 30)
	run(t, e, "bg=white")
	if hasOp(e, "flatten") {
		t.Error("Expected an opaque image to be left alone")
	}
}

func TestRun_Mask(t *testing.T) {
	e := enginetest.New("jpegload_source", 200, 100)
	out, d := run(t, e, "mask=circle")
	checkSize(t, out, 200, 100)
	if !hasOp(e, "svgload") || out.Bands() != 4 || !d.Bool(query.KeyHasAlpha, false) {
		t.Errorf("Expected a masked image with alpha, got %d bands after %v", out.Bands(), e.Ops())
	}

	e = enginetest.New("jpegload_source", 200, 100)
	out, _ = run(t, e, "mask=circle&mtrim")
	checkSize(t, out, 100, 100)

	e = enginetest.New("jpegload_source", 200, 100)
	out, d = run(t, e, "mask=star&mbg=red")
	if out.HasAlpha() || d.Bool(query.KeyHasAlpha, true) {
		t.Error("Expected an opaque mask background to flatten the image")
	}
}

func TestRun_StageFailure(t *testing.T) {
	errBoom := errors.New("boom")
	registry := NewStageRegistry()
	for _, name := range stageNames() {
		factory := passFactory(name)
		if name == StageBlur {
			factory = func(*Environment) (Stage, error) {
				return &funcStage{name: name, apply: func(context.Context, engine.Image, *query.Directives) (engine.Image, error) {
					return nil, errBoom
				}}, nil
			}
		}
		if err := registry.Register(name, factory); err != nil {
			t.Fatal(err)
		}
	}

	e := enginetest.New("jpegload_source", 10, 10)
	p, err := New(&Environment{Engine: e}, registry)
	if err != nil {
		t.Fatal(err)
	}
	img := enginetest.NewImage(e, 10, 10, 3)
	_, err = p.Run(context.Background(), img, &Request{Directives: query.Parse("")})
	if !errors.Is(err, errBoom) {
		t.Fatalf("Expected the stage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "stage blur") {
		t.Errorf("Expected the failing stage in the error, got %q", err)
	}
}

func TestRun_MissingStage(t *testing.T) {
	_, err := New(&Environment{}, NewStageRegistry())
	if err == nil || !strings.Contains(err.Error(), "missing stages: "+StageTrim) {
		t.Errorf("Expected the missing stages in the error, got %v", err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	e := enginetest.New("jpegload_source", 10, 10)
	p, err := New(&Environment{Engine: e}, DefaultRegistry)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Run(ctx, enginetest.NewImage(e, 10, 10, 3), &Request{Directives: query.Parse("w=5")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
