package loader

import (
	"context"
	"testing"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/engine/enginetest"
	"github.com/jo-hoe/goimages/internal/query"
)

func TestJpegShrink(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "no target", query: "", want: 1},
		{name: "shrink 10", query: "w=100", want: 8},
		{name: "shrink 5", query: "w=200", want: 4},
		{name: "shrink exactly 4 is corrected", query: "w=250", want: 2},
		{name: "shrink 2.5 is corrected", query: "w=400", want: 1},
		{name: "slow mode needs twice the shrink", query: "w=200&fsol=false", want: 2},
		{name: "slow mode shrink 10", query: "w=100&fsol=0", want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JpegShrink(query.Parse(tt.query), 1000, 1000); got != tt.want {
				t.Errorf("Expected shrink %d, got %d", tt.want, got)
			}
		})
	}
}

func TestShrinkOnLoadJpeg(t *testing.T) {
	e := enginetest.New("jpegload_source", 1000, 800)
	p := NewPlanner(e, Limits{})
	d := query.Parse("w=100")

	img, in, err := p.Load(context.Background(), newSource(), d)
	if err != nil {
		t.Fatal(err)
	}
	shrunk, err := p.ShrinkOnLoad(context.Background(), in, img, d)
	if err != nil {
		t.Fatal(err)
	}
	if shrunk.Width() != 125 || shrunk.Height() != 100 {
		t.Errorf("Expected 125x100 after an 8x shrink, got %dx%d", shrunk.Width(), shrunk.Height())
	}
	if got := d.Int(query.KeyPageHeight, 0); got != 100 {
		t.Errorf("Expected page_height 100, got %d", got)
	}
}

func TestShrinkOnLoadSkipped(t *testing.T) {
	tests := []string{"", "w=100&trim", "w=100&gam=2.2", "w=2000"}
	for _, q := range tests {
		t.Run(q, func(t *testing.T) {
			e := enginetest.New("jpegload_source", 1000, 800)
			p := NewPlanner(e, Limits{})
			d := query.Parse(q)

			img, in, err := p.Load(context.Background(), newSource(), d)
			if err != nil {
				t.Fatal(err)
			}
			out, err := p.ShrinkOnLoad(context.Background(), in, img, d)
			if err != nil {
				t.Fatal(err)
			}
			if out != img || len(e.Loads()) != 1 {
				t.Errorf("Expected the image to be kept, got %d loads", len(e.Loads()))
			}
		})
	}
}

func TestShrinkOnLoadAfterTrim(t *testing.T) {
	e := enginetest.New("jpegload_source", 1000, 800)
	p := NewPlanner(e, Limits{})
	d := query.Parse("w=100")
	d.Update(query.KeyShrinkOnLoad, query.BoolValue(false))

	img, in, err := p.Load(context.Background(), newSource(), d)
	if err != nil {
		t.Fatal(err)
	}
	if out, _ := p.ShrinkOnLoad(context.Background(), in, img, d); out != img {
		t.Error("Expected shrink-on-load to be disabled")
	}
}

func TestShrinkOnLoadWebpOnlyReduces(t *testing.T) {
	e := enginetest.New("webpload_source", 400, 400)
	p := NewPlanner(e, Limits{})

	d := query.Parse("w=100")
	img, in, _ := p.Load(context.Background(), newSource(), d)
	out, err := p.ShrinkOnLoad(context.Background(), in, img, d)
	if err != nil {
		t.Fatal(err)
	}
	if out.Width() != 100 {
		t.Errorf("Expected a 0.25 scale load, got width %d", out.Width())
	}

	d = query.Parse("w=800&we=false")
	img, in, _ = p.Load(context.Background(), newSource(), d)
	if out, _ := p.ShrinkOnLoad(context.Background(), in, img, d); out != img {
		t.Error("Expected no upscaling through the loader")
	}
}

func TestShrinkOnLoadSvg(t *testing.T) {
	e := enginetest.New("svgload_source", 100, 50)
	p := NewPlanner(e, Limits{})
	d := query.Parse("w=400&we=false")

	img, in, _ := p.Load(context.Background(), newSource(), d)
	out, err := p.ShrinkOnLoad(context.Background(), in, img, d)
	if err != nil {
		t.Fatal(err)
	}
	if out.Width() != 400 || out.Height() != 200 {
		t.Errorf("Expected the svg rendered at 400x200, got %dx%d", out.Width(), out.Height())
	}
}

func TestDetectPyramid(t *testing.T) {
	pyramid := []enginetest.Page{{Width: 4000, Height: 3000}, {Width: 2000, Height: 1500}, {Width: 1003, Height: 748}, {Width: 500, Height: 375}, {Width: 250, Height: 187}}
	broken := []enginetest.Page{{Width: 4000, Height: 3000}, {Width: 2000, Height: 1500}, {Width: 900, Height: 750}, {Width: 500, Height: 375}}

	tests := []struct {
		name  string
		pages []enginetest.Page
		query string
		want  int
	}{
		{name: "level matching target", pages: pyramid, query: "w=500", want: 3},
		{name: "level above target", pages: pyramid, query: "w=600", want: 2},
		{name: "smallest level", pages: pyramid, query: "w=100", want: 4},
		{name: "broken pyramid", pages: broken, query: "w=100", want: -1},
		{name: "single page", pages: pyramid[:1], query: "w=100", want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := enginetest.New("tiffload_source", 0, 0)
			e.Pages = tt.pages
			p := NewPlanner(e, Limits{})
			in := &Input{Source: newSource(), Loader: e.Loader, Options: engine.DefaultLoadOptions()}

			got, err := p.DetectPyramid(context.Background(), in, query.Parse(tt.query), tt.pages[0].Width, tt.pages[0].Height)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Expected level %d, got %d", tt.want, got)
			}
		})
	}
}

func TestShrinkOnLoadHeifThumbnail(t *testing.T) {
	tests := []struct {
		name      string
		thumbnail enginetest.Page
		want      int
	}{
		{name: "thumbnail larger than target", thumbnail: enginetest.Page{Width: 320, Height: 240}, want: 320},
		{name: "thumbnail at target", thumbnail: enginetest.Page{Width: 160, Height: 120}, want: 4000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := enginetest.New("heifload_source", 4000, 3000)
			e.Thumbnail = &tt.thumbnail
			p := NewPlanner(e, Limits{})
			d := query.Parse("w=160")

			img, in, _ := p.Load(context.Background(), newSource(), d)
			out, err := p.ShrinkOnLoad(context.Background(), in, img, d)
			if err != nil {
				t.Fatal(err)
			}
			if out.Width() != tt.want {
				t.Errorf("Expected width %d, got %d", tt.want, out.Width())
			}
		})
	}
}
