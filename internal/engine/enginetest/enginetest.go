// Package enginetest provides a scriptable engine that tracks image
// dimensions and records operations without touching pixels.
package enginetest

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"sync"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/stream"
)

// Page is the size of one page of the scripted source.
type Page struct {
	Width  int
	Height int
}

// Engine returns images with the scripted pages and records every call.
type Engine struct {
	Loader    string
	LoaderErr error
	LoadErr   error
	SaveErr   error

	Pages []Page
	Bands int
	Meta  engine.Metadata

	// Background is the color reported by Image.Point.
	Background color.NRGBA

	// TrimArea is the box reported by Image.FindTrim, the whole image when empty.
	TrimArea image.Rectangle

	// Thumbnail is the size returned when LoadOptions.Thumbnail is set.
	Thumbnail *Page

	Savers map[engine.ImageType]bool
	Caps   engine.Capabilities

	mu      sync.Mutex
	loads   []engine.LoadOptions
	ops     []string
	saves   []engine.SaveOptions
	cleared int
}

// New returns an engine serving a single width x height RGB page through loader.
func New(loader string, width, height int) *Engine {
	return &Engine{
		Loader: loader,
		Pages:  []Page{{Width: width, Height: height}},
		Bands:  3,
		Savers: map[engine.ImageType]bool{
			engine.TypeJpeg: true, engine.TypePng: true, engine.TypeWebp: true,
			engine.TypeAvif: true, engine.TypeTiff: true, engine.TypeGif: true,
		},
	}
}

func (e *Engine) record(op string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ops = append(e.ops, op)
}

// Loads returns the options of every Load call.
func (e *Engine) Loads() []engine.LoadOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]engine.LoadOptions(nil), e.loads...)
}

// Ops returns the names of the image operations performed so far.
func (e *Engine) Ops() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.ops...)
}

// Saves returns the options of every Save call.
func (e *Engine) Saves() []engine.SaveOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]engine.SaveOptions(nil), e.saves...)
}

// Cleared returns how often ClearState was called.
func (e *Engine) Cleared() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cleared
}

func (e *Engine) FindLoader(_ *stream.Source) (string, error) {
	if e.LoaderErr != nil {
		return "", e.LoaderErr
	}
	return e.Loader, nil
}

func (e *Engine) Load(ctx context.Context, _ *stream.Source, _ string, opts engine.LoadOptions) (engine.Image, error) {
	e.mu.Lock()
	e.loads = append(e.loads, opts)
	e.mu.Unlock()

	if e.LoadErr != nil {
		return nil, e.LoadErr
	}
	if err := engine.CheckContext(ctx, "load"); err != nil {
		return nil, err
	}

	first := max(0, opts.Page)
	if first >= len(e.Pages) {
		return nil, engine.NewDecodeError("load", fmt.Errorf("page %d out of range", first))
	}
	count := opts.Pages
	if count == -1 {
		count = len(e.Pages) - first
	}
	count = max(1, count)

	page := e.Pages[first]
	if opts.Thumbnail && e.Thumbnail != nil {
		page = *e.Thumbnail
	}
	width, height := page.Width, page.Height
	if shrink := opts.Shrink; shrink > 1 {
		width = (width + shrink - 1) / shrink
		height = (height + shrink - 1) / shrink
	}
	if opts.Scale > 0 {
		width = max(1, int(math.Round(float64(width)*opts.Scale)))
		height = max(1, int(math.Round(float64(height)*opts.Scale)))
	}

	meta := e.Meta.Clone()
	meta.Pages = len(e.Pages)
	meta.PageHeight = height
	return &Image{engine: e, width: width, height: height * count, bands: e.Bands, meta: meta}, nil
}

func (e *Engine) LoadSVG(_ context.Context, _ []byte, width, height int) (engine.Image, error) {
	e.record("svgload")
	return &Image{engine: e, width: width, height: height, bands: 4, meta: engine.Metadata{Format: engine.TypeSvg, Pages: 1, PageHeight: height}}, nil
}

func (e *Engine) NewSolid(width, height, bands int, _ color.NRGBA) engine.Image {
	e.record("black")
	return &Image{engine: e, width: width, height: height, bands: bands, meta: engine.Metadata{Pages: 1, PageHeight: height}}
}

func (e *Engine) JoinPages(_ context.Context, pages []engine.Image) (engine.Image, error) {
	e.record("arrayjoin")
	if len(pages) == 0 {
		return nil, engine.NewError("arrayjoin", fmt.Errorf("no pages"))
	}
	first := pages[0].(*Image)
	out := first.derive(first.width, first.height*len(pages))
	out.meta.PageHeight = first.height
	return out, nil
}

func (e *Engine) Save(_ context.Context, img engine.Image, opts engine.SaveOptions, w io.Writer) error {
	e.mu.Lock()
	e.saves = append(e.saves, opts)
	e.mu.Unlock()

	if e.SaveErr != nil {
		return e.SaveErr
	}
	_, err := fmt.Fprintf(w, "%s:%dx%d", opts.Format, img.Width(), img.Height())
	return err
}

func (e *Engine) HasSaver(t engine.ImageType) bool {
	return e.Savers[t]
}

func (e *Engine) Capabilities() engine.Capabilities {
	return e.Caps
}

func (e *Engine) ClearState() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cleared++
}
