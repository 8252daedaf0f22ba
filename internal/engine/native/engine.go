// Package native is a pure Go image engine. It keeps no state between
// requests and decodes pixels only when an operation first needs them.
package native

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	xdraw "golang.org/x/image/draw"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/stream"
)

// Loader names reported by FindLoader.
const (
	LoaderJpeg   = "jpegload_source"
	LoaderPng    = "pngload_source"
	LoaderGif    = "gifload_source"
	LoaderWebp   = "webpload_source"
	LoaderTiff   = "tiffload_source"
	LoaderMagick = "magickload_source"
	LoaderSvg    = "svgload_source"
)

// sniffSize is how much of a source FindLoader inspects.
const sniffSize = 4096

type loadFunc func(data []byte, opts engine.LoadOptions) (engine.Image, error)

var loaders = map[string]loadFunc{
	LoaderJpeg:   loadJPEG,
	LoaderPng:    loadPNG,
	LoaderGif:    loadGIF,
	LoaderWebp:   loadWebP,
	LoaderTiff:   loadTIFF,
	LoaderMagick: loadBMP,
	LoaderSvg:    loadSVG,
}

// Engine implements engine.Engine with the Go image ecosystem.
type Engine struct{}

func New() *Engine {
	return &Engine{}
}

func (e *Engine) FindLoader(src *stream.Source) (string, error) {
	head, err := src.Peek(sniffSize)
	if err != nil {
		return "", fmt.Errorf("failed to sniff source: %w", err)
	}

	switch {
	case len(head) >= 3 && head[0] == 0xFF && head[1] == 0xD8 && head[2] == 0xFF:
		return LoaderJpeg, nil
	case bytes.HasPrefix(head, pngSignature):
		return LoaderPng, nil
	case bytes.HasPrefix(head, []byte("GIF87a")) || bytes.HasPrefix(head, []byte("GIF89a")):
		return LoaderGif, nil
	case len(head) >= 12 && string(head[0:4]) == "RIFF" && string(head[8:12]) == "WEBP":
		return LoaderWebp, nil
	case bytes.HasPrefix(head, []byte("II*\x00")) || bytes.HasPrefix(head, []byte("MM\x00*")):
		return LoaderTiff, nil
	case bytes.HasPrefix(head, []byte("BM")):
		return LoaderMagick, nil
	case isSVGData(head):
		return LoaderSvg, nil
	default:
		return "", fmt.Errorf("%w: unrecognised image format", engine.ErrUnsupported)
	}
}

func (e *Engine) Load(ctx context.Context, src *stream.Source, loader string, opts engine.LoadOptions) (engine.Image, error) {
	load, ok := loaders[loader]
	if !ok {
		return nil, engine.NewError("load", fmt.Errorf("%w: loader %q", engine.ErrUnsupported, loader))
	}
	if err := engine.CheckContext(ctx, loader); err != nil {
		return nil, err
	}
	data, err := src.Bytes()
	if err != nil {
		return nil, engine.NewError(loader, err)
	}

	slog.Debug("native: loading image", "loader", loader, "page", opts.Page, "pages", opts.Pages,
		"shrink", opts.Shrink, "scale", opts.Scale, "input_size_bytes", len(data))
	return load(data, opts)
}

func (e *Engine) LoadSVG(ctx context.Context, svg []byte, width, height int) (engine.Image, error) {
	_, icon, err := readSVGHeader(svg)
	if err != nil {
		return nil, engine.NewDecodeError("svgload", err)
	}
	pix, err := renderSVG(ctx, icon, width, height)
	if err != nil {
		return nil, engine.NewError("svgload", err)
	}
	return newImage(pix, 4, engine.Metadata{Format: engine.TypeSvg, Pages: 1, PageHeight: height}), nil
}

func (e *Engine) NewSolid(width, height, bands int, c color.NRGBA) engine.Image {
	pix := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(pix, pix.Bounds(), image.NewUniform(c), image.Point{}, xdraw.Src)
	return newImage(pix, bands, engine.Metadata{Pages: 1, PageHeight: height})
}

func (e *Engine) JoinPages(ctx context.Context, pages []engine.Image) (engine.Image, error) {
	if len(pages) == 0 {
		return nil, engine.NewError("join_pages", fmt.Errorf("no pages"))
	}
	first, err := asNative("join_pages", pages[0])
	if err != nil {
		return nil, err
	}
	if len(pages) == 1 {
		return first, nil
	}

	width, height := first.Width(), first.Height()
	bands := first.Bands()
	out := image.NewNRGBA(image.Rect(0, 0, width, height*len(pages)))
	for i, page := range pages {
		p, err := asNative("join_pages", page)
		if err != nil {
			return nil, err
		}
		if p.Width() != width || p.Height() != height {
			return nil, engine.NewError("join_pages", fmt.Errorf("page %d is %dx%d, want %dx%d",
				i, p.Width(), p.Height(), width, height))
		}
		pix, err := p.pixels(ctx)
		if err != nil {
			return nil, err
		}
		bands = max(bands, p.Bands())
		xdraw.Draw(out, image.Rect(0, i*height, width, (i+1)*height), pix, image.Point{}, xdraw.Src)
	}

	result := first.derive(out).withBands(bands)
	result.meta.PageHeight = height
	return result, nil
}

func (e *Engine) HasSaver(t engine.ImageType) bool {
	_, ok := savers[t]
	return ok
}

func (e *Engine) Capabilities() engine.Capabilities {
	return engine.Capabilities{GifEffort: true}
}

// ClearState is a no-op: the engine holds no operation cache.
func (e *Engine) ClearState() {}
