// Package loader sniffs the input, resolves the pages to decode and admits
// the image against the configured limits before any pixel work happens.
package loader

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/query"
	"github.com/jo-hoe/goimages/internal/status"
	"github.com/jo-hoe/goimages/internal/stream"
)

const (
	maxPageIndex = 100000

	// PageLargest and PageSmallest select a page by pixel count.
	PageLargest  = -1
	PageSmallest = -2
)

// Limits bounds what the planner admits.
type Limits struct {
	// LimitInputPixels is the largest width*height accepted, 0 for no limit.
	LimitInputPixels int64

	// MaxPages is the largest number of pages decoded, 0 for no limit.
	MaxPages int

	FailOnError bool
}

// Input remembers where an image came from so it can be reloaded with
// shrink-on-load options.
type Input struct {
	Source  *stream.Source
	Loader  string
	Type    engine.ImageType
	Options engine.LoadOptions
}

// Planner loads images through an engine.
type Planner struct {
	engine engine.Engine
	limits Limits
}

func NewPlanner(e engine.Engine, limits Limits) *Planner {
	return &Planner{engine: e, limits: limits}
}

var loaderTypes = []struct {
	prefix string
	typ    engine.ImageType
}{
	{"jpegload", engine.TypeJpeg},
	{"pngload", engine.TypePng},
	{"webpload", engine.TypeWebp},
	{"tiffload", engine.TypeTiff},
	{"gifload", engine.TypeGif},
	{"svgload", engine.TypeSvg},
	{"pdfload", engine.TypePdf},
	{"heifload", engine.TypeHeif},
	{"magickload", engine.TypeMagick},
}

// DetermineImageType classifies a loader name.
func DetermineImageType(loader string) engine.ImageType {
	for _, lt := range loaderTypes {
		if strings.HasPrefix(loader, lt.prefix) {
			return lt.typ
		}
	}
	return engine.TypeUnknown
}

// Load sniffs src, loads the header of the requested pages and checks the
// input limits. It records the derived keys type, n, page, page_height,
// has_alpha, input_width and input_height.
func (p *Planner) Load(ctx context.Context, src *stream.Source, d *query.Directives) (engine.Image, *Input, error) {
	loader, err := p.engine.FindLoader(src)
	if err != nil {
		slog.Info("loader: unsupported input", "error", err)
		return nil, nil, status.WithMessage(status.InvalidImage, "Invalid or unsupported image format. Is it a valid image?", err)
	}
	in := &Input{Source: src, Loader: loader, Type: DetermineImageType(loader), Options: engine.DefaultLoadOptions()}
	in.Options.FailOnError = p.limits.FailOnError

	if in.Type.MultiPage() {
		in.Options.Pages = d.IntIf(query.KeyPages, func(n int) bool { return n == -1 || n >= 1 }, 1)
		page := d.IntIf(query.KeyPage, func(n int) bool { return n >= PageSmallest && n <= maxPageIndex }, 0)
		if page == PageLargest || page == PageSmallest {
			resolved, err := p.resolvePage(ctx, in, page)
			if err != nil {
				return nil, nil, err
			}
			page = resolved
		}
		in.Options.Page = page
	}

	img, err := p.load(ctx, in, in.Options)
	if err != nil {
		return nil, nil, err
	}

	if err := p.admit(img, in.Options); err != nil {
		return nil, nil, err
	}

	meta := img.Metadata()
	pageHeight := meta.PageHeight
	if pageHeight <= 0 || img.Height()%pageHeight != 0 {
		pageHeight = img.Height()
	}
	d.Update(query.KeyType, query.IntValue(int(in.Type)))
	d.Update(query.KeyPages, query.IntValue(img.Height()/pageHeight))
	d.Update(query.KeyPage, query.IntValue(in.Options.Page))
	d.Update(query.KeyPageHeight, query.IntValue(pageHeight))
	d.Update(query.KeyHasAlpha, query.BoolValue(img.HasAlpha()))
	d.Update(query.KeyInputWidth, query.IntValue(img.Width()))
	d.Update(query.KeyInputHeight, query.IntValue(img.Height()))

	slog.Debug("loader: image loaded", "loader", loader, "width", img.Width(), "height", img.Height(),
		"bands", img.Bands(), "pages", meta.Pages, "page", in.Options.Page)
	return img, in, nil
}

// load reads a header and classifies a failure as unreadable. Cancellation
// is passed through unclassified.
func (p *Planner) load(ctx context.Context, in *Input, opts engine.LoadOptions) (engine.Image, error) {
	img, err := p.engine.Load(ctx, in.Source, in.Loader, opts)
	if err == nil {
		return img, nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil, err
	}
	slog.Error("loader: failed to read image", "loader", in.Loader, "page", opts.Page, "error", err)
	return nil, status.WithMessage(status.ImageNotReadable, "Image not readable. Is it a valid image?", err)
}

func (p *Planner) admit(img engine.Image, opts engine.LoadOptions) error {
	if limit := p.limits.LimitInputPixels; limit > 0 && int64(img.Width())*int64(img.Height()) > limit {
		slog.Warn("loader: input exceeds pixel limit", "width", img.Width(), "height", img.Height(), "limit", limit)
		return status.Errorf(status.ImageTooLarge, "Input image exceeds pixel limit. Width x height should be less than %d", limit)
	}

	pages := opts.Pages
	if pages == -1 {
		pages = img.Metadata().Pages - opts.Page
	}
	if p.limits.MaxPages > 0 && pages > p.limits.MaxPages {
		slog.Warn("loader: input exceeds page limit", "pages", pages, "limit", p.limits.MaxPages)
		return status.Errorf(status.ImageTooLarge, "Input image exceeds the maximum number of pages. Number of pages should be less than %d", p.limits.MaxPages)
	}
	return nil
}

// resolvePage scans every page and returns the index of the largest or
// smallest one. Ties keep the first page seen.
func (p *Planner) resolvePage(ctx context.Context, in *Input, page int) (int, error) {
	opts := in.Options
	opts.Page = 0
	opts.Pages = 1

	first, err := p.load(ctx, in, opts)
	if err != nil {
		return 0, err
	}
	pages := max(1, first.Metadata().Pages)

	target := 0
	var best uint64
	if page == PageSmallest {
		best = math.MaxUint64
	}
	for i := 0; i < pages; i++ {
		opts.Page = i
		img := first
		if i > 0 {
			if img, err = p.load(ctx, in, opts); err != nil {
				return 0, err
			}
		}
		size := uint64(img.Width()) * uint64(img.Height())
		if (page == PageLargest && size > best) || (page == PageSmallest && size < best) {
			target = i
			best = size
		}
	}
	return target, nil
}
