package loader

import (
	"context"
	"log/slog"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/geometry"
	"github.com/jo-hoe/goimages/internal/query"
)

// pyramidTolerance is the absolute error in pixels allowed per level.
const pyramidTolerance = 5

// ShrinkOnLoad reloads the image at a reduced resolution when the format
// supports it. It is skipped for trimming, gamma correction and requests
// without a target size.
func (p *Planner) ShrinkOnLoad(ctx context.Context, in *Input, img engine.Image, d *query.Directives) (engine.Image, error) {
	if in == nil || !d.Bool(query.KeyShrinkOnLoad, true) || d.Exists(query.KeyTrim) || d.Exists(query.KeyGamma) {
		return img, nil
	}
	if !d.Exists(query.KeyWidth) && !d.Exists(query.KeyHeight) {
		return img, nil
	}

	width := img.Width()
	height := img.Height()
	pageHeight := d.Int(query.KeyPageHeight, height)
	opts := in.Options

	switch in.Type {
	case engine.TypeJpeg:
		shrink := JpegShrink(d, width, height)
		if shrink <= 1 {
			return img, nil
		}
		opts.Shrink = shrink
	case engine.TypePdf, engine.TypeWebp:
		scale := 1.0 / commonShrink(d, width, pageHeight)
		if in.Type == engine.TypeWebp && scale >= 1 {
			return img, nil
		}
		opts.Scale = scale
	case engine.TypeSvg:
		opts.Scale = 1.0 / commonShrink(d, width, height)
	case engine.TypeTiff:
		level, err := p.DetectPyramid(ctx, in, d, width, height)
		if err != nil {
			return nil, err
		}
		if level <= 0 {
			return img, nil
		}
		opts.Page = level
		opts.Pages = 1
	case engine.TypeHeif:
		return p.heifThumbnail(ctx, in, img, d)
	default:
		return img, nil
	}

	slog.Debug("loader: shrink on load", "type", in.Type.String(), "shrink", opts.Shrink,
		"scale", opts.Scale, "page", opts.Page)
	reloaded, err := p.load(ctx, in, opts)
	if err != nil {
		return nil, err
	}
	d.Update(query.KeyPageHeight, query.IntValue(reloaded.Metadata().PageHeight))
	return reloaded, nil
}

func commonShrink(d *query.Directives, width, height int) float64 {
	return geometry.CommonShrink(geometry.Shrink(d, width, height))
}

// JpegShrink picks the largest of the 8, 4 and 2 block shrinks the decoder
// supports that stays above the target. Without fast shrink-on-load the
// decoder only reduces to twice the target.
func JpegShrink(d *query.Directives, width, height int) int {
	shrink := commonShrink(d, width, height)
	factor := 2.0
	if d.Bool(query.KeyFastShrinkOnLoad, true) {
		factor = 1.0
	}

	jpegShrink := 1
	switch {
	case shrink >= 8*factor:
		jpegShrink = 8
	case shrink >= 4*factor:
		jpegShrink = 4
	case shrink >= 2*factor:
		jpegShrink = 2
	}

	// libjpeg rounds the block shrink, leaving an image slightly below target
	if jpegShrink > 1 && int(shrink) == jpegShrink {
		jpegShrink /= 2
	}
	return jpegShrink
}

// DetectPyramid walks the TIFF pages from the smallest level up and returns
// the smallest level that still needs no enlargement, or -1 when the pages
// do not halve in size from one to the next.
func (p *Planner) DetectPyramid(ctx context.Context, in *Input, d *query.Directives, width, height int) (int, error) {
	first, err := p.load(ctx, in, engine.LoadOptions{Page: 0, Pages: 1, Shrink: 1, FailOnError: in.Options.FailOnError})
	if err != nil {
		return -1, err
	}
	pages := first.Metadata().Pages
	if pages < 2 {
		return -1, nil
	}

	target := -1
	for i := pages - 1; i >= 0; i-- {
		opts := engine.LoadOptions{Page: i, Pages: 1, Shrink: 1, FailOnError: in.Options.FailOnError}
		level, err := p.load(ctx, in, opts)
		if err != nil {
			return -1, err
		}
		levelWidth, levelHeight := level.Width(), level.Height()

		expectedWidth := width / (1 << i)
		expectedHeight := height / (1 << i)
		if abs(levelWidth-expectedWidth) > pyramidTolerance || levelWidth < 2 ||
			abs(levelHeight-expectedHeight) > pyramidTolerance || levelHeight < 2 {
			return -1, nil
		}

		// keep scanning to validate the remaining levels
		if target == -1 && commonShrink(d, levelWidth, levelHeight) >= 1.0 {
			target = i
		}
	}
	return target, nil
}

// heifThumbnail uses the embedded thumbnail when it is still larger than the target.
func (p *Planner) heifThumbnail(ctx context.Context, in *Input, img engine.Image, d *query.Directives) (engine.Image, error) {
	opts := in.Options
	opts.Thumbnail = true
	thumb, err := p.load(ctx, in, opts)
	if err != nil {
		return nil, err
	}
	if commonShrink(d, thumb.Width(), thumb.Height()) <= 1.0 {
		return img, nil
	}

	slog.Debug("loader: using embedded heif thumbnail", "width", thumb.Width(), "height", thumb.Height())
	d.Update(query.KeyPageHeight, query.IntValue(thumb.Metadata().PageHeight))
	return thumb, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
