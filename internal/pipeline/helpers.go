package pipeline

import (
	"context"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/geometry"
	"github.com/jo-hoe/goimages/internal/query"
)

// withoutAlpha applies fn to the color bands of img and rejoins the
// untouched alpha band afterwards.
func withoutAlpha(ctx context.Context, img engine.Image, fn func(engine.Image) (engine.Image, error)) (engine.Image, error) {
	if !img.HasAlpha() {
		return fn(img)
	}
	colors, alpha, err := img.SplitAlpha(ctx)
	if err != nil {
		return nil, err
	}
	out, err := fn(colors)
	if err != nil {
		return nil, err
	}
	if alpha == nil {
		return out, nil
	}
	return out.JoinAlpha(ctx, alpha)
}

// pageHeight returns the height of a single page of img.
func pageHeight(img engine.Image, d *query.Directives) int {
	if !geometry.IsMultiPage(d) {
		return img.Height()
	}
	if h := d.Int(query.KeyPageHeight, 0); h > 0 && h <= img.Height() {
		return h
	}
	return img.Height()
}

// mapPages applies fn to every page of a vertically stacked image and stacks
// the results again.
func mapPages(ctx context.Context, e engine.Engine, img engine.Image, height int, fn func(engine.Image) (engine.Image, error)) (engine.Image, error) {
	n := img.Height() / height
	pages := make([]engine.Image, 0, n)
	for i := range n {
		page, err := img.ExtractArea(ctx, 0, i*height, img.Width(), height)
		if err != nil {
			return nil, err
		}
		out, err := fn(page)
		if err != nil {
			return nil, err
		}
		pages = append(pages, out)
	}
	return e.JoinPages(ctx, pages)
}

// replicatePages stacks n copies of img.
func replicatePages(ctx context.Context, e engine.Engine, img engine.Image, n int) (engine.Image, error) {
	if n <= 1 {
		return img, nil
	}
	pages := make([]engine.Image, n)
	for i := range pages {
		pages[i] = img
	}
	return e.JoinPages(ctx, pages)
}

// blendBackground removes transparency against bg. An opaque color flattens
// the image and drops its alpha band, a translucent one places the image
// over a solid canvas. It returns whether the result still has alpha.
func blendBackground(ctx context.Context, e engine.Engine, img engine.Image, bg query.Color) (engine.Image, bool, error) {
	if bg.IsOpaque() {
		out, err := img.Flatten(ctx, bg.NRGBA())
		return out, false, err
	}
	canvas := e.NewSolid(img.Width(), img.Height(), 4, bg.NRGBA())
	out, err := canvas.Composite(ctx, img, engine.BlendOver, 0, 0)
	if err != nil {
		return nil, false, err
	}
	return out.WithMetadata(img.Metadata()), true, nil
}
