package pipeline

import (
	"context"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/geometry"
	"github.com/jo-hoe/goimages/internal/query"
)

// alignmentStage cuts a cover-fitted image down to the target size.
type alignmentStage struct {
	engine engine.Engine
}

func newAlignmentStage(env *Environment) (Stage, error) {
	return &alignmentStage{engine: env.Engine}, nil
}

func (s *alignmentStage) Name() string {
	return StageAlignment
}

func (s *alignmentStage) Apply(ctx context.Context, img engine.Image, req *Request) (engine.Image, error) {
	d := req.Directives
	if d.Canvas() != query.CanvasCrop {
		return img, nil
	}

	imageWidth := img.Width()
	imageHeight := pageHeight(img, d)
	targetWidth, targetHeight := geometry.TargetSize(d)
	if targetWidth == 0 {
		targetWidth = imageWidth
	}
	if targetHeight == 0 {
		targetHeight = imageHeight
	}

	position := d.Position()
	focal := geometry.FocalPoint(d)
	multiPage := geometry.IsMultiPage(d)

	var area geometry.Rect
	switch {
	case position == query.PositionFocal && (imageWidth < targetWidth || imageHeight < targetHeight):
		area = geometry.FocalCrop(imageWidth, imageHeight, targetWidth, targetHeight, focal)
	case imageWidth <= targetWidth && imageHeight <= targetHeight:
		return img, nil
	case !multiPage && (position == query.PositionEntropy || position == query.PositionAttention):
		interesting := engine.InterestingEntropy
		if position == query.PositionAttention {
			interesting = engine.InterestingAttention
		}
		out, err := img.SmartCrop(ctx, min(targetWidth, imageWidth), min(targetHeight, imageHeight), interesting)
		if err != nil {
			return nil, err
		}
		d.Update(query.KeyPageHeight, query.IntValue(out.Height()))
		return out, nil
	default:
		area.Width = min(targetWidth, imageWidth)
		area.Height = min(targetHeight, imageHeight)
		area.Left, area.Top = geometry.CalculatePosition(imageWidth, imageHeight, area.Width, area.Height, position, focal)
	}

	if area.Width == imageWidth && area.Height == imageHeight {
		return img, nil
	}
	extract := func(page engine.Image) (engine.Image, error) {
		return page.ExtractArea(ctx, area.Left, area.Top, area.Width, area.Height)
	}

	var out engine.Image
	var err error
	if multiPage {
		out, err = mapPages(ctx, s.engine, img, imageHeight, extract)
	} else {
		out, err = extract(img)
	}
	if err != nil {
		return nil, err
	}
	d.Update(query.KeyPageHeight, query.IntValue(area.Height))
	return out, nil
}

// crop extracts the cx, cy, cw, ch rectangle. Stacked pages keep their full
// height.
func crop(ctx context.Context, img engine.Image, d *query.Directives) (engine.Image, error) {
	if !d.Exists(query.KeyCropX) && !d.Exists(query.KeyCropY) &&
		!d.Exists(query.KeyCropWidth) && !d.Exists(query.KeyCropHeight) {
		return img, nil
	}

	area := geometry.ResolveCrop(d, img.Width(), img.Height())
	if area.Empty() || (area.Width == img.Width() && area.Height == img.Height()) {
		return img, nil
	}
	out, err := img.ExtractArea(ctx, area.Left, area.Top, area.Width, area.Height)
	if err != nil {
		return nil, err
	}
	if !geometry.IsMultiPage(d) {
		d.Update(query.KeyPageHeight, query.IntValue(out.Height()))
	}
	return out, nil
}

func init() {
	mustRegister(StageAlignment, newAlignmentStage)
	register(StageCrop, crop)
}
