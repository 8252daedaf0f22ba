package pipeline

import (
	"context"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/geometry"
	"github.com/jo-hoe/goimages/internal/query"
)

// embedStage places a contain-fitted image on a target-sized canvas.
type embedStage struct {
	engine engine.Engine
}

func newEmbedStage(env *Environment) (Stage, error) {
	return &embedStage{engine: env.Engine}, nil
}

func (s *embedStage) Name() string {
	return StageEmbed
}

// Apply also reverses the premultiplication done by thumbnail.
func (s *embedStage) Apply(ctx context.Context, img engine.Image, req *Request) (engine.Image, error) {
	d := req.Directives

	var err error
	if d.Bool(query.KeyPremultiplied, false) {
		if img, err = img.Unpremultiply(ctx); err != nil {
			return nil, err
		}
		d.Update(query.KeyPremultiplied, query.BoolValue(false))
	}
	if d.Canvas() != query.CanvasEmbed {
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
	if imageWidth == targetWidth && imageHeight == targetHeight {
		return img, nil
	}

	background := query.Opaque(0, 0, 0)
	if d.Bool(query.KeyHasAlpha, img.HasAlpha()) {
		background = query.Transparent
	}
	background = d.Color(query.KeyContainBg, background)

	if !background.IsOpaque() && !img.HasAlpha() {
		if img, err = img.AddAlpha(ctx); err != nil {
			return nil, err
		}
		d.Update(query.KeyHasAlpha, query.BoolValue(true))
	}

	left, top := geometry.CalculateEmbedPosition(imageWidth, imageHeight, targetWidth, targetHeight,
		d.Position(), geometry.FocalPoint(d))
	embed := func(page engine.Image) (engine.Image, error) {
		return page.Embed(ctx, left, top, targetWidth, targetHeight, background.NRGBA())
	}

	var out engine.Image
	if geometry.IsMultiPage(d) {
		out, err = mapPages(ctx, s.engine, img, imageHeight, embed)
	} else {
		out, err = embed(img)
	}
	if err != nil {
		return nil, err
	}
	d.Update(query.KeyPageHeight, query.IntValue(targetHeight))
	return out, nil
}

// rotation turns the image by an angle that is not a multiple of 90. Right
// angles are applied by the orientation stage.
func rotation(ctx context.Context, img engine.Image, d *query.Directives) (engine.Image, error) {
	degrees := d.Int(query.KeyRotate, 0)
	if degrees%90 == 0 || geometry.IsMultiPage(d) {
		return img, nil
	}

	var err error
	background := d.Color(query.KeyRotateBg, query.Transparent)
	if !background.IsOpaque() && !img.HasAlpha() {
		if img, err = img.AddAlpha(ctx); err != nil {
			return nil, err
		}
		d.Update(query.KeyHasAlpha, query.BoolValue(true))
	}

	out, err := img.Rotate(ctx, float64(degrees), background.NRGBA())
	if err != nil {
		return nil, err
	}
	d.Update(query.KeyPageHeight, query.IntValue(out.Height()))
	return out, nil
}

func init() {
	mustRegister(StageEmbed, newEmbedStage)
	register(StageRotation, rotation)
}
