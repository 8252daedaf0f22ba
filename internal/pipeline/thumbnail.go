package pipeline

import (
	"context"
	"math"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/geometry"
	"github.com/jo-hoe/goimages/internal/loader"
	"github.com/jo-hoe/goimages/internal/query"
)

const defaultGamma = 2.2

func gammaExponent(d *query.Directives) float64 {
	return d.FloatIf(query.KeyGamma, func(g float64) bool { return g >= 1 && g <= 3 }, defaultGamma)
}

// shrinkOnLoadStage reloads the source at a reduced resolution.
type shrinkOnLoadStage struct {
	loader *loader.Planner
}

func newShrinkOnLoadStage(env *Environment) (Stage, error) {
	return &shrinkOnLoadStage{loader: env.Loader}, nil
}

func (s *shrinkOnLoadStage) Name() string {
	return StageShrinkOnLoad
}

func (s *shrinkOnLoadStage) Apply(ctx context.Context, img engine.Image, req *Request) (engine.Image, error) {
	// the pending rotation decides which axis the target width applies to
	ResolveRotationAndFlip(img, req.Directives)
	if s.loader == nil {
		return img, nil
	}
	return s.loader.ShrinkOnLoad(ctx, req.Input, img, req.Directives)
}

// thumbnail resizes the image to the target size. Stacked pages are scaled
// so every page keeps an integral height.
func thumbnail(ctx context.Context, img engine.Image, d *query.Directives) (engine.Image, error) {
	ResolveRotationAndFlip(img, d)

	var err error
	if space := img.Interpretation(); space != engine.InterpretationSRGB && space != engine.InterpretationBW {
		if img, err = img.Colourspace(ctx, engine.InterpretationSRGB); err != nil {
			return nil, err
		}
	}

	// resize in linear light
	if d.Exists(query.KeyGamma) {
		exponent := 1 / gammaExponent(d)
		img, err = withoutAlpha(ctx, img, func(colors engine.Image) (engine.Image, error) {
			return colors.Gamma(ctx, exponent)
		})
		if err != nil {
			return nil, err
		}
	}

	inputHeight := pageHeight(img, d)
	hshrink, vshrink := geometry.Shrink(d, img.Width(), inputHeight)

	multiPage := geometry.IsMultiPage(d)
	if multiPage {
		pages := img.Height() / inputHeight
		targetPageHeight := max(1, int(math.Round(float64(inputHeight)/vshrink)))
		vshrink = float64(img.Height()) / float64(targetPageHeight*pages)
		d.Update(query.KeyPageHeight, query.IntValue(targetPageHeight))
	}
	if hshrink == 1 && vshrink == 1 {
		return img, nil
	}

	if img.HasAlpha() && !d.Bool(query.KeyPremultiplied, false) {
		if img, err = img.Premultiply(ctx); err != nil {
			return nil, err
		}
		d.Update(query.KeyPremultiplied, query.BoolValue(true))
	}

	if img, err = img.Resize(ctx, 1/hshrink, 1/vshrink); err != nil {
		return nil, err
	}
	if !multiPage {
		d.Update(query.KeyPageHeight, query.IntValue(img.Height()))
	}
	return img, nil
}

func init() {
	mustRegister(StageShrinkOnLoad, newShrinkOnLoadStage)
	register(StageThumbnail, thumbnail)
}
