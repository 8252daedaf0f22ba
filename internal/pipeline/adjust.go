package pipeline

import (
	"context"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/query"
)

func percentRange(v int) bool {
	return v >= -100 && v <= 100
}

func nonNegative(f float64) bool {
	return f >= 0
}

// brightness adds bri percent of the full range to every color band.
func brightness(ctx context.Context, img engine.Image, d *query.Directives) (engine.Image, error) {
	bri := d.IntIf(query.KeyBrightness, percentRange, 0)
	if bri == 0 {
		return img, nil
	}
	return withoutAlpha(ctx, img, func(colors engine.Image) (engine.Image, error) {
		return colors.Linear(ctx, []float64{1}, []float64{float64(bri) * 2.55})
	})
}

// contrast stretches or compresses the color bands around mid-grey.
func contrast(ctx context.Context, img engine.Image, d *query.Directives) (engine.Image, error) {
	con := d.IntIf(query.KeyContrast, percentRange, 0)
	if con == 0 {
		return img, nil
	}
	a := 1 + float64(con)/100
	b := 128 * (1 - a)
	return withoutAlpha(ctx, img, func(colors engine.Image) (engine.Image, error) {
		return colors.Linear(ctx, []float64{a}, []float64{b})
	})
}

// gamma re-encodes the image that thumbnail linearised.
func gamma(ctx context.Context, img engine.Image, d *query.Directives) (engine.Image, error) {
	if !d.Exists(query.KeyGamma) {
		return img, nil
	}
	exponent := gammaExponent(d)
	return withoutAlpha(ctx, img, func(colors engine.Image) (engine.Image, error) {
		return colors.Gamma(ctx, exponent)
	})
}

// modulate scales brightness and saturation and rotates the hue.
func modulate(ctx context.Context, img engine.Image, d *query.Directives) (engine.Image, error) {
	bri := d.FloatIf(query.KeyModulate, nonNegative, 1)
	sat := d.FloatIf(query.KeySaturation, nonNegative, 1)
	hue := d.Int(query.KeyHue, 0) % 360
	if hue < 0 {
		hue += 360
	}
	if bri == 1 && sat == 1 && hue == 0 {
		return img, nil
	}
	return withoutAlpha(ctx, img, func(colors engine.Image) (engine.Image, error) {
		return colors.Modulate(ctx, bri, sat, float64(hue))
	})
}

// tint keeps the lightness and replaces the chroma with that of the tint color.
func tint(ctx context.Context, img engine.Image, d *query.Directives) (engine.Image, error) {
	if !d.Exists(query.KeyTint) {
		return img, nil
	}
	c := d.Color(query.KeyTint, query.Transparent)
	if c.IsTransparent() {
		return img, nil
	}
	lab := c.LAB()
	return withoutAlpha(ctx, img, func(colors engine.Image) (engine.Image, error) {
		return colors.TintLAB(ctx, lab[1], lab[2])
	})
}

func init() {
	register(StageBrightness, brightness)
	register(StageModulate, modulate)
	register(StageContrast, contrast)
	register(StageGamma, gamma)
	register(StageTint, tint)
}
