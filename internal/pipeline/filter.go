package pipeline

import (
	"context"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/query"
)

var (
	// mildSharpen is a 3x3 sharpening kernel normalised by 24.
	mildSharpen = [9]float64{
		-1, -1, -1,
		-1, 32, -1,
		-1, -1, -1,
	}

	sepiaMatrix = [3][3]float64{
		{0.3588, 0.7044, 0.1368},
		{0.2990, 0.5870, 0.1140},
		{0.2392, 0.4696, 0.0912},
	}

	duotoneStart = query.Opaque(0xC8, 0x36, 0x58)
	duotoneStop  = query.Opaque(0xD8, 0xE7, 0x4F)
)

// sharpen applies an unsharp mask, or a mild kernel when sharp has no valid sigma.
func sharpen(ctx context.Context, img engine.Image, d *query.Directives) (engine.Image, error) {
	if !d.Exists(query.KeySharpen) {
		return img, nil
	}
	sigma := d.FloatIf(query.KeySharpen, func(s float64) bool { return s >= 0.000001 && s <= 10 }, -1)
	if sigma == -1 {
		return img.Conv3x3(ctx, mildSharpen, 24, 0)
	}

	inRange := func(f float64) bool { return f >= 0 && f <= 1000000 }
	flat := d.FloatIf(query.KeySharpenFlat, inRange, 1)
	jagged := d.FloatIf(query.KeySharpenJagged, inRange, 2)
	return img.Sharpen(ctx, sigma, flat, jagged)
}

func filter(ctx context.Context, img engine.Image, d *query.Directives) (engine.Image, error) {
	switch d.Filter() {
	case query.FilterGreyscale:
		return withoutAlpha(ctx, img, func(colors engine.Image) (engine.Image, error) {
			return colors.Colourspace(ctx, engine.InterpretationBW)
		})
	case query.FilterSepia:
		return withoutAlpha(ctx, img, func(colors engine.Image) (engine.Image, error) {
			return colors.Recomb(ctx, sepiaMatrix)
		})
	case query.FilterDuotone:
		lut := duotoneLUT(d.Color(query.KeyStart, duotoneStart), d.Color(query.KeyStop, duotoneStop))
		return withoutAlpha(ctx, img, func(colors engine.Image) (engine.Image, error) {
			grey, err := colors.Colourspace(ctx, engine.InterpretationBW)
			if err != nil {
				return nil, err
			}
			return grey.MapLUT(ctx, lut)
		})
	case query.FilterNegate:
		return withoutAlpha(ctx, img, func(colors engine.Image) (engine.Image, error) {
			return colors.Invert(ctx)
		})
	default:
		return img, nil
	}
}

// duotoneLUT maps every grey level to the L*a*b* interpolation between start
// (black) and stop (white).
func duotoneLUT(start, stop query.Color) *[256][3]uint8 {
	from := start.LAB()
	to := stop.LAB()

	var lut [256][3]uint8
	for i := range lut {
		t := float64(i) / 255
		var lab [3]float64
		for c := range lab {
			lab[c] = (from[c] + (to[c]-from[c])*t) / 100
		}
		r, g, b := colorful.Lab(lab[0], lab[1], lab[2]).Clamped().RGB255()
		lut[i] = [3]uint8{r, g, b}
	}
	return &lut
}

// blur applies a gaussian blur, or a 3x3 box blur when blur has no valid sigma.
func blur(ctx context.Context, img engine.Image, d *query.Directives) (engine.Image, error) {
	if !d.Exists(query.KeyBlur) {
		return img, nil
	}
	sigma := d.FloatIf(query.KeyBlur, func(s float64) bool { return s >= 0.3 && s <= 1000 }, -1)
	if sigma == -1 {
		return img.BoxBlur(ctx, 1)
	}
	return img.GaussBlur(ctx, sigma)
}

func init() {
	register(StageSharpen, sharpen)
	register(StageFilter, filter)
	register(StageBlur, blur)
}
