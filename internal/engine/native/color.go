package native

import (
	"context"
	"fmt"
	"math"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/jo-hoe/goimages/internal/engine"
)

func (img *nativeImage) Colourspace(ctx context.Context, space engine.Interpretation) (engine.Image, error) {
	if space == img.space {
		return img, nil
	}
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}

	switch space {
	case engine.InterpretationBW:
		out, err := mapPixels(ctx, src, func(p []uint8) {
			y := clampUint8(0.2126*float64(p[0]) + 0.7152*float64(p[1]) + 0.0722*float64(p[2]))
			p[0], p[1], p[2] = y, y, y
		})
		if err != nil {
			return nil, engine.NewError("colourspace", err)
		}
		return img.derive(out).withBands(img.bands - img.colorBands() + 1), nil
	case engine.InterpretationSRGB:
		// grey pixels already hold R=G=B
		out := img.derive(src)
		out.space = engine.InterpretationSRGB
		return out.withBands(img.bands - img.colorBands() + 3), nil
	default:
		return nil, engine.NewError("colourspace", fmt.Errorf("%w: conversion to %s", engine.ErrUnsupported, space))
	}
}

func (img *nativeImage) Premultiply(ctx context.Context) (engine.Image, error) {
	if img.premultiplied || !img.HasAlpha() {
		return img, nil
	}
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}
	out, err := mapPixels(ctx, src, func(p []uint8) {
		a := float64(p[3]) / 255
		p[0] = clampUint8(float64(p[0]) * a)
		p[1] = clampUint8(float64(p[1]) * a)
		p[2] = clampUint8(float64(p[2]) * a)
	})
	if err != nil {
		return nil, engine.NewError("premultiply", err)
	}
	result := img.derive(out)
	result.premultiplied = true
	return result, nil
}

func (img *nativeImage) Unpremultiply(ctx context.Context) (engine.Image, error) {
	if !img.premultiplied {
		return img, nil
	}
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}
	out, err := mapPixels(ctx, src, func(p []uint8) {
		if p[3] == 0 {
			return
		}
		a := 255 / float64(p[3])
		p[0] = clampUint8(float64(p[0]) * a)
		p[1] = clampUint8(float64(p[1]) * a)
		p[2] = clampUint8(float64(p[2]) * a)
	})
	if err != nil {
		return nil, engine.NewError("unpremultiply", err)
	}
	result := img.derive(out)
	result.premultiplied = false
	return result, nil
}

// applyLUT maps the three color channels through per-channel tables.
func (img *nativeImage) applyLUT(ctx context.Context, op string, lut *[3][256]uint8) (engine.Image, error) {
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}
	out, err := mapPixels(ctx, src, func(p []uint8) {
		p[0] = lut[0][p[0]]
		p[1] = lut[1][p[1]]
		p[2] = lut[2][p[2]]
	})
	if err != nil {
		return nil, engine.NewError(op, err)
	}
	return img.derive(out), nil
}

func (img *nativeImage) Linear(ctx context.Context, a, b []float64) (engine.Image, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, engine.NewError("linear", fmt.Errorf("empty coefficients"))
	}
	grey := img.colorBands() == 1

	var lut [3][256]uint8
	for c := 0; c < 3; c++ {
		ac, bc := a[c%len(a)], b[c%len(b)]
		if grey {
			ac, bc = a[0], b[0]
		}
		for v := 0; v < 256; v++ {
			lut[c][v] = clampUint8(ac*float64(v) + bc)
		}
	}
	return img.applyLUT(ctx, "linear", &lut)
}

func (img *nativeImage) Gamma(ctx context.Context, exponent float64) (engine.Image, error) {
	if exponent <= 0 {
		return nil, engine.NewError("gamma", fmt.Errorf("invalid exponent %v", exponent))
	}
	var lut [3][256]uint8
	for v := 0; v < 256; v++ {
		g := clampUint8(255 * math.Pow(float64(v)/255, 1/exponent))
		lut[0][v], lut[1][v], lut[2][v] = g, g, g
	}
	return img.applyLUT(ctx, "gamma", &lut)
}

func (img *nativeImage) Recomb(ctx context.Context, matrix [3][3]float64) (engine.Image, error) {
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}
	out, err := mapPixels(ctx, src, func(p []uint8) {
		r, g, b := float64(p[0]), float64(p[1]), float64(p[2])
		p[0] = clampUint8(matrix[0][0]*r + matrix[0][1]*g + matrix[0][2]*b)
		p[1] = clampUint8(matrix[1][0]*r + matrix[1][1]*g + matrix[1][2]*b)
		p[2] = clampUint8(matrix[2][0]*r + matrix[2][1]*g + matrix[2][2]*b)
	})
	if err != nil {
		return nil, engine.NewError("recomb", err)
	}
	return img.derive(out).withBands(img.bands - img.colorBands() + 3), nil
}

func (img *nativeImage) Invert(ctx context.Context) (engine.Image, error) {
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}
	if err := engine.CheckContext(ctx, "invert"); err != nil {
		return nil, err
	}
	return img.derive(imaging.Invert(src)), nil
}

func (img *nativeImage) MapLUT(ctx context.Context, lut *[256][3]uint8) (engine.Image, error) {
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}
	out, err := mapPixels(ctx, src, func(p []uint8) {
		entry := lut[p[0]]
		p[0], p[1], p[2] = entry[0], entry[1], entry[2]
	})
	if err != nil {
		return nil, engine.NewError("maplut", err)
	}
	return img.derive(out).withBands(img.bands - img.colorBands() + 3), nil
}

// TintLAB keeps the L* of every pixel and replaces a* and b*. The chroma is
// given in standard CIE units.
func (img *nativeImage) TintLAB(ctx context.Context, a, b float64) (engine.Image, error) {
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}
	out, err := mapPixels(ctx, src, func(p []uint8) {
		l, _, _ := pixelColor(p).Lab()
		p[0], p[1], p[2] = colorful.Lab(l, a/100, b/100).Clamped().RGB255()
	})
	if err != nil {
		return nil, engine.NewError("tint", err)
	}
	return img.derive(out).withBands(img.bands - img.colorBands() + 3), nil
}

func (img *nativeImage) Modulate(ctx context.Context, brightness, saturation, hue float64) (engine.Image, error) {
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}
	out, err := mapPixels(ctx, src, func(p []uint8) {
		h, c, l := pixelColor(p).Hcl()
		h = math.Mod(h+hue, 360)
		if h < 0 {
			h += 360
		}
		p[0], p[1], p[2] = colorful.Hcl(h, c*saturation, l*brightness).Clamped().RGB255()
	})
	if err != nil {
		return nil, engine.NewError("modulate", err)
	}
	return img.derive(out), nil
}

func pixelColor(p []uint8) colorful.Color {
	return colorful.Color{R: float64(p[0]) / 255, G: float64(p[1]) / 255, B: float64(p[2]) / 255}
}
