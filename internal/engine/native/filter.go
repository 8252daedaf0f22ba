package native

import (
	"context"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"

	"github.com/jo-hoe/goimages/internal/engine"
)

// Sharpen applies an unsharp mask. The flat and jagged amounts are averaged
// into a single mask strength.
func (img *nativeImage) Sharpen(ctx context.Context, sigma, flat, jagged float64) (engine.Image, error) {
	if sigma <= 0 {
		return nil, engine.NewError("sharpen", fmt.Errorf("invalid sigma %v", sigma))
	}
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}
	if err := engine.CheckContext(ctx, "sharpen"); err != nil {
		return nil, err
	}

	amount := (flat + jagged) / 2
	if amount <= 0 {
		amount = 1
	}
	out := toNRGBA(effect.UnsharpMask(src, sigma, amount))
	copyAlpha(out, src)
	return img.derive(out), nil
}

func (img *nativeImage) Conv3x3(ctx context.Context, kernel [9]float64, scale, offset float64) (engine.Image, error) {
	if scale == 0 {
		return nil, engine.NewError("conv", fmt.Errorf("zero kernel scale"))
	}
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}
	if err := engine.CheckContext(ctx, "conv"); err != nil {
		return nil, err
	}

	for i := range kernel {
		kernel[i] /= scale
	}
	out := imaging.Convolve3x3(src, kernel, &imaging.ConvolveOptions{Bias: int(offset)})
	copyAlpha(out, src)
	return img.derive(out), nil
}

func (img *nativeImage) GaussBlur(ctx context.Context, sigma float64) (engine.Image, error) {
	if sigma <= 0 {
		return img, nil
	}
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}
	if err := engine.CheckContext(ctx, "gaussblur"); err != nil {
		return nil, err
	}
	return img.derive(imaging.Blur(src, sigma)), nil
}

func (img *nativeImage) BoxBlur(ctx context.Context, radius int) (engine.Image, error) {
	if radius <= 0 {
		return img, nil
	}
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}
	if err := engine.CheckContext(ctx, "boxblur"); err != nil {
		return nil, err
	}
	return img.derive(toNRGBA(blur.Box(src, float64(radius)))), nil
}

// copyAlpha restores the alpha band of src into dst. Both must have equal bounds.
func copyAlpha(dst, src *image.NRGBA) {
	for y := 0; y < dst.Rect.Dy(); y++ {
		d := dst.Pix[y*dst.Stride:]
		s := src.Pix[y*src.Stride:]
		for x := 0; x < dst.Rect.Dx(); x++ {
			d[x*4+3] = s[x*4+3]
		}
	}
}
