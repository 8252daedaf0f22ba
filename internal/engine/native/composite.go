package native

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/jo-hoe/goimages/internal/engine"
)

// Flatten blends the image over background and drops the alpha band.
func (img *nativeImage) Flatten(ctx context.Context, background color.NRGBA) (engine.Image, error) {
	if !img.HasAlpha() {
		return img, nil
	}
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}
	bg := [3]float64{float64(background.R), float64(background.G), float64(background.B)}
	premultiplied := img.premultiplied
	out, err := mapPixels(ctx, src, func(p []uint8) {
		a := float64(p[3]) / 255
		for c := 0; c < 3; c++ {
			v := float64(p[c])
			if !premultiplied {
				v *= a
			}
			p[c] = clampUint8(v + bg[c]*(1-a))
		}
		p[3] = 255
	})
	if err != nil {
		return nil, engine.NewError("flatten", err)
	}
	result := img.derive(out).withBands(img.bands - 1)
	result.premultiplied = false
	return result, nil
}

func (img *nativeImage) Composite(ctx context.Context, overlay engine.Image, mode engine.BlendMode, x, y int) (engine.Image, error) {
	over, err := asNative("composite", overlay)
	if err != nil {
		return nil, err
	}
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}
	overPix, err := over.pixels(ctx)
	if err != nil {
		return nil, err
	}
	if err := engine.CheckContext(ctx, "composite"); err != nil {
		return nil, err
	}

	switch mode {
	case engine.BlendOver:
		dst := imaging.Clone(src)
		r := overPix.Bounds().Add(image.Pt(x, y))
		draw.Draw(dst, r, overPix, image.Point{}, draw.Over)
		return img.derive(dst), nil
	case engine.BlendDestIn:
		return img.destIn(ctx, src, overPix, x, y)
	default:
		return nil, engine.NewError("composite", fmt.Errorf("%w: blend mode %d", engine.ErrUnsupported, mode))
	}
}

// destIn keeps the image where the overlay is opaque. Pixels outside the
// overlay become fully transparent.
func (img *nativeImage) destIn(ctx context.Context, src, overlay *image.NRGBA, x, y int) (engine.Image, error) {
	dst := imaging.Clone(src)
	ow, oh := overlay.Rect.Dx(), overlay.Rect.Dy()
	width := dst.Rect.Dx()
	err := parallelRows(ctx, dst.Rect.Dy(), func(row int) {
		line := dst.Pix[row*dst.Stride:]
		oy := row - y
		for col := 0; col < width; col++ {
			ox := col - x
			var a uint8
			if ox >= 0 && ox < ow && oy >= 0 && oy < oh {
				a = overlay.Pix[oy*overlay.Stride+ox*4+3]
			}
			line[col*4+3] = uint8(uint16(line[col*4+3]) * uint16(a) / 255)
		}
	})
	if err != nil {
		return nil, engine.NewError("composite", err)
	}

	result := img.derive(dst)
	if !img.HasAlpha() {
		result.withBands(img.bands + 1)
	}
	return result, nil
}

func (img *nativeImage) SplitAlpha(ctx context.Context) (engine.Image, engine.Image, error) {
	if !img.HasAlpha() {
		return img, nil, nil
	}
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, nil, err
	}

	colors := imaging.Clone(src)
	alpha := image.NewNRGBA(src.Rect)
	err = parallelRows(ctx, src.Rect.Dy(), func(y int) {
		c := colors.Pix[y*colors.Stride:]
		a := alpha.Pix[y*alpha.Stride:]
		for x := 0; x < src.Rect.Dx(); x++ {
			v := c[x*4+3]
			a[x*4], a[x*4+1], a[x*4+2], a[x*4+3] = v, v, v, 255
			c[x*4+3] = 255
		}
	})
	if err != nil {
		return nil, nil, engine.NewError("split_alpha", err)
	}

	alphaImg := newImage(alpha, 1, engine.Metadata{})
	return img.derive(colors).withBands(img.bands - 1), alphaImg, nil
}

// JoinAlpha appends the first band of alpha as the alpha band.
func (img *nativeImage) JoinAlpha(ctx context.Context, alpha engine.Image) (engine.Image, error) {
	a, err := asNative("join_alpha", alpha)
	if err != nil {
		return nil, err
	}
	if a.Width() != img.Width() || a.Height() != img.Height() {
		return nil, engine.NewError("join_alpha", fmt.Errorf("alpha is %dx%d, image is %dx%d",
			a.Width(), a.Height(), img.Width(), img.Height()))
	}
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}
	alphaPix, err := a.pixels(ctx)
	if err != nil {
		return nil, err
	}

	dst := imaging.Clone(src)
	err = parallelRows(ctx, dst.Rect.Dy(), func(y int) {
		d := dst.Pix[y*dst.Stride:]
		s := alphaPix.Pix[y*alphaPix.Stride:]
		for x := 0; x < dst.Rect.Dx(); x++ {
			d[x*4+3] = s[x*4]
		}
	})
	if err != nil {
		return nil, engine.NewError("join_alpha", err)
	}
	return img.derive(dst).withBands(img.colorBands() + 1), nil
}

// AddAlpha appends an opaque alpha band.
func (img *nativeImage) AddAlpha(ctx context.Context) (engine.Image, error) {
	if img.HasAlpha() {
		return img, nil
	}
	out := *img
	out.meta = img.meta.Clone()
	return out.withBands(img.bands + 1), nil
}
