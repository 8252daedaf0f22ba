package native

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/jo-hoe/goimages/internal/engine"
)

func (img *nativeImage) Resize(ctx context.Context, hscale, vscale float64) (engine.Image, error) {
	if hscale <= 0 || vscale <= 0 {
		return nil, engine.NewError("resize", fmt.Errorf("invalid scale %vx%v", hscale, vscale))
	}
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}

	width := max(1, int(math.Round(float64(img.width)*hscale)))
	height := max(1, int(math.Round(float64(img.height)*vscale)))
	if width == img.width && height == img.height {
		return img, nil
	}
	if err := engine.CheckContext(ctx, "resize"); err != nil {
		return nil, err
	}
	return img.derive(imaging.Resize(src, width, height, imaging.Lanczos)), nil
}

func (img *nativeImage) ExtractArea(ctx context.Context, left, top, width, height int) (engine.Image, error) {
	if left < 0 || top < 0 || width <= 0 || height <= 0 || left+width > img.width || top+height > img.height {
		return nil, engine.NewError("extract_area", fmt.Errorf("bad extract area %dx%d+%d+%d of %dx%d",
			width, height, left, top, img.width, img.height))
	}
	if left == 0 && top == 0 && width == img.width && height == img.height {
		return img, nil
	}
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}
	return img.derive(imaging.Crop(src, image.Rect(left, top, left+width, top+height))), nil
}

func (img *nativeImage) Embed(ctx context.Context, left, top, width, height int, background color.NRGBA) (engine.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, engine.NewError("embed", fmt.Errorf("invalid canvas %dx%d", width, height))
	}
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}
	if err := engine.CheckContext(ctx, "embed"); err != nil {
		return nil, err
	}
	canvas := imaging.New(width, height, background)
	return img.derive(imaging.Paste(canvas, src, image.Pt(left, top))), nil
}

// SmartCrop keeps the width x height window with the highest interest score.
// Rows and columns are scored independently, which is exact whenever one
// dimension already matches the target.
func (img *nativeImage) SmartCrop(ctx context.Context, width, height int, interesting engine.Interesting) (engine.Image, error) {
	width = min(width, img.width)
	height = min(height, img.height)
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}

	rowScores := make([]float64, img.height)
	colScores := make([][]float64, img.height)
	err = parallelRows(ctx, img.height, func(y int) {
		cols := make([]float64, img.width)
		for x := 0; x < img.width; x++ {
			score := interest(src, x, y, interesting)
			cols[x] = score
			rowScores[y] += score
		}
		colScores[y] = cols
	})
	if err != nil {
		return nil, engine.NewError("smartcrop", err)
	}

	columns := make([]float64, img.width)
	for _, cols := range colScores {
		for x, score := range cols {
			columns[x] += score
		}
	}

	left := bestWindow(columns, width)
	top := bestWindow(rowScores, height)
	return img.ExtractArea(ctx, left, top, width, height)
}

// interest scores a pixel: luminance edges, plus saturation and skin tones
// when looking for attention.
func interest(src *image.NRGBA, x, y int, interesting engine.Interesting) float64 {
	p := src.PixOffset(x, y)
	r, g, b := float64(src.Pix[p]), float64(src.Pix[p+1]), float64(src.Pix[p+2])
	lum := 0.2126*r + 0.7152*g + 0.0722*b

	score := 0.0
	if x+1 < src.Rect.Dx() {
		q := p + 4
		score += math.Abs(lum - (0.2126*float64(src.Pix[q]) + 0.7152*float64(src.Pix[q+1]) + 0.0722*float64(src.Pix[q+2])))
	}
	if y+1 < src.Rect.Dy() {
		q := p + src.Stride
		score += math.Abs(lum - (0.2126*float64(src.Pix[q]) + 0.7152*float64(src.Pix[q+1]) + 0.0722*float64(src.Pix[q+2])))
	}

	if interesting == engine.InterestingAttention {
		hi := math.Max(r, math.Max(g, b))
		lo := math.Min(r, math.Min(g, b))
		score += (hi - lo) / 2
		if r > 95 && g > 40 && b > 20 && r > g && r > b && r-g > 15 {
			score += 64
		}
	}
	return score
}

// bestWindow returns the offset of the size-long window with the largest sum.
func bestWindow(scores []float64, size int) int {
	if size >= len(scores) {
		return 0
	}
	sum := 0.0
	for i := 0; i < size; i++ {
		sum += scores[i]
	}
	best, bestSum := 0, sum
	for i := size; i < len(scores); i++ {
		sum += scores[i] - scores[i-size]
		if sum > bestSum {
			best, bestSum = i-size+1, sum
		}
	}
	return best
}

func (img *nativeImage) FindTrim(ctx context.Context, threshold float64, background color.NRGBA) (left, top, width, height int, err error) {
	src, err := img.pixels(ctx)
	if err != nil {
		return 0, 0, 0, 0, err
	}

	bg := [4]float64{float64(background.R), float64(background.G), float64(background.B), float64(background.A)}
	minX, minY, maxX, maxY := img.width, img.height, -1, -1
	for y := 0; y < img.height; y++ {
		if err := engine.CheckContext(ctx, "find_trim"); err != nil {
			return 0, 0, 0, 0, err
		}
		row := src.Pix[y*src.Stride : y*src.Stride+img.width*4]
		for x := 0; x < img.width; x++ {
			p := row[x*4 : x*4+4]
			diff := 0.0
			for c := 0; c < 4; c++ {
				diff = math.Max(diff, math.Abs(float64(p[c])-bg[c]))
			}
			if diff > threshold {
				minX, maxX = min(minX, x), max(maxX, x)
				minY, maxY = min(minY, y), max(maxY, y)
			}
		}
	}

	if maxX < 0 {
		return 0, 0, 0, 0, nil
	}
	return minX, minY, maxX - minX + 1, maxY - minY + 1, nil
}

func (img *nativeImage) Point(ctx context.Context, x, y int) (color.NRGBA, error) {
	if x < 0 || y < 0 || x >= img.width || y >= img.height {
		return color.NRGBA{}, engine.NewError("getpoint", fmt.Errorf("point %d,%d outside %dx%d", x, y, img.width, img.height))
	}
	src, err := img.pixels(ctx)
	if err != nil {
		return color.NRGBA{}, err
	}
	return src.NRGBAAt(x, y), nil
}

// Rot turns the image clockwise. imaging rotates counter-clockwise.
func (img *nativeImage) Rot(ctx context.Context, angle engine.Angle) (engine.Image, error) {
	if angle == engine.D0 {
		return img, nil
	}
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}
	switch angle {
	case engine.D90:
		return img.derive(imaging.Rotate270(src)), nil
	case engine.D180:
		return img.derive(imaging.Rotate180(src)), nil
	case engine.D270:
		return img.derive(imaging.Rotate90(src)), nil
	default:
		return nil, engine.NewError("rot", fmt.Errorf("invalid angle %d", angle))
	}
}

func (img *nativeImage) Rotate(ctx context.Context, degrees float64, background color.NRGBA) (engine.Image, error) {
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}
	if err := engine.CheckContext(ctx, "rotate"); err != nil {
		return nil, err
	}
	return img.derive(imaging.Rotate(src, -degrees, background)), nil
}

func (img *nativeImage) Flip(ctx context.Context, direction engine.Direction) (engine.Image, error) {
	src, err := img.pixels(ctx)
	if err != nil {
		return nil, err
	}
	if direction == engine.Vertical {
		return img.derive(imaging.FlipV(src)), nil
	}
	return img.derive(imaging.FlipH(src)), nil
}
