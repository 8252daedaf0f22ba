package native

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/chai2010/webp"
	"golang.org/x/image/tiff"

	"github.com/jo-hoe/goimages/internal/engine"
)

type saveFunc func(ctx context.Context, img *nativeImage, pix *image.NRGBA, opts engine.SaveOptions, w io.Writer) error

var savers = map[engine.ImageType]saveFunc{
	engine.TypeJpeg: saveJPEG,
	engine.TypePng:  savePNG,
	engine.TypeGif:  saveGIF,
	engine.TypeTiff: saveTIFF,
	engine.TypeWebp: saveWebP,
}

func (e *Engine) Save(ctx context.Context, img engine.Image, opts engine.SaveOptions, w io.Writer) error {
	save, ok := savers[opts.Format]
	if !ok {
		return engine.NewError("save", fmt.Errorf("%w: saver %s", engine.ErrUnsupported, opts.Format))
	}
	n, err := asNative("save", img)
	if err != nil {
		return err
	}
	unpremultiplied, err := n.Unpremultiply(ctx)
	if err != nil {
		return err
	}
	n = unpremultiplied.(*nativeImage)

	pix, err := n.pixels(ctx)
	if err != nil {
		return err
	}
	if err := engine.CheckContext(ctx, opts.Format.String()+"save"); err != nil {
		return err
	}
	if err := save(ctx, n, pix, opts, w); err != nil {
		return engine.NewError(opts.Format.String()+"save", err)
	}
	return nil
}

// grey copies the first band of pix into a single channel image.
func grey(pix *image.NRGBA) *image.Gray {
	out := image.NewGray(pix.Rect)
	for y := 0; y < pix.Rect.Dy(); y++ {
		for x := 0; x < pix.Rect.Dx(); x++ {
			out.Pix[y*out.Stride+x] = pix.Pix[y*pix.Stride+x*4]
		}
	}
	return out
}

func saveJPEG(_ context.Context, img *nativeImage, pix *image.NRGBA, opts engine.SaveOptions, w io.Writer) error {
	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	var src image.Image = pix
	if img.colorBands() == 1 {
		src = grey(pix)
	}
	return jpeg.Encode(w, src, &jpeg.Options{Quality: quality})
}

func savePNG(_ context.Context, img *nativeImage, pix *image.NRGBA, opts engine.SaveOptions, w io.Writer) error {
	encoder := png.Encoder{CompressionLevel: pngCompression(opts.Compression)}
	var src image.Image = pix
	if img.bands == 1 {
		src = grey(pix)
	}
	return encoder.Encode(w, src)
}

// pngCompression maps a zlib level onto the levels of the Go encoder.
func pngCompression(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

// saveGIF splits the stacked image into frames of PageHeight rows.
func saveGIF(ctx context.Context, img *nativeImage, pix *image.NRGBA, opts engine.SaveOptions, w io.Writer) error {
	width, height := pix.Rect.Dx(), pix.Rect.Dy()
	pageHeight := opts.PageHeight
	if pageHeight <= 0 || height%pageHeight != 0 {
		pageHeight = height
	}
	frames := height / pageHeight

	pal := color.Palette(palette.WebSafe)
	if img.HasAlpha() {
		pal = append(color.Palette{color.Transparent}, palette.WebSafe...)
	}
	var drawer draw.Drawer = draw.Src
	if opts.Effort >= 7 {
		drawer = draw.FloydSteinberg
	}

	anim := &gif.GIF{LoopCount: opts.Loop}
	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame := image.NewPaletted(image.Rect(0, 0, width, pageHeight), pal)
		drawer.Draw(frame, frame.Bounds(), pix, image.Pt(0, i*pageHeight))

		delay := 10
		if len(opts.Delay) > 0 {
			delay = opts.Delay[min(i, len(opts.Delay)-1)] / 10
		}
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, delay)
		anim.Disposal = append(anim.Disposal, gif.DisposalBackground)
	}
	return gif.EncodeAll(w, anim)
}

func saveTIFF(_ context.Context, _ *nativeImage, pix *image.NRGBA, _ engine.SaveOptions, w io.Writer) error {
	return tiff.Encode(w, pix, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// saveWebP encodes the stacked pages as a single still image. An alpha
// quality below 100 is not supported by the encoder and is ignored.
func saveWebP(_ context.Context, _ *nativeImage, pix *image.NRGBA, opts engine.SaveOptions, w io.Writer) error {
	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return webp.Encode(w, pix, &webp.Options{Lossless: opts.Lossless, Quality: float32(quality), Exact: opts.Lossless})
}
