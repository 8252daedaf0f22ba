package native

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"github.com/jo-hoe/goimages/internal/engine"
)

// scaleTo resamples src to exactly width x height.
func scaleTo(src *image.NRGBA, width, height int) *image.NRGBA {
	if src.Rect.Dx() == width && src.Rect.Dy() == height {
		return src
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func scaled(v int, scale float64) int {
	return max(1, int(math.Round(float64(v)*scale)))
}

// pageRange resolves the requested pages against the number of pages in the file.
func pageRange(opts engine.LoadOptions, total int) (first, count int, err error) {
	first = max(0, opts.Page)
	count = opts.Pages
	if count == -1 {
		count = total - first
	}
	count = max(1, count)
	if first+count > total {
		return 0, 0, fmt.Errorf("pages %d to %d out of range, image has %d", first, first+count-1, total)
	}
	return first, count, nil
}

func loadJPEG(data []byte, opts engine.LoadOptions) (engine.Image, error) {
	h, err := readJPEGHeader(data)
	if err != nil {
		return nil, engine.NewDecodeError("jpegload", err)
	}
	shrink := max(1, opts.Shrink)
	width := ceilDiv(h.width, shrink)
	height := ceilDiv(h.height, shrink)
	h.meta.PageHeight = height

	return lazyImage(width, height, h.bands, h.meta, func(ctx context.Context) (*image.NRGBA, error) {
		src, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, engine.NewDecodeError("jpegload", err)
		}
		if err := engine.CheckContext(ctx, "jpegload"); err != nil {
			return nil, err
		}
		return scaleTo(toNRGBA(src), width, height), nil
	}), nil
}

func loadPNG(data []byte, _ engine.LoadOptions) (engine.Image, error) {
	h, err := readPNGHeader(data)
	if err != nil {
		return nil, engine.NewDecodeError("pngload", err)
	}
	return lazyImage(h.width, h.height, h.bands, h.meta, func(ctx context.Context) (*image.NRGBA, error) {
		src, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, engine.NewDecodeError("pngload", err)
		}
		return toNRGBA(src), nil
	}), nil
}

func loadGIF(data []byte, opts engine.LoadOptions) (engine.Image, error) {
	h, err := readGIFHeader(data)
	if err != nil {
		return nil, engine.NewDecodeError("gifload", err)
	}
	first, count, err := pageRange(opts, h.meta.Pages)
	if err != nil {
		return nil, engine.NewDecodeError("gifload", err)
	}
	h.meta.Delay = h.meta.Delay[first : first+count]

	return lazyImage(h.width, h.height*count, h.bands, h.meta, func(ctx context.Context) (*image.NRGBA, error) {
		g, err := gif.DecodeAll(bytes.NewReader(data))
		if err != nil {
			return nil, engine.NewDecodeError("gifload", err)
		}
		return composeGIF(ctx, g, first, count)
	}), nil
}

// composeGIF renders frames [first, first+count) onto the logical screen,
// honouring the disposal methods, and stacks them vertically.
func composeGIF(ctx context.Context, g *gif.GIF, first, count int) (*image.NRGBA, error) {
	width, height := g.Config.Width, g.Config.Height
	if first+count > len(g.Image) {
		return nil, engine.NewDecodeError("gifload", fmt.Errorf("gif has %d frames", len(g.Image)))
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, width, height))
	out := image.NewNRGBA(image.Rect(0, 0, width, height*count))
	for i := 0; i < first+count; i++ {
		if err := engine.CheckContext(ctx, "gifload"); err != nil {
			return nil, err
		}
		frame := g.Image[i]
		disposal := byte(gif.DisposalNone)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}

		var saved *image.NRGBA
		if disposal == gif.DisposalPrevious {
			saved = cloneNRGBA(canvas)
		}
		xdraw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, xdraw.Over)
		if i >= first {
			row := (i - first) * height
			xdraw.Draw(out, image.Rect(0, row, width, row+height), canvas, image.Point{}, xdraw.Src)
		}

		switch disposal {
		case gif.DisposalBackground:
			xdraw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, xdraw.Src)
		case gif.DisposalPrevious:
			canvas = saved
		}
	}
	return out, nil
}

func cloneNRGBA(src *image.NRGBA) *image.NRGBA {
	dst := image.NewNRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}

func loadTIFF(data []byte, opts engine.LoadOptions) (engine.Image, error) {
	order, pages, profile, err := readTIFFPages(data)
	if err != nil {
		return nil, engine.NewDecodeError("tiffload", err)
	}
	first, count, err := pageRange(opts, len(pages))
	if err != nil {
		return nil, engine.NewDecodeError("tiffload", err)
	}
	selected := pages[first : first+count]
	for _, p := range selected[1:] {
		if p.width != selected[0].width || p.height != selected[0].height {
			return nil, engine.NewDecodeError("tiffload", fmt.Errorf("pages differ in size"))
		}
	}

	cfg, err := tiff.DecodeConfig(bytes.NewReader(rebaseTIFF(data, order, selected[0])))
	if err != nil {
		return nil, engine.NewDecodeError("tiffload", err)
	}
	meta := engine.Metadata{
		Format:     engine.TypeTiff,
		Pages:      len(pages),
		PageHeight: cfg.Height,
		Depth:      "uchar",
		HasProfile: profile,
	}
	bands := modelBands(cfg.ColorModel)
	if cfg.ColorModel == color.Gray16Model || cfg.ColorModel == color.RGBA64Model || cfg.ColorModel == color.NRGBA64Model {
		meta.Depth = "ushort"
	}

	return lazyImage(cfg.Width, cfg.Height*count, bands, meta, func(ctx context.Context) (*image.NRGBA, error) {
		out := image.NewNRGBA(image.Rect(0, 0, cfg.Width, cfg.Height*count))
		for i, p := range selected {
			if err := engine.CheckContext(ctx, "tiffload"); err != nil {
				return nil, err
			}
			src, err := tiff.Decode(bytes.NewReader(rebaseTIFF(data, order, p)))
			if err != nil {
				return nil, engine.NewDecodeError("tiffload", err)
			}
			row := i * cfg.Height
			xdraw.Draw(out, image.Rect(0, row, cfg.Width, row+cfg.Height), src, src.Bounds().Min, xdraw.Src)
		}
		return out, nil
	}), nil
}

func modelBands(model color.Model) int {
	switch model {
	case color.GrayModel, color.Gray16Model:
		return 1
	case color.RGBAModel, color.NRGBAModel, color.RGBA64Model, color.NRGBA64Model, color.AlphaModel:
		return 4
	default:
		return 3
	}
}

func loadWebP(data []byte, opts engine.LoadOptions) (engine.Image, error) {
	cfg, err := webp.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, engine.NewDecodeError("webpload", err)
	}
	if _, _, err := pageRange(opts, 1); err != nil {
		return nil, engine.NewDecodeError("webpload", err)
	}

	width, height := cfg.Width, cfg.Height
	if opts.Scale > 0 {
		width, height = scaled(width, opts.Scale), scaled(height, opts.Scale)
	}
	bands := 3
	if webpHasAlpha(data) {
		bands = 4
	}
	meta := engine.Metadata{Format: engine.TypeWebp, Pages: 1, PageHeight: height, Depth: "uchar"}

	return lazyImage(width, height, bands, meta, func(ctx context.Context) (*image.NRGBA, error) {
		src, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, engine.NewDecodeError("webpload", err)
		}
		return scaleTo(toNRGBA(src), width, height), nil
	}), nil
}

// loadBMP serves the catch-all loader for formats outside the dedicated ones.
func loadBMP(data []byte, _ engine.LoadOptions) (engine.Image, error) {
	cfg, err := bmp.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, engine.NewDecodeError("magickload", err)
	}
	meta := engine.Metadata{Format: engine.TypeMagick, Pages: 1, PageHeight: cfg.Height, Depth: "uchar"}

	return lazyImage(cfg.Width, cfg.Height, modelBands(cfg.ColorModel), meta, func(ctx context.Context) (*image.NRGBA, error) {
		src, err := bmp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, engine.NewDecodeError("magickload", err)
		}
		return toNRGBA(src), nil
	}), nil
}

func loadSVG(data []byte, opts engine.LoadOptions) (engine.Image, error) {
	h, icon, err := readSVGHeader(data)
	if err != nil {
		return nil, engine.NewDecodeError("svgload", err)
	}
	width, height := h.width, h.height
	if opts.Scale > 0 {
		width, height = scaled(width, opts.Scale), scaled(height, opts.Scale)
	}
	h.meta.PageHeight = height

	return lazyImage(width, height, h.bands, h.meta, func(ctx context.Context) (*image.NRGBA, error) {
		pix, err := renderSVG(ctx, icon, width, height)
		if err != nil {
			return nil, engine.NewDecodeError("svgload", err)
		}
		return pix, nil
	}), nil
}
