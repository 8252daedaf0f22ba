package saver

import (
	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/geometry"
	"github.com/jo-hoe/goimages/internal/query"
)

type optionsBuilder func(p *Planner, d *query.Directives, opts *engine.SaveOptions)

var optionBuilders = map[engine.ImageType]optionsBuilder{
	engine.TypeJpeg: jpegOptions,
	engine.TypePng:  pngOptions,
	engine.TypeWebp: webpOptions,
	engine.TypeAvif: avifOptions,
	engine.TypeTiff: tiffOptions,
	engine.TypeGif:  gifOptions,
}

func (p *Planner) saveOptions(t engine.ImageType, img engine.Image, d *query.Directives) engine.SaveOptions {
	opts := engine.SaveOptions{Format: t}
	if build, ok := optionBuilders[t]; ok {
		build(p, d, &opts)
	}

	if geometry.IsMultiPage(d) {
		opts.PageHeight = d.Int(query.KeyPageHeight, img.Height())
		if t == engine.TypeGif || t == engine.TypeWebp {
			meta := img.Metadata()
			opts.Loop = meta.Loop
			opts.Delay = frameDelays(d, meta.Delay, img.Height()/max(1, opts.PageHeight))
		}
	}
	return opts
}

// frameDelays returns the requested delays, falling back to those of the
// source. A single delay applies to every frame.
func frameDelays(d *query.Directives, source []int, frames int) []int {
	delays := d.Ints(query.KeyDelay)
	for _, delay := range delays {
		if delay < 0 {
			delays = nil
			break
		}
	}
	if len(delays) == 0 {
		return source
	}
	if len(delays) == 1 && frames > 1 {
		replicated := make([]int, frames)
		for i := range replicated {
			replicated[i] = delays[0]
		}
		return replicated
	}
	return delays
}

func (p *Planner) quality(d *query.Directives, formatQuality int) int {
	def := p.opts.Quality
	if formatQuality > 0 {
		def = formatQuality
	}
	return d.IntIf(query.KeyQuality, func(q int) bool { return q >= 1 && q <= 100 }, def)
}

func jpegOptions(p *Planner, d *query.Directives, opts *engine.SaveOptions) {
	opts.Quality = p.quality(d, p.opts.JpegQuality)
	opts.Interlace = d.Bool(query.KeyInterlace, false)
	opts.OptimizeCoding = true
}

func pngOptions(p *Planner, d *query.Directives, opts *engine.SaveOptions) {
	opts.Compression = d.IntIf(query.KeyCompression, func(l int) bool { return l >= 0 && l <= 9 }, p.opts.ZlibLevel)
	opts.AdaptiveFiltering = d.Bool(query.KeyAdaptiveFilter, false)
	opts.Interlace = d.Bool(query.KeyInterlace, false)
}

func webpOptions(p *Planner, d *query.Directives, opts *engine.SaveOptions) {
	opts.Quality = p.quality(d, p.opts.WebpQuality)
	opts.AlphaQuality = 100
	opts.Lossless = d.Bool(query.KeyLossless, false)
}

func avifOptions(p *Planner, d *query.Directives, opts *engine.SaveOptions) {
	opts.Quality = p.quality(d, p.opts.AvifQuality)
	opts.AV1 = true
	opts.Effort = p.opts.AvifEffort
}

func tiffOptions(p *Planner, d *query.Directives, opts *engine.SaveOptions) {
	opts.Quality = p.quality(d, p.opts.TiffQuality)
	opts.TiffCompression = "jpeg"
}

func gifOptions(p *Planner, _ *query.Directives, opts *engine.SaveOptions) {
	if p.engine.Capabilities().GifEffort {
		opts.Effort = p.opts.GifEffort
		return
	}
	opts.FormatHint = "gif"
}
