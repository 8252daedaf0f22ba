// Package saver resolves the output format, admits the result against the
// configured limits and encodes it.
package saver

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/query"
	"github.com/jo-hoe/goimages/internal/status"
)

// Mask is a set of enabled output formats.
type Mask uint16

// MaskOf returns the mask enabling outputs.
func MaskOf(outputs ...query.Output) Mask {
	var m Mask
	for _, o := range outputs {
		m |= 1 << uint(o)
	}
	return m
}

// AllSavers enables every output format.
var AllSavers = MaskOf(query.OutputJpeg, query.OutputPng, query.OutputWebp, query.OutputAvif,
	query.OutputTiff, query.OutputGif, query.OutputJson)

func (m Mask) Has(o query.Output) bool {
	return m&(1<<uint(o)) != 0
}

// Names lists the enabled outputs.
func (m Mask) Names() []string {
	var names []string
	for o := query.OutputJpeg; o <= query.OutputJson; o++ {
		if m.Has(o) {
			names = append(names, o.String())
		}
	}
	return names
}

// Options are the configured encoder defaults.
type Options struct {
	Savers Mask

	// LimitOutputPixels is the largest width*height encoded, 0 for no limit.
	LimitOutputPixels int64

	// Quality is used for every format without its own quality.
	Quality     int
	JpegQuality int
	WebpQuality int
	AvifQuality int
	TiffQuality int

	AvifEffort int
	GifEffort  int

	// ZlibLevel is the default PNG compression level.
	ZlibLevel int
}

// DefaultOptions mirror the public service.
func DefaultOptions() Options {
	return Options{
		Savers:            AllSavers,
		LimitOutputPixels: 71000000,
		Quality:           80,
		AvifEffort:        4,
		GifEffort:         7,
		ZlibLevel:         6,
	}
}

// Result is an encoded image.
type Result struct {
	Data      []byte
	Extension string
	Output    query.Output
}

// Planner encodes images through an engine.
type Planner struct {
	engine engine.Engine
	opts   Options
}

func NewPlanner(e engine.Engine, opts Options) *Planner {
	return &Planner{engine: e, opts: opts}
}

var outputTypes = map[query.Output]engine.ImageType{
	query.OutputJpeg: engine.TypeJpeg,
	query.OutputPng:  engine.TypePng,
	query.OutputWebp: engine.TypeWebp,
	query.OutputAvif: engine.TypeAvif,
	query.OutputTiff: engine.TypeTiff,
	query.OutputGif:  engine.TypeGif,
}

// Format resolves the output format. Without an explicit output the origin
// format is kept, except that images with alpha are not saved as JPEG and
// formats that cannot be saved, by the service or the engine, fall back to
// PNG or JPEG.
func (p *Planner) Format(img engine.Image, d *query.Directives) query.Output {
	if o := d.Output(); o != query.OutputOrigin {
		return o
	}

	origin := engine.ImageType(d.Int(query.KeyType, int(img.Metadata().Format)))
	output := query.OutputOrigin
	for o, t := range outputTypes {
		if t == origin {
			output = o
		}
	}

	if output != query.OutputOrigin && !p.engine.HasSaver(outputTypes[output]) {
		output = query.OutputOrigin
	}

	switch {
	case output == query.OutputOrigin && img.HasAlpha():
		return query.OutputPng
	case output == query.OutputOrigin:
		return query.OutputJpeg
	case output == query.OutputJpeg && img.HasAlpha():
		return query.OutputPng
	default:
		return output
	}
}

// Save checks the result against the saver allow-list and the output pixel
// limit, then encodes it.
func (p *Planner) Save(ctx context.Context, img engine.Image, d *query.Directives) (*Result, error) {
	output := p.Format(img, d)
	if !p.opts.Savers.Has(output) {
		slog.Warn("saver: output format disabled", "output", output.String())
		return nil, status.Errorf(status.UnsupportedSaver, "Saving to %s is disabled. Supported savers: %s",
			output, strings.Join(p.opts.Savers.Names(), ", "))
	}
	if output == query.OutputJson {
		data, err := encodeMetadata(img, d)
		if err != nil {
			return nil, err
		}
		return &Result{Data: data, Extension: ".json", Output: output}, nil
	}

	if limit := p.opts.LimitOutputPixels; limit > 0 && int64(img.Width())*int64(img.Height()) > limit {
		slog.Warn("saver: output too large", "width", img.Width(), "height", img.Height(), "limit", limit)
		return nil, status.Errorf(status.ImageTooLarge, "Output image exceeds pixel limit of %d pixels", limit)
	}

	t := outputTypes[output]
	if !p.engine.HasSaver(t) {
		slog.Warn("saver: engine cannot encode format", "output", output.String())
		return nil, status.Errorf(status.UnsupportedSaver, "Saving to %s is not supported by the image engine", output)
	}

	opts := p.saveOptions(t, img, d)
	var buf bytes.Buffer
	if err := p.engine.Save(ctx, img, opts, &buf); err != nil {
		return nil, err
	}

	slog.Debug("saver: encoded image", "output", output.String(), "size_bytes", buf.Len())
	return &Result{Data: buf.Bytes(), Extension: t.Extension(), Output: output}, nil
}
