// Package core is the request entry point: it loads the source, runs the
// pipeline and saves the result, converting every failure into a Status.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/loader"
	"github.com/jo-hoe/goimages/internal/pipeline"
	"github.com/jo-hoe/goimages/internal/query"
	"github.com/jo-hoe/goimages/internal/saver"
	"github.com/jo-hoe/goimages/internal/status"
	"github.com/jo-hoe/goimages/internal/stream"
)

// Options configure a Processor. They are read-only once the processor is
// created.
type Options struct {
	// Timeout bounds the processing of a single request, 0 disables it.
	Timeout time.Duration

	Limits loader.Limits
	Save   saver.Options

	// ReservedKeys are query keys consumed by the caller, e.g. the HTTP host.
	ReservedKeys []string
}

// DefaultOptions mirror the public service.
func DefaultOptions() Options {
	return Options{
		Timeout: 10 * time.Second,
		Limits:  loader.Limits{LimitInputPixels: 71000000, MaxPages: 256},
		Save:    saver.DefaultOptions(),
	}
}

// Processor processes requests through an engine. It is safe for
// concurrent use as long as the engine is.
type Processor struct {
	engine   engine.Engine
	loader   *loader.Planner
	pipeline *pipeline.Pipeline
	saver    *saver.Planner
	opts     Options
}

// NewProcessor wires the planners and the default stages for e.
func NewProcessor(e engine.Engine, opts Options) (*Processor, error) {
	return NewProcessorWithRegistry(e, opts, pipeline.DefaultRegistry)
}

// NewProcessorWithRegistry is NewProcessor with the stages created from registry.
func NewProcessorWithRegistry(e engine.Engine, opts Options, registry *pipeline.StageRegistry) (*Processor, error) {
	loaderPlanner := loader.NewPlanner(e, opts.Limits)
	p, err := pipeline.New(&pipeline.Environment{Engine: e, Loader: loaderPlanner}, registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}
	return &Processor{
		engine:   e,
		loader:   loaderPlanner,
		pipeline: p,
		saver:    saver.NewPlanner(e, opts.Save),
		opts:     opts,
	}, nil
}

// Parse builds the directives of a query with the configured parse options.
func (p *Processor) Parse(rawQuery string) *query.Directives {
	return query.Parse(rawQuery,
		query.WithReservedKeys(p.opts.ReservedKeys...),
		query.WithMaxPages(p.opts.Limits.MaxPages))
}

// Process runs rawQuery against src and writes the result to target. Nothing
// is written unless the returned status is OK.
func (p *Processor) Process(ctx context.Context, rawQuery string, src *stream.Source, target stream.Target) status.Status {
	result, s := p.Run(ctx, p.Parse(rawQuery), src)
	if !s.Ok() {
		return s
	}
	if err := write(target, result); err != nil {
		slog.Error("failed to write output", "error", err)
		return status.New(status.Unknown, err.Error())
	}
	return status.OK
}

// ProcessBuffer runs rawQuery against an in-memory image and returns the
// encoded output and its extension.
func (p *Processor) ProcessBuffer(ctx context.Context, rawQuery string, data []byte) ([]byte, string, status.Status) {
	result, s := p.Run(ctx, p.Parse(rawQuery), stream.NewBufferSource(data))
	if !s.Ok() {
		return nil, "", s
	}
	return result.Data, result.Extension, s
}

// Run processes src with already parsed directives.
func (p *Processor) Run(ctx context.Context, d *query.Directives, src *stream.Source) (*saver.Result, status.Status) {
	defer p.engine.ClearState()

	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := p.run(ctx, d, src)
	if err != nil {
		return nil, p.classify(err)
	}

	slog.Info("request processed",
		"output", result.Output.String(),
		"size_bytes", len(result.Data),
		"duration_ms", time.Since(start).Milliseconds())
	return result, status.OK
}

func (p *Processor) run(ctx context.Context, d *query.Directives, src *stream.Source) (*saver.Result, error) {
	img, in, err := p.loader.Load(ctx, src, d)
	if err != nil {
		return nil, err
	}
	img, err = p.pipeline.Run(ctx, img, &pipeline.Request{Directives: d, Input: in})
	if err != nil {
		return nil, err
	}
	if err := engine.CheckContext(ctx, "save"); err != nil {
		return nil, err
	}
	return p.saver.Save(ctx, img, d)
}

// classify converts err into a Status and logs it at a severity matching how
// expected the failure is.
func (p *Processor) classify(err error) status.Status {
	s, ok := status.FromError(err)
	if !ok {
		var engineErr *engine.Error
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			s = status.New(status.LibvipsError, fmt.Sprintf("Maximum image processing time of %s exceeded", p.opts.Timeout))
		case errors.Is(err, context.Canceled):
			s = status.New(status.LibvipsError, "Image processing was cancelled")
		case engine.IsDecodeError(err):
			s = status.New(status.ImageNotReadable, "Image not readable. Is it a valid image?")
		case errors.As(err, &engineErr):
			s = status.New(status.LibvipsError, err.Error())
		default:
			s = status.New(status.Unknown, err.Error())
		}
	}

	switch s.AppCode() {
	case status.InvalidImage:
		slog.Info("request rejected", "code", s.AppCode().String(), "message", s.Message())
	case status.ImageTooLarge, status.UnsupportedSaver:
		slog.Warn("request rejected", "code", s.AppCode().String(), "message", s.Message())
	default:
		slog.Error("request failed", "code", s.AppCode().String(), "message", s.Message(), "error", err)
	}
	return s
}

func write(target stream.Target, result *saver.Result) error {
	if err := target.Setup(result.Extension); err != nil {
		return err
	}
	if _, err := target.Write(result.Data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return target.Finish()
}
