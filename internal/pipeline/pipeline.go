package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/query"
)

// Stage names.
const (
	StageTrim         = "trim"
	StageShrinkOnLoad = "shrink_on_load"
	StageThumbnail    = "thumbnail"
	StageOrientation  = "orientation"
	StageAlignment    = "alignment"
	StageCrop         = "crop"
	StageEmbed        = "embed"
	StageRotation     = "rotation"
	StageBrightness   = "brightness"
	StageModulate     = "modulate"
	StageContrast     = "contrast"
	StageGamma        = "gamma"
	StageSharpen      = "sharpen"
	StageFilter       = "filter"
	StageBlur         = "blur"
	StageTint         = "tint"
	StageBackground   = "background"
	StageMask         = "mask"
)

var (
	// precrop extracts the crop rectangle before resizing, which rules out
	// shrink-on-load.
	precropOrder = []string{StageOrientation, StageCrop, StageThumbnail, StageAlignment}
	resizeOrder  = []string{StageShrinkOnLoad, StageThumbnail, StageOrientation, StageAlignment, StageCrop}
	effectOrder  = []string{
		StageEmbed, StageRotation, StageBrightness, StageModulate, StageContrast, StageGamma,
		StageSharpen, StageFilter, StageBlur, StageTint, StageBackground, StageMask,
	}
)

// Order returns the names of the stages run for d.
func Order(d *query.Directives) []string {
	order := []string{StageTrim}
	if d.Bool(query.KeyPrecrop, false) {
		order = append(order, precropOrder...)
	} else {
		order = append(order, resizeOrder...)
	}
	return append(order, effectOrder...)
}

func stageNames() []string {
	names := []string{StageTrim}
	names = append(names, resizeOrder...)
	return append(names, effectOrder...)
}

// Pipeline executes the stages in order.
type Pipeline struct {
	stages map[string]Stage
}

// New creates every stage from registry for env.
func New(env *Environment, registry *StageRegistry) (*Pipeline, error) {
	if err := registry.require(stageNames()); err != nil {
		return nil, err
	}
	stages := make(map[string]Stage)
	for _, name := range stageNames() {
		stage, err := registry.Create(name, env)
		if err != nil {
			return nil, err
		}
		stages[name] = stage
	}
	return &Pipeline{stages: stages}, nil
}

// Run applies the stages selected by the request directives to img.
func (p *Pipeline) Run(ctx context.Context, img engine.Image, req *Request) (engine.Image, error) {
	start := time.Now()
	order := Order(req.Directives)

	slog.Debug("starting image processing pipeline",
		"stage_count", len(order),
		"width", img.Width(),
		"height", img.Height())

	current := img
	for idx, name := range order {
		if err := engine.CheckContext(ctx, name); err != nil {
			return nil, err
		}
		stageStart := time.Now()

		processed, err := p.stages[name].Apply(ctx, current, req)
		if err != nil {
			slog.Error("stage execution failed",
				"index", idx,
				"stage_name", name,
				"error", err)
			return nil, fmt.Errorf("stage %s (index %d) failed: %w", name, idx, err)
		}

		slog.Debug("stage completed",
			"index", idx,
			"stage_name", name,
			"duration_ms", time.Since(stageStart).Milliseconds(),
			"width", processed.Width(),
			"height", processed.Height())

		current = processed
	}

	slog.Info("image processing pipeline completed",
		"total_duration_ms", time.Since(start).Milliseconds(),
		"stage_count", len(order),
		"width", current.Width(),
		"height", current.Height(),
		"bands", current.Bands())

	return current, nil
}
