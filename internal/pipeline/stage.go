// Package pipeline runs the ordered transformation stages of a request.
//
// Stages share the request's Directives. Besides the parsed query keys they
// read and write these derived keys:
//
//	angle, flip, flop  written once by ResolveRotationAndFlip, read by
//	                   thumbnail, shrink_on_load and orientation
//	shrink_on_load     cleared by trim
//	premultiplied      set by thumbnail, cleared by embed
//	page_height        written by the loader, thumbnail, alignment and embed
//	has_alpha          written by embed, rotation, background and mask
package pipeline

import (
	"context"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/loader"
	"github.com/jo-hoe/goimages/internal/query"
)

// Stage transforms an image. A stage whose directives are absent returns its
// input unchanged.
type Stage interface {
	Name() string
	Apply(ctx context.Context, img engine.Image, req *Request) (engine.Image, error)
}

// Request is the per-request state handed to every stage.
type Request struct {
	Directives *query.Directives

	// Input is the loaded source, nil when the image was not loaded by a
	// loader.Planner. Shrink-on-load is skipped without it.
	Input *loader.Input
}

// Environment holds what stage factories may depend on.
type Environment struct {
	Engine engine.Engine
	Loader *loader.Planner
}

// StageFactory creates a stage for an environment.
type StageFactory func(env *Environment) (Stage, error)

// funcStage adapts a function to Stage.
type funcStage struct {
	name  string
	apply func(ctx context.Context, img engine.Image, d *query.Directives) (engine.Image, error)
}

func (s *funcStage) Name() string {
	return s.name
}

func (s *funcStage) Apply(ctx context.Context, img engine.Image, req *Request) (engine.Image, error) {
	return s.apply(ctx, img, req.Directives)
}

// register adds a stage without dependencies to the default registry.
func register(name string, apply func(ctx context.Context, img engine.Image, d *query.Directives) (engine.Image, error)) {
	mustRegister(name, func(*Environment) (Stage, error) {
		return &funcStage{name: name, apply: apply}, nil
	})
}
