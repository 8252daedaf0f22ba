package pipeline

import (
	"context"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/query"
)

// backgroundStage fills the transparent parts of the image with bg.
type backgroundStage struct {
	engine engine.Engine
}

func newBackgroundStage(env *Environment) (Stage, error) {
	return &backgroundStage{engine: env.Engine}, nil
}

func (s *backgroundStage) Name() string {
	return StageBackground
}

func (s *backgroundStage) Apply(ctx context.Context, img engine.Image, req *Request) (engine.Image, error) {
	d := req.Directives
	if !d.Exists(query.KeyBackground) || !img.HasAlpha() {
		return img, nil
	}
	bg := d.Color(query.KeyBackground, query.Transparent)
	if bg.IsTransparent() {
		return img, nil
	}

	out, hasAlpha, err := blendBackground(ctx, s.engine, img, bg)
	if err != nil {
		return nil, err
	}
	d.Update(query.KeyHasAlpha, query.BoolValue(hasAlpha))
	return out, nil
}

func init() {
	mustRegister(StageBackground, newBackgroundStage)
}
