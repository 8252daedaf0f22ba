package pipeline

import (
	"context"
	"log/slog"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/geometry"
	"github.com/jo-hoe/goimages/internal/query"
)

const defaultTrimThreshold = 10

// trim removes the border that matches the top-left pixel.
func trim(ctx context.Context, img engine.Image, d *query.Directives) (engine.Image, error) {
	if !d.Exists(query.KeyTrim) {
		return img, nil
	}
	threshold := d.IntIf(query.KeyTrim, func(t int) bool { return t >= 1 && t <= 254 }, defaultTrimThreshold)

	// a reload would bring back the untrimmed source
	d.Update(query.KeyShrinkOnLoad, query.BoolValue(false))

	background, err := img.Point(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	left, top, width, height, err := img.FindTrim(ctx, float64(threshold), background)
	if err != nil {
		return nil, err
	}
	if width == 0 || height == 0 {
		slog.Debug("trim: nothing differs from the background, keeping image")
		return img, nil
	}
	if geometry.IsMultiPage(d) {
		top = 0
		height = img.Height()
	}
	return img.ExtractArea(ctx, left, top, width, height)
}

func init() {
	register(StageTrim, trim)
}
