package pipeline

import (
	"context"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/geometry"
	"github.com/jo-hoe/goimages/internal/query"
)

// ResolveRotationAndFlip combines the EXIF orientation of img with the
// requested ro, flip and flop into the derived angle, flip and flop keys. It
// runs once per request; later calls see angle and return.
//
// Mirroring twice cancels out, so a requested flip on an image whose EXIF
// tag already flips it leaves it unflipped. Stacked pages are never rotated
// or flipped vertically.
func ResolveRotationAndFlip(img engine.Image, d *query.Directives) {
	if d.Exists(query.KeyAngle) {
		return
	}
	exifAngle, exifFlip, exifFlop := geometry.ExifTransform(img.Metadata().Orientation)

	angle := geometry.CombineRotation(exifAngle, d.Int(query.KeyRotate, 0))
	flip := d.Bool(query.KeyFlip, false) != exifFlip
	flop := d.Bool(query.KeyFlop, false) != exifFlop
	if geometry.IsMultiPage(d) {
		angle = 0
		flip = false
	}

	d.Update(query.KeyAngle, query.IntValue(angle))
	d.Update(query.KeyFlip, query.BoolValue(flip))
	d.Update(query.KeyFlop, query.BoolValue(flop))
}

// orientation applies the resolved rotation and mirroring and drops the
// orientation tag so it is not applied twice by viewers.
func orientation(ctx context.Context, img engine.Image, d *query.Directives) (engine.Image, error) {
	ResolveRotationAndFlip(img, d)

	var err error
	if angle := d.Int(query.KeyAngle, 0); angle != 0 {
		if img, err = img.Rot(ctx, engine.Angle(angle)); err != nil {
			return nil, err
		}
	}
	if d.Bool(query.KeyFlip, false) {
		if img, err = img.Flip(ctx, engine.Vertical); err != nil {
			return nil, err
		}
	}
	if d.Bool(query.KeyFlop, false) {
		if img, err = img.Flip(ctx, engine.Horizontal); err != nil {
			return nil, err
		}
	}

	if meta := img.Metadata(); meta.Orientation != 0 {
		meta.Orientation = 0
		img = img.WithMetadata(meta)
	}
	return img, nil
}

func init() {
	register(StageOrientation, orientation)
}
