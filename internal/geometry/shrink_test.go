package geometry

import (
	"testing"

	"github.com/jo-hoe/goimages/internal/query"
)

func TestResolveShrink(t *testing.T) {
	tests := []struct {
		name  string
		input ShrinkParams
		want  [2]float64
	}{
		{
			name:  "inside uses the larger factor",
			input: ShrinkParams{InputWidth: 400, InputHeight: 200, TargetWidth: 100, TargetHeight: 100, Canvas: query.CanvasMax},
			want:  [2]float64{4, 4},
		},
		{
			name:  "cover uses the smaller factor",
			input: ShrinkParams{InputWidth: 400, InputHeight: 200, TargetWidth: 100, TargetHeight: 100, Canvas: query.CanvasCrop},
			want:  [2]float64{2, 2},
		},
		{
			name:  "outside uses the smaller factor",
			input: ShrinkParams{InputWidth: 400, InputHeight: 200, TargetWidth: 100, TargetHeight: 100, Canvas: query.CanvasMin},
			want:  [2]float64{2, 2},
		},
		{
			name:  "fill keeps both factors",
			input: ShrinkParams{InputWidth: 400, InputHeight: 200, TargetWidth: 100, TargetHeight: 100, Canvas: query.CanvasIgnoreAspect},
			want:  [2]float64{4, 2},
		},
		{
			name:  "fill swaps factors for a pending rotation",
			input: ShrinkParams{InputWidth: 400, InputHeight: 200, TargetWidth: 100, TargetHeight: 100, Canvas: query.CanvasIgnoreAspect, Swap: true},
			want:  [2]float64{2, 4},
		},
		{
			name:  "width only",
			input: ShrinkParams{InputWidth: 400, InputHeight: 200, TargetWidth: 200},
			want:  [2]float64{2, 2},
		},
		{
			name:  "height only with fill",
			input: ShrinkParams{InputWidth: 400, InputHeight: 200, TargetHeight: 50, Canvas: query.CanvasIgnoreAspect},
			want:  [2]float64{1, 4},
		},
		{
			name:  "rotation swaps input dimensions",
			input: ShrinkParams{InputWidth: 400, InputHeight: 200, TargetWidth: 100, Swap: true},
			want:  [2]float64{2, 2},
		},
		{
			name:  "enlargement allowed by default",
			input: ShrinkParams{InputWidth: 100, InputHeight: 100, TargetWidth: 400},
			want:  [2]float64{0.25, 0.25},
		},
		{
			name:  "without enlargement clamps to 1",
			input: ShrinkParams{InputWidth: 100, InputHeight: 100, TargetWidth: 400, WithoutEnlargement: true},
			want:  [2]float64{1, 1},
		},
		{
			name:  "never below one pixel",
			input: ShrinkParams{InputWidth: 1000, InputHeight: 10, TargetWidth: 1, TargetHeight: 1, Canvas: query.CanvasIgnoreAspect},
			want:  [2]float64{1000, 10},
		},
		{
			name:  "no target",
			input: ShrinkParams{InputWidth: 1000, InputHeight: 10},
			want:  [2]float64{1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, v := ResolveShrink(tt.input)
			if h != tt.want[0] || v != tt.want[1] {
				t.Errorf("ResolveShrink() = (%v, %v), want %v", h, v, tt.want)
			}
		})
	}
}

func TestCommonShrink(t *testing.T) {
	if got := CommonShrink(4, 2); got != 2 {
		t.Fatalf("CommonShrink(4, 2) = %v", got)
	}
}

func TestTargetSize(t *testing.T) {
	w, h := TargetSize(query.Parse("w=100&h=50&dpr=2"))
	if w != 200 || h != 100 {
		t.Fatalf("TargetSize() = %dx%d, want 200x100", w, h)
	}

	w, h = TargetSize(query.Parse("w=-5&h=abc&dpr=20"))
	if w != 0 || h != 0 {
		t.Fatalf("TargetSize() = %dx%d, want 0x0", w, h)
	}
}

func TestShrink_UsesPendingRotation(t *testing.T) {
	d := query.Parse("w=100")
	d.Update(query.KeyAngle, query.IntValue(90))
	h, _ := Shrink(d, 400, 200)
	if h != 2 {
		t.Fatalf("expected the swapped width 200 to be shrunk by 2, got %v", h)
	}

	d = query.Parse("w=100&precrop")
	d.Update(query.KeyAngle, query.IntValue(90))
	h, _ = Shrink(d, 400, 200)
	if h != 4 {
		t.Fatalf("expected precrop to ignore the rotation, got %v", h)
	}
}

func TestExifTransform(t *testing.T) {
	tests := []struct {
		orientation int
		angle       int
		flip, flop  bool
	}{
		{orientation: 1, angle: 0},
		{orientation: 2, angle: 0, flop: true},
		{orientation: 3, angle: 180},
		{orientation: 4, angle: 180, flop: true},
		{orientation: 5, angle: 270, flip: true},
		{orientation: 6, angle: 90},
		{orientation: 7, angle: 90, flip: true},
		{orientation: 8, angle: 270},
	}
	for _, tt := range tests {
		angle, flip, flop := ExifTransform(tt.orientation)
		if angle != tt.angle || flip != tt.flip || flop != tt.flop {
			t.Errorf("ExifTransform(%d) = (%d,%v,%v), want (%d,%v,%v)",
				tt.orientation, angle, flip, flop, tt.angle, tt.flip, tt.flop)
		}
	}
}

func TestCombineRotation(t *testing.T) {
	if got := CombineRotation(90, 270); got != 0 {
		t.Errorf("CombineRotation(90, 270) = %d", got)
	}
	if got := CombineRotation(90, 45); got != 90 {
		t.Errorf("CombineRotation(90, 45) = %d", got)
	}
	if got := CombineRotation(0, -90); got != 270 {
		t.Errorf("CombineRotation(0, -90) = %d", got)
	}
}
