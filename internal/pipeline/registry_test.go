package pipeline

import (
	"context"
	"slices"
	"testing"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/query"
)

type passStage struct {
	name string
}

func (s *passStage) Name() string {
	return s.name
}

func (s *passStage) Apply(_ context.Context, img engine.Image, _ *Request) (engine.Image, error) {
	return img, nil
}

func passFactory(name string) StageFactory {
	return func(*Environment) (Stage, error) {
		return &passStage{name: name}, nil
	}
}

func TestStageRegistry_Register(t *testing.T) {
	registry := NewStageRegistry()

	if err := registry.Register("", passFactory("")); err == nil {
		t.Error("Expected error for empty stage name")
	}
	if err := registry.Register("blur", nil); err == nil {
		t.Error("Expected error for nil factory")
	}
	if err := registry.Register("blur", passFactory("blur")); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := registry.Register("blur", passFactory("blur")); err == nil {
		t.Error("Expected error for duplicate registration")
	}
	if !registry.IsRegistered("blur") {
		t.Error("Expected blur to be registered")
	}
}

func TestStageRegistry_CreateUnknown(t *testing.T) {
	registry := NewStageRegistry()
	if _, err := registry.Create("missing", &Environment{}); err == nil {
		t.Error("Expected error for unknown stage")
	}
}

func TestStageRegistry_CreateMismatchedName(t *testing.T) {
	registry := NewStageRegistry()
	if err := registry.Register("blur", passFactory("sharpen")); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := registry.Create("blur", &Environment{}); err == nil {
		t.Error("Expected error for a factory building another stage")
	}
}

func TestStageRegistry_Require(t *testing.T) {
	registry := NewStageRegistry()
	if err := registry.Register("blur", passFactory("blur")); err != nil {
		t.Fatal(err)
	}

	if err := registry.require([]string{"blur"}); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	err := registry.require([]string{"trim", "blur", "mask"})
	if err == nil {
		t.Fatal("Expected error for missing stages")
	}
	if want := "registry is missing stages: trim, mask"; err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}

func TestDefaultRegistry_HasAllStages(t *testing.T) {
	if err := DefaultRegistry.require(stageNames()); err != nil {
		t.Error(err)
	}
}

func TestOrder(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{StageTrim, StageShrinkOnLoad, StageThumbnail, StageOrientation, StageAlignment, StageCrop}},
		{"precrop", []string{StageTrim, StageOrientation, StageCrop, StageThumbnail, StageAlignment}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			order := Order(query.Parse(tt.query))
			if !slices.Equal(order[:len(tt.want)], tt.want) {
				t.Errorf("Expected order to start with %v, got %v", tt.want, order)
			}
			if last := order[len(order)-1]; last != StageMask {
				t.Errorf("Expected mask to run last, got %s", last)
			}
			if len(order) != len(tt.want)+len(effectOrder) {
				t.Errorf("Expected %d stages, got %d", len(tt.want)+len(effectOrder), len(order))
			}
		})
	}
}
