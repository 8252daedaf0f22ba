package pipeline

import (
	"fmt"
	"strings"
)

// StageRegistry maps stage names to their factories.
type StageRegistry struct {
	factories map[string]StageFactory
}

func NewStageRegistry() *StageRegistry {
	return &StageRegistry{
		factories: make(map[string]StageFactory),
	}
}

// Register adds factory under name. Names are registered once.
func (r *StageRegistry) Register(name string, factory StageFactory) error {
	switch {
	case name == "":
		return fmt.Errorf("stage name cannot be empty")
	case factory == nil:
		return fmt.Errorf("stage %s has no factory", name)
	case r.IsRegistered(name):
		return fmt.Errorf("stage %s is already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Create builds the stage name for env.
func (r *StageRegistry) Create(name string, env *Environment) (Stage, error) {
	factory, exists := r.factories[name]
	if !exists {
		return nil, fmt.Errorf("unknown stage: %s", name)
	}

	stage, err := factory(env)
	if err != nil {
		return nil, fmt.Errorf("failed to create stage %s: %w", name, err)
	}
	if stage.Name() != name {
		return nil, fmt.Errorf("factory for stage %s built stage %s", name, stage.Name())
	}
	return stage, nil
}

func (r *StageRegistry) IsRegistered(name string) bool {
	_, exists := r.factories[name]
	return exists
}

// require reports every name in names that has no factory.
func (r *StageRegistry) require(names []string) error {
	var missing []string
	for _, name := range names {
		if !r.IsRegistered(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("registry is missing stages: %s", strings.Join(missing, ", "))
	}
	return nil
}

// DefaultRegistry holds every stage of the pipeline.
var DefaultRegistry = NewStageRegistry()

func mustRegister(name string, factory StageFactory) {
	if err := DefaultRegistry.Register(name, factory); err != nil {
		panic(fmt.Sprintf("failed to register stage %s: %v", name, err))
	}
}
