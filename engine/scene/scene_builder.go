package scene

import (
	"github.com/Carmen-Shannon/oxy-sandbox/engine/light"
	"github.com/mlange-42/arche/ecs"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithEntities adds initial entities to the scene.
//
// Parameters:
//   - entities: the entities to add, in order
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithEntities(entities ...ecs.Entity) SceneBuilderOption {
	return func(s *scene) {
		for _, e := range entities {
			s.addLocked(e)
		}
	}
}

// WithSkybox sets the initial skybox.
//
// Parameters:
//   - sb: the skybox
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSkybox(sb light.Skybox) SceneBuilderOption {
	return func(s *scene) {
		s.skybox = sb
	}
}

// WithIndirectLight sets the initial indirect light.
//
// Parameters:
//   - il: the indirect light
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithIndirectLight(il light.IndirectLight) SceneBuilderOption {
	return func(s *scene) {
		s.indirectLight = il
	}
}
