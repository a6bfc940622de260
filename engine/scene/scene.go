package scene

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/light"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderable"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/mlange-42/arche/ecs"
)

// Components resolves the engine components attached to an entity. The engine implements it over its ECS world.
type Components interface {
	// Renderable returns the renderable component of an entity.
	Renderable(e ecs.Entity) (renderable.Renderable, bool)

	// Light returns the light component of an entity.
	Light(e ecs.Entity) (light.Light, bool)
}

// Scene is the set of entities a View draws, plus the skybox and indirect light that surround them.
// Entities keep their insertion order. Components are looked up on every query so a scene never holds
// a component past its destruction.
// Thread-safe for concurrent access.
type Scene interface {
	resource.Resource

	// Add inserts an entity. Adding an entity twice is a no-op.
	//
	// Parameters:
	//   - e: the entity to add
	Add(e ecs.Entity)

	// Remove drops an entity. Removing an absent entity is a no-op.
	//
	// Parameters:
	//   - e: the entity to remove
	Remove(e ecs.Entity)

	// Has reports whether the entity is part of the scene.
	Has(e ecs.Entity) bool

	// Entities returns the entities in insertion order.
	Entities() []ecs.Entity

	// Len returns the number of entities.
	Len() int

	// Skybox returns the skybox, or nil.
	Skybox() light.Skybox

	// SetSkybox replaces the skybox. nil removes it.
	SetSkybox(sb light.Skybox)

	// IndirectLight returns the indirect light, or nil.
	IndirectLight() light.IndirectLight

	// SetIndirectLight replaces the indirect light. nil removes it.
	SetIndirectLight(il light.IndirectLight)

	// Renderables returns the renderable components of the scene's entities, in insertion order.
	Renderables() []renderable.Renderable

	// Lights returns the light components of the scene's entities, in insertion order.
	Lights() []light.Light
}

type scene struct {
	mu *sync.Mutex

	handle     resource.Handle
	components Components

	entities []ecs.Entity
	index    map[ecs.Entity]int

	skybox        light.Skybox
	indirectLight light.IndirectLight
}

var _ Scene = &scene{}

// NewScene creates an empty scene that resolves components through the given lookup.
// NewScene panics if components is nil.
//
// Parameters:
//   - handle: the registry handle of the scene
//   - components: the entity component lookup
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the new scene
func NewScene(handle resource.Handle, components Components, options ...SceneBuilderOption) Scene {
	if components == nil {
		panic("scene: NewScene requires non-nil Components")
	}
	s := &scene{
		mu:         &sync.Mutex{},
		handle:     handle,
		components: components,
		index:      make(map[ecs.Entity]int),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *scene) Handle() resource.Handle {
	return s.handle
}

func (s *scene) Add(e ecs.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(e)
}

func (s *scene) addLocked(e ecs.Entity) {
	if _, ok := s.index[e]; ok {
		return
	}
	s.index[e] = len(s.entities)
	s.entities = append(s.entities, e)
}

func (s *scene) Remove(e ecs.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[e]
	if !ok {
		return
	}
	s.entities = append(s.entities[:i], s.entities[i+1:]...)
	delete(s.index, e)
	for j := i; j < len(s.entities); j++ {
		s.index[s.entities[j]] = j
	}
}

func (s *scene) Has(e ecs.Entity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.index[e]
	return ok
}

func (s *scene) Entities() []ecs.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]ecs.Entity(nil), s.entities...)
}

func (s *scene) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entities)
}

func (s *scene) Skybox() light.Skybox {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.skybox
}

func (s *scene) SetSkybox(sb light.Skybox) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.skybox = sb
}

func (s *scene) IndirectLight() light.IndirectLight {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.indirectLight
}

func (s *scene) SetIndirectLight(il light.IndirectLight) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.indirectLight = il
}

func (s *scene) Renderables() []renderable.Renderable {
	entities := s.Entities()
	out := make([]renderable.Renderable, 0, len(entities))
	for _, e := range entities {
		if r, ok := s.components.Renderable(e); ok {
			out = append(out, r)
		}
	}
	return out
}

func (s *scene) Lights() []light.Light {
	entities := s.Entities()
	out := make([]light.Light, 0, len(entities))
	for _, e := range entities {
		if l, ok := s.components.Light(e); ok {
			out = append(out, l)
		}
	}
	return out
}
