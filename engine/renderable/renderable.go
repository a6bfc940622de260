// package renderable binds geometry to material instances. A renderable is the drawable
// component of an entity: one or more primitives, a bounding box and a world transform.
package renderable

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-sandbox/common"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/mesh"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/arche/ecs"
)

// PrimitiveType is the topology of a primitive.
type PrimitiveType uint8

const (
	PrimitiveTriangles PrimitiveType = iota
	PrimitiveLines
	PrimitivePoints
)

func (p PrimitiveType) String() string {
	return [...]string{"triangles", "lines", "points"}[p]
}

// Primitive is one draw call worth of indexed geometry.
type Primitive struct {
	Type         PrimitiveType
	VertexBuffer mesh.VertexBuffer
	IndexBuffer  mesh.IndexBuffer
	Offset       int
	Count        int
	Material     material.MaterialInstance
}

type renderableImpl struct {
	mu             *sync.Mutex
	handle         resource.Handle
	entity         ecs.Entity
	box            common.Box
	culling        bool
	castShadows    bool
	receiveShadows bool
	priority       uint8
	primitives     []Primitive
	transform      mgl32.Mat4
	err            error
}

// Renderable is the drawable component of an entity.
type Renderable interface {
	resource.Resource

	// Entity returns the entity the renderable is attached to.
	Entity() ecs.Entity

	// BoundingBox returns the model-space bounding box.
	BoundingBox() common.Box

	// WorldBoundingBox returns the bounding box transformed by Transform.
	WorldBoundingBox() common.Box

	// Culling reports whether the renderer may skip the renderable when its box leaves the frustum.
	Culling() bool

	CastShadows() bool
	ReceiveShadows() bool

	// Priority orders draws; lower values draw first.
	Priority() uint8

	// Primitives returns the renderable's primitives in slot order.
	Primitives() []Primitive

	// Transform returns the model-to-world matrix.
	Transform() mgl32.Mat4

	// SetTransform replaces the model-to-world matrix.
	SetTransform(m mgl32.Mat4)
}

var _ Renderable = &renderableImpl{}

// NewRenderable creates a renderable with count primitive slots and validates that every slot
// received geometry and a material whose required attributes the vertex buffer provides.
//
// Parameters:
//   - handle: the registry handle issued for the renderable
//   - entity: the owning entity
//   - count: number of primitive slots
//   - options: functional options that fill the slots and flags
//
// Returns:
//   - Renderable: the renderable
//   - error: if a slot is incomplete, out of range, or its material and geometry disagree
func NewRenderable(handle resource.Handle, entity ecs.Entity, count int, options ...RenderableBuilderOption) (Renderable, error) {
	if count <= 0 {
		return nil, fmt.Errorf("renderable: primitive count must be positive, got %d", count)
	}
	r := &renderableImpl{
		mu:             &sync.Mutex{},
		handle:         handle,
		entity:         entity,
		box:            common.Box{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}},
		culling:        true,
		receiveShadows: true,
		castShadows:    true,
		priority:       4,
		primitives:     make([]Primitive, count),
		transform:      mgl32.Ident4(),
	}
	for _, opt := range options {
		opt(r)
	}
	if r.err != nil {
		return nil, r.err
	}

	for i, p := range r.primitives {
		if p.VertexBuffer == nil || p.IndexBuffer == nil {
			return nil, fmt.Errorf("renderable: primitive %d has no geometry", i)
		}
		if p.Material == nil {
			return nil, fmt.Errorf("renderable: primitive %d has no material instance", i)
		}
		if p.Offset < 0 || p.Count <= 0 || p.Offset+p.Count > p.IndexBuffer.IndexCount() {
			return nil, fmt.Errorf("renderable: primitive %d range [%d, %d) exceeds %d indices", i, p.Offset, p.Offset+p.Count, p.IndexBuffer.IndexCount())
		}
		for _, a := range p.Material.Material().Required() {
			if !p.VertexBuffer.Has(a) {
				return nil, fmt.Errorf("renderable: primitive %d: material %s requires %s", i, p.Material.Material().Name(), a)
			}
		}
	}
	return r, nil
}

func (r *renderableImpl) Handle() resource.Handle { return r.handle }
func (r *renderableImpl) Entity() ecs.Entity      { return r.entity }
func (r *renderableImpl) BoundingBox() common.Box { return r.box }
func (r *renderableImpl) Culling() bool           { return r.culling }
func (r *renderableImpl) CastShadows() bool       { return r.castShadows }
func (r *renderableImpl) ReceiveShadows() bool    { return r.receiveShadows }
func (r *renderableImpl) Priority() uint8         { return r.priority }

func (r *renderableImpl) Primitives() []Primitive {
	return slices.Clone(r.primitives)
}

func (r *renderableImpl) Transform() mgl32.Mat4 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transform
}

func (r *renderableImpl) SetTransform(m mgl32.Mat4) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transform = m
}

func (r *renderableImpl) WorldBoundingBox() common.Box {
	return r.box.Transform(r.Transform())
}
