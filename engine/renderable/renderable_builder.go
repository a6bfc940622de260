package renderable

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-sandbox/common"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/mesh"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
)

// RenderableBuilderOption is a function that configures a renderable during construction.
type RenderableBuilderOption func(*renderableImpl)

// WithBoundingBox sets the model-space bounding box.
func WithBoundingBox(box common.Box) RenderableBuilderOption {
	return func(r *renderableImpl) {
		r.box = box
	}
}

// WithCulling enables or disables frustum culling.
func WithCulling(enabled bool) RenderableBuilderOption {
	return func(r *renderableImpl) {
		r.culling = enabled
	}
}

// WithShadows sets the cast and receive shadow flags.
func WithShadows(cast, receive bool) RenderableBuilderOption {
	return func(r *renderableImpl) {
		r.castShadows = cast
		r.receiveShadows = receive
	}
}

// WithPriority sets the draw priority, clamped to [0, 7].
func WithPriority(priority uint8) RenderableBuilderOption {
	return func(r *renderableImpl) {
		r.priority = min(priority, 7)
	}
}

// WithTransform sets the initial model-to-world matrix.
func WithTransform(m mgl32.Mat4) RenderableBuilderOption {
	return func(r *renderableImpl) {
		r.transform = m
	}
}

// WithGeometry fills the geometry of one primitive slot.
//
// Parameters:
//   - index: the primitive slot
//   - t: the primitive topology
//   - vb: the vertex buffer
//   - ib: the index buffer
//   - offset: first index to draw
//   - count: number of indices to draw
//
// Returns:
//   - RenderableBuilderOption: a function that applies the geometry to a renderable
func WithGeometry(index int, t PrimitiveType, vb mesh.VertexBuffer, ib mesh.IndexBuffer, offset, count int) RenderableBuilderOption {
	return func(r *renderableImpl) {
		if !r.checkSlot(index) {
			return
		}
		p := &r.primitives[index]
		p.Type, p.VertexBuffer, p.IndexBuffer, p.Offset, p.Count = t, vb, ib, offset, count
	}
}

// WithMaterial sets the material instance of one primitive slot.
//
// Parameters:
//   - index: the primitive slot
//   - mi: the material instance
//
// Returns:
//   - RenderableBuilderOption: a function that applies the material to a renderable
func WithMaterial(index int, mi material.MaterialInstance) RenderableBuilderOption {
	return func(r *renderableImpl) {
		if r.checkSlot(index) {
			r.primitives[index].Material = mi
		}
	}
}

func (r *renderableImpl) checkSlot(index int) bool {
	if index < 0 || index >= len(r.primitives) {
		if r.err == nil {
			r.err = fmt.Errorf("renderable: primitive slot %d out of range [0, %d)", index, len(r.primitives))
		}
		return false
	}
	return true
}
