package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/mesh"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// VertexLayout maps the byte buffers of a mesh onto the vertex inputs of a shader.
type VertexLayout struct {
	// Buffers holds one layout per bound vertex buffer slot.
	Buffers []wgpu.VertexBufferLayout

	// Slots maps each slot in Buffers to the mesh byte buffer bound there.
	Slots []int
}

// Key identifies the layout for pipeline caching.
func (l VertexLayout) Key() string {
	var sb strings.Builder
	for i, b := range l.Buffers {
		fmt.Fprintf(&sb, "[%d:%d", l.Slots[i], b.ArrayStride)
		for _, a := range b.Attributes {
			fmt.Fprintf(&sb, " %d@%d:%d", a.ShaderLocation, a.Offset, a.Format)
		}
		sb.WriteByte(']')
	}
	return sb.String()
}

// vertexFormat returns the wgpu format an attribute is fetched with.
func vertexFormat(d mesh.AttributeDesc) (wgpu.VertexFormat, error) {
	switch d.Type {
	case mesh.AttributeTypeFloat2:
		return wgpu.VertexFormatFloat32x2, nil
	case mesh.AttributeTypeFloat3:
		return wgpu.VertexFormatFloat32x3, nil
	case mesh.AttributeTypeFloat4:
		return wgpu.VertexFormatFloat32x4, nil
	case mesh.AttributeTypeUByte4:
		if d.Normalized {
			return wgpu.VertexFormatUnorm8x4, nil
		}
		return wgpu.VertexFormatUint8x4, nil
	case mesh.AttributeTypeShort4:
		if d.Normalized {
			return wgpu.VertexFormatSnorm16x4, nil
		}
		return wgpu.VertexFormatSint16x4, nil
	}
	return 0, fmt.Errorf("pipeline: attribute %s has unknown type %d", d.Attribute, d.Type)
}

// NewVertexLayout matches shader inputs to mesh attributes by location: input @location(n) reads mesh.Attribute(n).
// Mesh buffers the shader does not read are left unbound.
//
// Parameters:
//   - inputs: the shader's vertex inputs
//   - vb: the mesh vertex buffer
//
// Returns:
//   - VertexLayout: the slot layouts
//   - error: if the shader reads an attribute the mesh does not have
func NewVertexLayout(inputs []shader.VertexInput, vb mesh.VertexBuffer) (VertexLayout, error) {
	byAttr := make(map[mesh.Attribute]mesh.AttributeDesc, len(vb.Attributes()))
	for _, a := range vb.Attributes() {
		byAttr[a.Attribute] = a
	}

	perBuffer := make(map[int][]wgpu.VertexAttribute)
	for _, in := range inputs {
		desc, ok := byAttr[mesh.Attribute(in.Location)]
		if !ok {
			return VertexLayout{}, fmt.Errorf("pipeline: shader input %q reads %s, which vertex buffer %q does not provide", in.Name, mesh.Attribute(in.Location), vb.Label())
		}
		format, err := vertexFormat(desc)
		if err != nil {
			return VertexLayout{}, err
		}
		perBuffer[desc.BufferIndex] = append(perBuffer[desc.BufferIndex], wgpu.VertexAttribute{
			Format:         format,
			Offset:         uint64(desc.Offset),
			ShaderLocation: in.Location,
		})
	}

	slots := make([]int, 0, len(perBuffer))
	for idx := range perBuffer {
		slots = append(slots, idx)
	}
	sort.Ints(slots)

	layout := VertexLayout{Slots: slots}
	for _, idx := range slots {
		layout.Buffers = append(layout.Buffers, wgpu.VertexBufferLayout{
			ArrayStride: uint64(vb.BufferStride(idx)),
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  perBuffer[idx],
		})
	}
	return layout, nil
}
