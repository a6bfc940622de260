package pipeline

import (
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/mesh"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/cogentcore/webgpu/wgpu"
)

func simpleMaterial(t *testing.T) material.Material {
	t.Helper()
	pkg, err := material.Compile(material.Simple(), nil)
	if err != nil {
		t.Fatalf("Compile failed:\n%v", err)
	}
	m, err := material.NewMaterial(resource.Handle{Kind: resource.KindMaterial, ID: 1}, pkg)
	if err != nil {
		t.Fatalf("NewMaterial failed:\n%v", err)
	}
	return m
}

func triangleBuffer(t *testing.T) mesh.VertexBuffer {
	t.Helper()
	vb, err := mesh.NewVertexBuffer(resource.Handle{Kind: resource.KindVertexBuffer, ID: 1}, mesh.TriangleGeometry().Descriptor())
	if err != nil {
		t.Fatalf("NewVertexBuffer failed:\n%v", err)
	}
	return vb
}

func TestNewVertexLayout(t *testing.T) {
	m := simpleMaterial(t)
	layout, err := NewVertexLayout(m.Shader(material.VariantDirectional).VertexInputs(), triangleBuffer(t))
	if err != nil {
		t.Fatalf("NewVertexLayout failed:\n%v", err)
	}
	if len(layout.Slots) != 2 || layout.Slots[0] != 0 || layout.Slots[1] != 1 {
		t.Fatalf("NewVertexLayout failed:\nslots %v", layout.Slots)
	}
	pos, tan := layout.Buffers[0], layout.Buffers[1]
	if pos.ArrayStride != 12 || pos.Attributes[0].Format != wgpu.VertexFormatFloat32x3 || pos.Attributes[0].ShaderLocation != 0 {
		t.Fatalf("NewVertexLayout failed:\nposition %+v", pos)
	}
	if tan.ArrayStride != 16 || tan.Attributes[0].Format != wgpu.VertexFormatFloat32x4 || tan.Attributes[0].ShaderLocation != 1 {
		t.Fatalf("NewVertexLayout failed:\ntangents %+v", tan)
	}
}

func TestNewVertexLayoutMissingAttribute(t *testing.T) {
	m := simpleMaterial(t)
	vb, err := mesh.NewVertexBuffer(resource.Handle{Kind: resource.KindVertexBuffer, ID: 2}, mesh.VertexBufferDescriptor{
		Label:       "positions",
		VertexCount: 3,
		BufferCount: 1,
		Attributes:  []mesh.AttributeDesc{{Attribute: mesh.AttributePosition, Type: mesh.AttributeTypeFloat3}},
	})
	if err != nil {
		t.Fatalf("NewVertexBuffer failed:\n%v", err)
	}
	if _, err := NewVertexLayout(m.Shader(0).VertexInputs(), vb); err == nil || !strings.Contains(err.Error(), "tangents") {
		t.Fatalf("NewVertexLayout:\nhave %v\nwant missing tangents error", err)
	}
}

func TestPipelineDescriptor(t *testing.T) {
	m := simpleMaterial(t)
	s := m.Shader(0)
	layout, err := NewVertexLayout(s.VertexInputs(), triangleBuffer(t))
	if err != nil {
		t.Fatalf("NewVertexLayout failed:\n%v", err)
	}
	key := Key(s.Key(), layout, wgpu.PrimitiveTopologyTriangleList, wgpu.CullModeNone)
	p := NewPipeline(key, s, WithVertexLayout(layout), WithCullMode(wgpu.CullModeNone))

	desc := p.Descriptor()
	if desc.Label != key || desc.CullMode != wgpu.CullModeNone || !desc.DepthTest || desc.Blend != nil {
		t.Fatalf("Descriptor failed:\nhave %+v", desc)
	}
	if len(desc.BindGroups) != 4 {
		t.Fatalf("Descriptor failed:\n%d bind groups, want 4", len(desc.BindGroups))
	}
	if len(desc.VertexBuffers) != 2 {
		t.Fatalf("Descriptor failed:\n%d vertex buffers, want 2", len(desc.VertexBuffers))
	}
	if p.Handle().Valid() {
		t.Fatalf("Handle:\nwant zero before registration")
	}

	other := Key(s.Key(), layout, wgpu.PrimitiveTopologyTriangleList, wgpu.CullModeBack)
	if other == key {
		t.Fatalf("Key:\ncull mode does not change the key")
	}
}

func TestLayoutKey(t *testing.T) {
	s := simpleMaterial(t).Shader(0)
	layouts := BindGroupLayouts(s)
	if LayoutKey(layouts[0]) == LayoutKey(layouts[3]) {
		t.Fatalf("LayoutKey:\nframe and object groups share a key")
	}
	if LayoutKey(layouts[2]) != LayoutKey(BindGroupLayouts(s)[2]) {
		t.Fatalf("LayoutKey:\nnot deterministic")
	}
}
