package bind_group_provider

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
)

func simpleShader(t *testing.T) shader.Shader {
	t.Helper()
	pkg, err := material.Compile(material.Simple(), nil)
	if err != nil {
		t.Fatalf("Compile failed:\n%v", err)
	}
	m, err := material.NewMaterial(resource.Handle{Kind: resource.KindMaterial, ID: 1}, pkg)
	if err != nil {
		t.Fatalf("NewMaterial failed:\n%v", err)
	}
	return m.Shader(material.VariantDirectional)
}

func TestBindGroupSharedPerLayout(t *testing.T) {
	s := simpleShader(t)
	b := gpu.NewRecorder()
	cam, _ := b.CreateBuffer(gpu.BufferDescriptor{Label: "camera", Size: 144})
	lit, _ := b.CreateBuffer(gpu.BufferDescriptor{Label: "lighting", Size: 464})

	p := NewBindGroupProvider("frame", WithBuffer(shader.AnnotationArgCamera, cam))
	p.SetBuffer(shader.AnnotationArgLighting, lit, true)

	first, err := p.BindGroup(b, s, 0)
	if err != nil {
		t.Fatalf("BindGroup failed:\n%v", err)
	}
	second, err := p.BindGroup(b, s, 0)
	if err != nil || second != first {
		t.Fatalf("BindGroup:\nhave %v %v\nwant cached %v", second, err, first)
	}
	desc, ok := b.BindGroup(first)
	if !ok || len(desc.Entries) != 2 || desc.Entries[0].Buffer != cam || desc.Entries[1].Buffer != lit {
		t.Fatalf("BindGroup:\nhave %+v", desc)
	}

	if err := WriteBuffers(b, []BufferWrite{{Provider: p, Role: shader.AnnotationArgCamera, Data: make([]byte, 144)}}); err != nil {
		t.Fatalf("WriteBuffers failed:\n%v", err)
	}
	if err := WriteBuffers(b, []BufferWrite{{Provider: p, Role: shader.AnnotationArgObject, Data: []byte{0}}}); err == nil {
		t.Fatalf("WriteBuffers to unbound role:\nwant error")
	}

	if err := p.Release(b); err != nil {
		t.Fatalf("Release failed:\n%v", err)
	}
	if n := b.Live(); n != 0 {
		t.Fatalf("Release:\n%d objects live, want 0: %v", n, b.Labels())
	}
}

func TestBindGroupMissingRole(t *testing.T) {
	s := simpleShader(t)
	b := gpu.NewRecorder()
	sampler, _ := b.CreateSampler(gpu.SamplerDescriptor{Label: "env"})

	p := NewBindGroupProvider("environment", WithSampler(shader.AnnotationArgEnvironmentSampler, sampler))
	if _, err := p.BindGroup(b, s, 2); err == nil {
		t.Fatalf("BindGroup without texture:\nwant error")
	}
	if _, err := p.BindGroup(b, s, 7); err == nil {
		t.Fatalf("BindGroup of unknown group:\nwant error")
	}

	if err := p.Release(b); err != nil {
		t.Fatalf("Release failed:\n%v", err)
	}
	if n := b.LiveByKind(gpu.ObjectSampler); n != 1 {
		t.Fatalf("Release:\nborrowed sampler destroyed")
	}
}
