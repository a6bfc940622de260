package renderable

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-sandbox/common"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/mesh"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/arche/ecs"
)

type fixture struct {
	vb mesh.VertexBuffer
	ib mesh.IndexBuffer
	mi material.MaterialInstance
}

func newFixture(t *testing.T, def material.Definition, desc mesh.VertexBufferDescriptor) fixture {
	t.Helper()
	vb, err := mesh.NewVertexBuffer(resource.Handle{Kind: resource.KindVertexBuffer, ID: 1}, desc)
	if err != nil {
		t.Fatalf("NewVertexBuffer failed:\n%v", err)
	}
	ib, err := mesh.NewIndexBuffer(resource.Handle{Kind: resource.KindIndexBuffer, ID: 1}, "ib", 3, mesh.IndexTypeUInt)
	if err != nil {
		t.Fatalf("NewIndexBuffer failed:\n%v", err)
	}
	pkg, err := material.Compile(def, nil)
	if err != nil {
		t.Fatalf("Compile failed:\n%v", err)
	}
	m, err := material.NewMaterial(resource.Handle{Kind: resource.KindMaterial, ID: 1}, pkg)
	if err != nil {
		t.Fatalf("NewMaterial failed:\n%v", err)
	}
	return fixture{vb: vb, ib: ib, mi: m.CreateInstance(resource.Handle{Kind: resource.KindMaterialInstance, ID: 1})}
}

func TestNewRenderable(t *testing.T) {
	f := newFixture(t, material.Simple(), mesh.TriangleGeometry().Descriptor())
	box := common.Box{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}
	r, err := NewRenderable(resource.Handle{Kind: resource.KindRenderable, ID: 1}, ecs.Entity{}, 1,
		WithBoundingBox(box),
		WithCulling(false),
		WithGeometry(0, PrimitiveTriangles, f.vb, f.ib, 0, 3),
		WithMaterial(0, f.mi),
	)
	if err != nil {
		t.Fatalf("NewRenderable failed:\n%v", err)
	}
	if r.Culling() || r.BoundingBox() != box {
		t.Fatalf("NewRenderable failed:\nculling %v, box %v", r.Culling(), r.BoundingBox())
	}
	p := r.Primitives()
	if len(p) != 1 || p[0].Count != 3 || p[0].Type != PrimitiveTriangles || p[0].Material != f.mi {
		t.Fatalf("Primitives failed:\nhave %+v", p)
	}

	r.SetTransform(mgl32.Translate3D(10, 0, 0))
	if wb := r.WorldBoundingBox(); wb.Min != (mgl32.Vec3{9, -1, -1}) {
		t.Fatalf("WorldBoundingBox failed:\nhave %v", wb)
	}
}

func TestNewRenderableValidation(t *testing.T) {
	f := newFixture(t, material.Simple(), mesh.TriangleGeometry().Descriptor())
	h := resource.Handle{Kind: resource.KindRenderable, ID: 1}

	cases := map[string][]RenderableBuilderOption{
		"no geometry": {WithMaterial(0, f.mi)},
		"no material": {WithGeometry(0, PrimitiveTriangles, f.vb, f.ib, 0, 3)},
		"range":       {WithGeometry(0, PrimitiveTriangles, f.vb, f.ib, 1, 3), WithMaterial(0, f.mi)},
		"slot":        {WithGeometry(1, PrimitiveTriangles, f.vb, f.ib, 0, 3), WithMaterial(0, f.mi)},
	}
	for name, opts := range cases {
		if _, err := NewRenderable(h, ecs.Entity{}, 1, opts...); err == nil {
			t.Fatalf("NewRenderable failed:\n%s: expected an error", name)
		}
	}
}

func TestNewRenderableMissingAttribute(t *testing.T) {
	positionsOnly := mesh.VertexBufferDescriptor{VertexCount: 3, BufferCount: 1,
		Attributes: []mesh.AttributeDesc{{Attribute: mesh.AttributePosition, Type: mesh.AttributeTypeFloat3}}}
	f := newFixture(t, material.Simple(), positionsOnly)
	_, err := NewRenderable(resource.Handle{Kind: resource.KindRenderable, ID: 1}, ecs.Entity{}, 1,
		WithGeometry(0, PrimitiveTriangles, f.vb, f.ib, 0, 3),
		WithMaterial(0, f.mi),
	)
	if err == nil {
		t.Fatalf("NewRenderable failed:\nmaterial requiring tangents accepted a position-only buffer")
	}
}
