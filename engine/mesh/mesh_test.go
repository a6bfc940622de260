package mesh

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
)

func TestTriangleGeometry(t *testing.T) {
	g := TriangleGeometry()
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate failed:\n%v", err)
	}
	b := g.Bounds()
	if b.Min != (mgl32.Vec3{-5, -5, 0}) || b.Max != (mgl32.Vec3{5, 5, 0}) {
		t.Fatalf("Bounds failed:\nhave %v..%v", b.Min, b.Max)
	}
	tan := g.Tangent()
	if l := tan.Len(); !mgl32.FloatEqualThreshold(l, 1, 1e-5) {
		t.Fatalf("Tangent failed:\nlength %v", l)
	}
}

func TestGeometryValidate(t *testing.T) {
	cases := []Geometry{
		{Label: "empty"},
		{Label: "short", Positions: []mgl32.Vec3{{}, {}, {}}, Indices: []uint32{0, 1}},
		{Label: "range", Positions: []mgl32.Vec3{{}, {}, {}}, Indices: []uint32{0, 1, 3}},
	}
	for _, g := range cases {
		if err := g.Validate(); err == nil {
			t.Fatalf("Validate failed:\n%q: expected an error", g.Label)
		}
	}
}

func TestGeometryUpload(t *testing.T) {
	g := TriangleGeometry()
	vb, err := NewVertexBuffer(resource.Handle{Kind: resource.KindVertexBuffer, ID: 1}, g.Descriptor())
	if err != nil {
		t.Fatalf("NewVertexBuffer failed:\n%v", err)
	}
	ib, err := NewIndexBuffer(resource.Handle{Kind: resource.KindIndexBuffer, ID: 1}, g.Label, len(g.Indices), g.IndexType)
	if err != nil {
		t.Fatalf("NewIndexBuffer failed:\n%v", err)
	}
	if vb.Complete() {
		t.Fatalf("Complete failed:\nempty buffer reported complete")
	}
	if err := g.Upload(vb, ib); err != nil {
		t.Fatalf("Upload failed:\n%v", err)
	}
	if !vb.Complete() || vb.Version() != 2 || ib.Version() != 1 {
		t.Fatalf("Upload failed:\ncomplete %v, versions %d/%d", vb.Complete(), vb.Version(), ib.Version())
	}
	if vb.BufferStride(0) != 12 || vb.BufferStride(1) != 16 {
		t.Fatalf("BufferStride failed:\nhave %d, %d", vb.BufferStride(0), vb.BufferStride(1))
	}

	pos, _ := vb.Buffer(0)
	if x := math.Float32frombits(binary.LittleEndian.Uint32(pos[12:])); x != 0 {
		t.Fatalf("Buffer failed:\nsecond vertex x = %v", x)
	}
	if y := math.Float32frombits(binary.LittleEndian.Uint32(pos[16:])); y != 5 {
		t.Fatalf("Buffer failed:\nsecond vertex y = %v", y)
	}
	if b := ib.Bytes(); len(b) != 12 || binary.LittleEndian.Uint32(b[8:]) != 2 {
		t.Fatalf("Bytes failed:\nhave %v", b)
	}
}

func TestVertexBufferLayout(t *testing.T) {
	h := resource.Handle{Kind: resource.KindVertexBuffer, ID: 1}
	if _, err := NewVertexBuffer(h, VertexBufferDescriptor{VertexCount: 3, BufferCount: 1,
		Attributes: []AttributeDesc{{Attribute: AttributeTangents, Type: AttributeTypeFloat4}}}); err == nil {
		t.Fatalf("NewVertexBuffer failed:\nmissing position accepted")
	}
	if _, err := NewVertexBuffer(h, VertexBufferDescriptor{VertexCount: 3, BufferCount: 2,
		Attributes: []AttributeDesc{{Attribute: AttributePosition, Type: AttributeTypeFloat3}}}); err == nil {
		t.Fatalf("NewVertexBuffer failed:\nunused buffer accepted")
	}

	interleaved := VertexBufferDescriptor{VertexCount: 3, BufferCount: 1, Attributes: []AttributeDesc{
		{Attribute: AttributePosition, Type: AttributeTypeFloat3, Stride: 28},
		{Attribute: AttributeTangents, Type: AttributeTypeFloat4, Offset: 12, Stride: 28},
	}}
	vb, err := NewVertexBuffer(h, interleaved)
	if err != nil {
		t.Fatalf("NewVertexBuffer failed:\n%v", err)
	}
	if !vb.Has(AttributeTangents) || vb.Has(AttributeUV0) {
		t.Fatalf("Has failed:\nunexpected attribute set")
	}
	if err := vb.SetBufferAt(0, make([]byte, 28*2)); err == nil {
		t.Fatalf("SetBufferAt failed:\nshort data accepted")
	}

	planar, _ := NewVertexBuffer(h, TriangleGeometry().Descriptor())
	if planar.LayoutKey() == vb.LayoutKey() {
		t.Fatalf("LayoutKey failed:\ndifferent layouts share key %q", vb.LayoutKey())
	}
}

func TestIndexBufferUShort(t *testing.T) {
	ib, _ := NewIndexBuffer(resource.Handle{Kind: resource.KindIndexBuffer, ID: 1}, "short", 3, IndexTypeUShort)
	if err := ib.SetIndices([]uint32{0, 1, 70000}); err == nil {
		t.Fatalf("SetIndices failed:\noversized index accepted")
	}
	if err := ib.SetIndices([]uint32{0, 1, 2}); err != nil {
		t.Fatalf("SetIndices failed:\n%v", err)
	}
	if b := ib.Bytes(); len(b) != 8 || binary.LittleEndian.Uint16(b[4:]) != 2 {
		t.Fatalf("Bytes failed:\nhave %v", b)
	}
}
