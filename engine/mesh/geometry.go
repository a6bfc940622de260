package mesh

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-sandbox/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Geometry is a small indexed triangle list held on the CPU before upload.
// Every vertex shares one tangent frame, given as Euler angles.
type Geometry struct {
	// Label names the buffers created from this geometry.
	Label string

	// Positions are the model-space vertex positions.
	Positions []mgl32.Vec3

	// Indices index Positions, three per triangle.
	Indices []uint32

	// TangentFrame is the rotation of the shared tangent frame, in radians around X, Y and Z.
	TangentFrame mgl32.Vec3

	// IndexType selects 16 or 32 bit indices for the index buffer.
	IndexType IndexType
}

// TriangleGeometry returns the sandbox triangle: three vertices spanning ten units in X and Y, facing +Z.
func TriangleGeometry() Geometry {
	return Geometry{
		Label: "triangle",
		Positions: []mgl32.Vec3{
			{-5, -5, 0},
			{0, 5, 0},
			{5, -5, 0},
		},
		Indices:      []uint32{0, 1, 2},
		TangentFrame: mgl32.Vec3{0, 0, 1},
		IndexType:    IndexTypeUInt,
	}
}

// Validate checks that the geometry forms a well-formed triangle list.
//
// Returns:
//   - error: if there are no vertices, the index count is not a multiple of three, or an index is out of range
func (g Geometry) Validate() error {
	if len(g.Positions) == 0 {
		return fmt.Errorf("geometry %q: no vertices", g.Label)
	}
	if len(g.Indices) == 0 || len(g.Indices)%3 != 0 {
		return fmt.Errorf("geometry %q: index count %d is not a positive multiple of 3", g.Label, len(g.Indices))
	}
	for i, idx := range g.Indices {
		if int(idx) >= len(g.Positions) {
			return fmt.Errorf("geometry %q: index %d at %d out of range", g.Label, idx, i)
		}
	}
	if g.IndexType == IndexTypeUShort && len(g.Positions) > 0x10000 {
		return fmt.Errorf("geometry %q: %d vertices do not fit 16 bit indices", g.Label, len(g.Positions))
	}
	return nil
}

// Bounds returns the axis-aligned box around Positions.
func (g Geometry) Bounds() common.Box {
	if len(g.Positions) == 0 {
		return common.Box{}
	}
	b := common.Box{Min: g.Positions[0], Max: g.Positions[0]}
	for _, p := range g.Positions[1:] {
		for i := 0; i < 3; i++ {
			b.Min[i] = float32(math.Min(float64(b.Min[i]), float64(p[i])))
			b.Max[i] = float32(math.Max(float64(b.Max[i]), float64(p[i])))
		}
	}
	return b
}

// Tangent returns the shared tangent frame as a normalized quaternion packed into x, y, z, w.
func (g Geometry) Tangent() mgl32.Vec4 {
	q := mgl32.AnglesToQuat(g.TangentFrame[0], g.TangentFrame[1], g.TangentFrame[2], mgl32.XYZ).Normalize()
	return mgl32.Vec4{q.V[0], q.V[1], q.V[2], q.W}
}

// Descriptor returns the planar two-buffer layout used by the geometry:
// float3 positions in buffer 0 and normalized float4 tangent quaternions in buffer 1.
func (g Geometry) Descriptor() VertexBufferDescriptor {
	return VertexBufferDescriptor{
		Label:       g.Label,
		VertexCount: len(g.Positions),
		BufferCount: 2,
		Attributes: []AttributeDesc{
			{Attribute: AttributePosition, BufferIndex: 0, Type: AttributeTypeFloat3},
			{Attribute: AttributeTangents, BufferIndex: 1, Type: AttributeTypeFloat4, Normalized: true},
		},
	}
}

// PositionBytes returns buffer 0 of Descriptor.
func (g Geometry) PositionBytes() []byte {
	buf := make([]byte, 12*len(g.Positions))
	for i, p := range g.Positions {
		for c := 0; c < 3; c++ {
			binary.LittleEndian.PutUint32(buf[i*12+c*4:], math.Float32bits(p[c]))
		}
	}
	return buf
}

// TangentBytes returns buffer 1 of Descriptor.
func (g Geometry) TangentBytes() []byte {
	t := g.Tangent()
	buf := make([]byte, 16*len(g.Positions))
	for i := range g.Positions {
		for c := 0; c < 4; c++ {
			binary.LittleEndian.PutUint32(buf[i*16+c*4:], math.Float32bits(t[c]))
		}
	}
	return buf
}

// Upload fills a vertex buffer and an index buffer created from this geometry.
//
// Parameters:
//   - vb: a vertex buffer created from Descriptor
//   - ib: an index buffer with len(Indices) indices
//
// Returns:
//   - error: if either buffer rejects the data
func (g Geometry) Upload(vb VertexBuffer, ib IndexBuffer) error {
	if err := vb.SetBufferAt(0, g.PositionBytes()); err != nil {
		return err
	}
	if err := vb.SetBufferAt(1, g.TangentBytes()); err != nil {
		return err
	}
	return ib.SetIndices(g.Indices)
}
