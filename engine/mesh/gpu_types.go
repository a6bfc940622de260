package mesh

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// GPUVertexSource is the canonical WGSL definition of the VertexInput struct for the planar
// position + tangent-frame layout produced by Geometry.Descriptor.
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string

// GPUObjectUniformSource is the canonical WGSL definition of the ObjectUniform struct.
// Matches GPUObjectUniform layout exactly (112 bytes, uniform aligned).
//
//go:embed assets/object_uniform.wgsl
var GPUObjectUniformSource string

// GPUObjectUniform is the per-renderable transform uploaded to bind group 3.
// Size: 112 bytes (mat4x4 + mat3x3 whose columns are padded to vec4).
type GPUObjectUniform struct {
	Model  [16]float32 // offset  0: model-to-world matrix, column major (64 bytes)
	Normal [12]float32 // offset 64: inverse-transpose of the upper 3x3, three padded columns (48 bytes)
}

// NewGPUObjectUniform builds the uniform for a model matrix.
//
// Parameters:
//   - model: the model-to-world transform
//
// Returns:
//   - GPUObjectUniform: the populated uniform
func NewGPUObjectUniform(model mgl32.Mat4) GPUObjectUniform {
	var u GPUObjectUniform
	copy(u.Model[:], model[:])
	n := model.Mat3().Inv().Transpose()
	for col := 0; col < 3; col++ {
		c := n.Col(col)
		copy(u.Normal[col*4:col*4+3], c[:])
	}
	return u
}

// Size returns the size of the GPUObjectUniform struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUObjectUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUObjectUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 112-byte buffer ready for GPU upload.
func (g *GPUObjectUniform) Marshal() []byte {
	buf := make([]byte, 112)
	for i, v := range g.Model {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	for i, v := range g.Normal {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(v))
	}
	return buf
}
