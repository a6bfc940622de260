package light

import (
	_ "embed"
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxGPULights is the number of punctual lights evaluated per fragment. Additional lights in a scene are ignored.
const MaxGPULights = 4

// GPULightSource is the canonical WGSL definition of the Light struct.
// Matches GPULight layout exactly (64 bytes).
//
//go:embed assets/light.wgsl
var GPULightSource string

// GPULightingSource is the canonical WGSL definition of the Lighting struct.
// Matches GPULighting layout exactly (464 bytes).
//
//go:embed assets/lighting.wgsl
var GPULightingSource string

// GPULightSize is the byte size of one Light struct.
const GPULightSize = 64

// GPULightingSize is the byte size of the Lighting struct.
const GPULightingSize = 208 + MaxGPULights*GPULightSize

// GPULight is the GPU-aligned representation of a single light source.
// Matches the WGSL Light struct layout exactly (see GPULightSource).
type GPULight struct {
	Position      mgl32.Vec3 // offset  0: world-space position (point/spot)
	LightType     uint32     // offset 12: LightType value
	Color         mgl32.Vec3 // offset 16: linear RGB color
	Intensity     float32    // offset 28: photometric intensity
	Direction     mgl32.Vec3 // offset 32: normalized direction of travel
	Falloff       float32    // offset 44: attenuation cutoff distance
	InnerCone     float32    // offset 48: cos(inner half-angle) for spot
	OuterCone     float32    // offset 52: cos(outer half-angle) for spot
	CastsShadows  uint32     // offset 56: 1 = casts shadows
	AngularRadius float32    // offset 60: sun disk radius in radians
}

// Size returns the size of the GPULight struct in bytes.
func (g *GPULight) Size() int {
	return GPULightSize
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, GPULightSize)
	g.marshalTo(buf)
	return buf
}

func (g *GPULight) marshalTo(buf []byte) {
	putVec3(buf[0:], g.Position)
	binary.LittleEndian.PutUint32(buf[12:16], g.LightType)
	putVec3(buf[16:], g.Color)
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(g.Intensity))
	putVec3(buf[32:], g.Direction)
	binary.LittleEndian.PutUint32(buf[44:48], math.Float32bits(g.Falloff))
	binary.LittleEndian.PutUint32(buf[48:52], math.Float32bits(g.InnerCone))
	binary.LittleEndian.PutUint32(buf[52:56], math.Float32bits(g.OuterCone))
	binary.LittleEndian.PutUint32(buf[56:60], g.CastsShadows)
	binary.LittleEndian.PutUint32(buf[60:64], math.Float32bits(g.AngularRadius))
}

// GPULighting is the per-frame lighting uniform: indirect light spherical harmonics and the punctual light list.
// Matches the WGSL Lighting struct layout exactly (see GPULightingSource).
type GPULighting struct {
	Irradiance   [9]mgl32.Vec3 // offset   0: SH coefficients, one vec4 slot each
	IBLIntensity float32       // offset 144
	IBLMaxLod    float32       // offset 148: highest mip of the reflections cubemap
	LightCount   uint32        // offset 152
	IBLRotation  mgl32.Mat3    // offset 160: three vec4 columns
	Lights       [MaxGPULights]GPULight
}

// Size returns the size of the GPULighting struct in bytes.
func (g *GPULighting) Size() int {
	return GPULightingSize
}

// Marshal serializes the GPULighting struct into a byte buffer suitable for GPU upload.
func (g *GPULighting) Marshal() []byte {
	buf := make([]byte, GPULightingSize)
	for i, c := range g.Irradiance {
		putVec3(buf[i*16:], c)
	}
	binary.LittleEndian.PutUint32(buf[144:], math.Float32bits(g.IBLIntensity))
	binary.LittleEndian.PutUint32(buf[148:], math.Float32bits(g.IBLMaxLod))
	binary.LittleEndian.PutUint32(buf[152:], min(g.LightCount, MaxGPULights))
	for col := 0; col < 3; col++ {
		putVec3(buf[160+col*16:], g.IBLRotation.Col(col))
	}
	for i := range g.Lights {
		g.Lights[i].marshalTo(buf[208+i*GPULightSize:])
	}
	return buf
}

func putVec3(buf []byte, v mgl32.Vec3) {
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v[i]))
	}
}
