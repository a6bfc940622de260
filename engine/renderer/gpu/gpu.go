// package gpu defines the contract between the renderer and a graphics API. Descriptors reuse the
// wgpu enums so the wgpu backend can pass them straight through, while tests drive the renderer
// with the Recorder backend and inspect what it was asked to do.
package gpu

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrSurfaceUnavailable is returned by BeginFrame when the presentation surface can not provide a
// texture this frame (minimized window, outdated swapchain). The frame should be skipped.
var ErrSurfaceUnavailable = errors.New("gpu: surface texture unavailable")

// ErrUnknownHandle is returned when a handle was never issued or has already been destroyed.
var ErrUnknownHandle = errors.New("gpu: unknown handle")

// Handle names one object created by a Backend. The zero Handle is never issued.
type Handle uint64

// Valid reports whether the handle was issued by a backend.
func (h Handle) Valid() bool {
	return h != 0
}

// ObjectKind identifies the category of a GPU object.
type ObjectKind uint8

const (
	ObjectBuffer ObjectKind = iota
	ObjectTexture
	ObjectSampler
	ObjectBindGroup
	ObjectRenderPipeline
)

func (k ObjectKind) String() string {
	switch k {
	case ObjectBuffer:
		return "buffer"
	case ObjectTexture:
		return "texture"
	case ObjectSampler:
		return "sampler"
	case ObjectBindGroup:
		return "bind group"
	case ObjectRenderPipeline:
		return "render pipeline"
	}
	return fmt.Sprintf("ObjectKind(%d)", uint8(k))
}

// BufferDescriptor describes a GPU buffer.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage wgpu.BufferUsage
}

// TextureDescriptor describes a sampled 2D or cube texture.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Levels uint32
	Cube   bool
	Format wgpu.TextureFormat
}

// Layers returns 6 for cube textures and 1 otherwise.
func (d TextureDescriptor) Layers() uint32 {
	if d.Cube {
		return 6
	}
	return 1
}

// SamplerDescriptor describes a texture sampler. Zero fields fall back to linear filtering and clamped addressing.
type SamplerDescriptor struct {
	Label        string
	AddressMode  wgpu.AddressMode
	MagFilter    wgpu.FilterMode
	MinFilter    wgpu.FilterMode
	MipmapFilter wgpu.MipmapFilterMode
	LodMaxClamp  float32
}

// BindGroupEntry binds exactly one of Buffer, Texture or Sampler.
type BindGroupEntry struct {
	Binding uint32
	Buffer  Handle
	Texture Handle
	Sampler Handle
}

// BindGroupDescriptor describes a bind group. The layout is rebuilt from Layout; backends treat equal layouts as compatible.
type BindGroupDescriptor struct {
	Label   string
	Layout  wgpu.BindGroupLayoutDescriptor
	Entries []BindGroupEntry
}

// RenderPipelineDescriptor describes a render pipeline built from one WGSL module.
type RenderPipelineDescriptor struct {
	Label          string
	Source         string
	VertexEntry    string
	FragmentEntry  string
	VertexBuffers  []wgpu.VertexBufferLayout
	BindGroups     []wgpu.BindGroupLayoutDescriptor
	Topology       wgpu.PrimitiveTopology
	FrontFace      wgpu.FrontFace
	CullMode       wgpu.CullMode
	DepthTest      bool
	DepthWrite     bool
	Blend          *wgpu.BlendState
	ColorWriteMask wgpu.ColorWriteMask
}

// DrawCommand records one draw inside a frame. IndexBuffer may be zero for non-indexed draws.
type DrawCommand struct {
	Pipeline      Handle
	BindGroups    []Handle
	VertexBuffers []Handle
	IndexBuffer   Handle
	IndexFormat   wgpu.IndexFormat
	First         uint32
	Count         uint32
	InstanceCount uint32
}

// Backend creates GPU objects and records frames. Calls are made from the render thread only.
type Backend interface {
	// CreateBuffer allocates a buffer.
	CreateBuffer(desc BufferDescriptor) (Handle, error)

	// WriteBuffer uploads data at offset.
	WriteBuffer(h Handle, offset uint64, data []byte) error

	// CreateTexture allocates a texture.
	CreateTexture(desc TextureDescriptor) (Handle, error)

	// WriteTexture uploads one mip level of one layer. data holds tightly packed texels.
	//
	// Parameters:
	//   - h: the texture
	//   - level: mip level
	//   - layer: array layer, the cube face for cube textures
	//   - data: texel bytes in the texture's format
	//
	// Returns:
	//   - error: if h is unknown or the level or layer is out of range
	WriteTexture(h Handle, level, layer uint32, data []byte) error

	// CreateSampler allocates a sampler.
	CreateSampler(desc SamplerDescriptor) (Handle, error)

	// CreateBindGroup allocates a bind group over existing buffers, textures and samplers.
	CreateBindGroup(desc BindGroupDescriptor) (Handle, error)

	// CreateRenderPipeline compiles a render pipeline.
	CreateRenderPipeline(desc RenderPipelineDescriptor) (Handle, error)

	// Destroy releases one object.
	//
	// Returns:
	//   - error: ErrUnknownHandle if h is not alive
	Destroy(h Handle) error

	// Live returns the number of objects created and not yet destroyed.
	Live() int

	// BeginFrame acquires the surface texture and starts the main pass cleared to clear.
	//
	// Returns:
	//   - error: ErrSurfaceUnavailable if the surface can not provide a texture this frame
	BeginFrame(clear wgpu.Color) error

	// Draw records a draw into the current pass.
	Draw(cmd DrawCommand) error

	// EndFrame ends the pass and submits the recorded commands.
	EndFrame() error

	// Present shows the submitted frame.
	Present()

	// Resize reconfigures the surface and its attachments.
	Resize(width, height int)

	// Release destroys every remaining object and the device.
	Release()
}
