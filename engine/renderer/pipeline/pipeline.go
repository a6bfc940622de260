package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the implementation of the Pipeline interface.
// It pairs a reflected shader with the fixed-function state of one render pipeline variant.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups
	pipelineKey string

	shader       shader.Shader
	vertexLayout VertexLayout

	// handle is the backend pipeline object, zero until the renderer registers the pipeline
	handle gpu.Handle

	// The following properties are toggled with the builder options.

	depthTestEnabled  bool
	depthWriteEnabled bool
	blendEnabled      bool
	cullMode          wgpu.CullMode
	topology          wgpu.PrimitiveTopology
	frontFace         wgpu.FrontFace
	writeMask         wgpu.ColorWriteMask
	blendState        *wgpu.BlendState
}

// Pipeline describes one render pipeline variant: a shader, the vertex layout of the meshes it draws,
// and its depth, blend, cull and topology state. Pipelines with equal keys are interchangeable.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader returns the reflected shader the pipeline runs.
	Shader() shader.Shader

	// VertexLayout returns the mesh buffer layout bound to the vertex stage.
	VertexLayout() VertexLayout

	// Descriptor returns everything a backend needs to create the pipeline.
	//
	// Returns:
	//   - gpu.RenderPipelineDescriptor: the pipeline description
	Descriptor() gpu.RenderPipelineDescriptor

	// Handle returns the backend pipeline, or the zero handle before registration.
	Handle() gpu.Handle

	// SetHandle stores the backend pipeline created from Descriptor.
	//
	// Parameters:
	//   - h: the backend handle
	SetHandle(h gpu.Handle)

	// DepthTestEnabled returns whether depth testing is enabled for this pipeline.
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether depth writing is enabled for this pipeline.
	DepthWriteEnabled() bool

	// BlendEnabled returns whether blending is enabled for this pipeline.
	BlendEnabled() bool

	// CullMode returns the cull mode configured for this pipeline.
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state configured for this pipeline.
	//
	// Returns:
	//   - *wgpu.BlendState: the blend state for this pipeline, or nil if blending is not enabled
	BlendState() *wgpu.BlendState
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new Pipeline. The shader is required.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - s: the reflected shader holding both entry points
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified configuration
func NewPipeline(pipelineKey string, s shader.Shader, opts ...PipelineBuilderOption) Pipeline {
	if s == nil {
		panic("pipeline: NewPipeline requires a non-nil Shader")
	}
	p := &pipeline{
		pipelineKey:       pipelineKey,
		shader:            s,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		blendEnabled:      false,
		cullMode:          wgpu.CullModeBack,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Key builds a cache key for a material variant drawn with one vertex layout and fixed-function state.
//
// Parameters:
//   - shaderKey: the key of the variant's shader
//   - layout: the vertex layout
//   - topology: the primitive topology
//   - cull: the cull mode
//
// Returns:
//   - string: the cache key
func Key(shaderKey string, layout VertexLayout, topology wgpu.PrimitiveTopology, cull wgpu.CullMode) string {
	return fmt.Sprintf("%s|%s|t%d|c%d", shaderKey, layout.Key(), topology, cull)
}

// BindGroupLayouts returns the shader's bind group layouts as a dense slice indexed by group.
// Groups the shader skips get an empty layout.
//
// Parameters:
//   - s: the reflected shader
//
// Returns:
//   - []wgpu.BindGroupLayoutDescriptor: one descriptor per group index
func BindGroupLayouts(s shader.Shader) []wgpu.BindGroupLayoutDescriptor {
	descs := s.BindGroupLayoutDescriptors()
	maxGroup := -1
	for g := range descs {
		if g > maxGroup {
			maxGroup = g
		}
	}
	out := make([]wgpu.BindGroupLayoutDescriptor, maxGroup+1)
	for g, desc := range descs {
		entries := append([]wgpu.BindGroupLayoutEntry(nil), desc.Entries...)
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		desc.Entries = entries
		out[g] = desc
	}
	return out
}

// LayoutKey identifies a bind group layout by its entries. Bind groups created for equal keys are interchangeable.
//
// Parameters:
//   - desc: the layout descriptor
//
// Returns:
//   - string: the layout key
func LayoutKey(desc wgpu.BindGroupLayoutDescriptor) string {
	var sb strings.Builder
	for _, e := range desc.Entries {
		fmt.Fprintf(&sb, "%d:", e.Binding)
		switch {
		case e.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
			fmt.Fprintf(&sb, "t%d/%d", e.Texture.SampleType, e.Texture.ViewDimension)
		case e.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
			fmt.Fprintf(&sb, "s%d", e.Sampler.Type)
		default:
			fmt.Fprintf(&sb, "b%d/%d", e.Buffer.Type, e.Buffer.MinBindingSize)
		}
		sb.WriteByte(';')
	}
	return sb.String()
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader() shader.Shader {
	return p.shader
}

func (p *pipeline) VertexLayout() VertexLayout {
	return p.vertexLayout
}

func (p *pipeline) Descriptor() gpu.RenderPipelineDescriptor {
	desc := gpu.RenderPipelineDescriptor{
		Label:          p.pipelineKey,
		Source:         p.shader.Source(),
		VertexEntry:    p.shader.VertexEntryPoint(),
		FragmentEntry:  p.shader.FragmentEntryPoint(),
		VertexBuffers:  p.vertexLayout.Buffers,
		BindGroups:     BindGroupLayouts(p.shader),
		Topology:       p.topology,
		FrontFace:      p.frontFace,
		CullMode:       p.cullMode,
		DepthTest:      p.depthTestEnabled,
		DepthWrite:     p.depthWriteEnabled,
		ColorWriteMask: p.writeMask,
	}
	if p.blendEnabled {
		desc.Blend = p.blendState
	}
	return desc
}

func (p *pipeline) Handle() gpu.Handle {
	return p.handle
}

func (p *pipeline) SetHandle(h gpu.Handle) {
	p.handle = h
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}
