package renderer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/light"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/mesh"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderable"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/texture"
	"github.com/cogentcore/webgpu/wgpu"
)

// vertexBufferEntry holds one GPU buffer per vertex buffer slot.
type vertexBufferEntry struct {
	slots    []gpu.Handle
	version  uint64
	uploaded bool
}

type indexBufferEntry struct {
	handle   gpu.Handle
	format   wgpu.IndexFormat
	version  uint64
	uploaded bool
}

type textureEntry struct {
	handle   gpu.Handle
	version  uint64
	uploaded bool
}

// instanceEntry is the material_params uniform of one material instance.
type instanceEntry struct {
	provider bind_group_provider.BindGroupProvider
	version  uint64
	uploaded bool
}

// environmentEntry binds a cubemap for an indirect light or a skybox. texture is the engine texture
// the provider borrows, so releasing the texture can drop the provider first.
type environmentEntry struct {
	provider bind_group_provider.BindGroupProvider
	texture  resource.Handle
}

func uniformUsage() wgpu.BufferUsage {
	return wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
}

// topology maps a primitive type onto the wgpu primitive topology.
func topology(t renderable.PrimitiveType) wgpu.PrimitiveTopology {
	switch t {
	case renderable.PrimitiveLines:
		return wgpu.PrimitiveTopologyLineList
	case renderable.PrimitivePoints:
		return wgpu.PrimitiveTopologyPointList
	default:
		return wgpu.PrimitiveTopologyTriangleList
	}
}

func (r *renderer) texture(tex texture.Texture) (gpu.Handle, error) {
	e, ok := r.textures[tex.Handle()]
	if !ok {
		h, err := r.backend.CreateTexture(gpu.TextureDescriptor{
			Label:  tex.Label(),
			Width:  uint32(tex.Width()),
			Height: uint32(tex.Height()),
			Levels: uint32(tex.Levels()),
			Cube:   tex.Type() == texture.TypeCubemap,
			Format: wgpu.TextureFormatRGBA16Float,
		})
		if err != nil {
			return 0, err
		}
		e = &textureEntry{handle: h}
		r.textures[tex.Handle()] = e
	}
	if e.uploaded && e.version == tex.Version() {
		return e.handle, nil
	}
	if !tex.Valid() {
		return 0, fmt.Errorf("texture %q: %w", tex.Label(), texture.ErrIncomplete)
	}
	for level := 0; level < tex.Levels(); level++ {
		for face := 0; face < tex.Faces(); face++ {
			data, err := tex.Encode(level, face)
			if err != nil {
				return 0, err
			}
			if err := r.backend.WriteTexture(e.handle, uint32(level), uint32(face), data); err != nil {
				return 0, err
			}
		}
	}
	e.version, e.uploaded = tex.Version(), true
	return e.handle, nil
}

func (r *renderer) vertexBuffer(vb mesh.VertexBuffer) ([]gpu.Handle, error) {
	e, ok := r.vertexBuffers[vb.Handle()]
	if !ok {
		e = &vertexBufferEntry{slots: make([]gpu.Handle, vb.BufferCount())}
		r.vertexBuffers[vb.Handle()] = e
	}
	if e.uploaded && e.version == vb.Version() {
		return e.slots, nil
	}
	for i := range e.slots {
		data, ok := vb.Buffer(i)
		if !ok {
			return nil, fmt.Errorf("vertex buffer %q: buffer %d was never set", vb.Label(), i)
		}
		if !e.slots[i].Valid() {
			h, err := r.backend.CreateBuffer(gpu.BufferDescriptor{
				Label: fmt.Sprintf("%s #%d", vb.Label(), i),
				Size:  uint64(len(data)),
				Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
			})
			if err != nil {
				return nil, err
			}
			e.slots[i] = h
		}
		if err := r.backend.WriteBuffer(e.slots[i], 0, data); err != nil {
			return nil, err
		}
	}
	e.version, e.uploaded = vb.Version(), true
	return e.slots, nil
}

func (r *renderer) indexBuffer(ib mesh.IndexBuffer) (*indexBufferEntry, error) {
	e, ok := r.indexBuffers[ib.Handle()]
	if ok && e.uploaded && e.version == ib.Version() {
		return e, nil
	}
	data := ib.Bytes()
	if data == nil {
		return nil, fmt.Errorf("index buffer %q: indices were never set", ib.Label())
	}
	if !ok {
		h, err := r.backend.CreateBuffer(gpu.BufferDescriptor{
			Label: ib.Label(),
			Size:  uint64(len(data)),
			Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, err
		}
		e = &indexBufferEntry{handle: h, format: wgpu.IndexFormatUint32}
		if ib.Type() == mesh.IndexTypeUShort {
			e.format = wgpu.IndexFormatUint16
		}
		r.indexBuffers[ib.Handle()] = e
	}
	if err := r.backend.WriteBuffer(e.handle, 0, data); err != nil {
		return nil, err
	}
	e.version, e.uploaded = ib.Version(), true
	return e, nil
}

func (r *renderer) instance(mi material.MaterialInstance) (bind_group_provider.BindGroupProvider, error) {
	data := mi.Uniform()
	e, ok := r.instances[mi.Handle()]
	if !ok {
		buf, err := r.backend.CreateBuffer(gpu.BufferDescriptor{Label: mi.Handle().String() + " params", Size: uint64(len(data)), Usage: uniformUsage()})
		if err != nil {
			return nil, err
		}
		e = &instanceEntry{provider: bind_group_provider.NewBindGroupProvider(mi.Handle().String(),
			bind_group_provider.WithBuffer(shader.AnnotationArgMaterialParams, buf),
		)}
		r.instances[mi.Handle()] = e
	}
	if e.uploaded && e.version == mi.Version() {
		return e.provider, nil
	}
	if err := r.backend.WriteBuffer(e.provider.Buffer(shader.AnnotationArgMaterialParams), 0, data); err != nil {
		return nil, err
	}
	e.version, e.uploaded = mi.Version(), true
	return e.provider, nil
}

// object returns the object provider of a renderable and the write refreshing its transform.
func (r *renderer) object(rd renderable.Renderable) (bind_group_provider.BindGroupProvider, bind_group_provider.BufferWrite, error) {
	u := mesh.NewGPUObjectUniform(rd.Transform())
	data := u.Marshal()
	p, ok := r.objects[rd.Handle()]
	if !ok {
		buf, err := r.backend.CreateBuffer(gpu.BufferDescriptor{Label: rd.Handle().String() + " object", Size: uint64(len(data)), Usage: uniformUsage()})
		if err != nil {
			return nil, bind_group_provider.BufferWrite{}, err
		}
		p = bind_group_provider.NewBindGroupProvider(rd.Handle().String(), bind_group_provider.WithBuffer(shader.AnnotationArgObject, buf))
		r.objects[rd.Handle()] = p
	}
	return p, bind_group_provider.BufferWrite{Provider: p, Role: shader.AnnotationArgObject, Data: data}, nil
}

// environment returns the provider binding a cubemap for owner, an indirect light or a skybox.
// Skybox providers also own the SkyParams uniform.
func (r *renderer) environment(owner resource.Handle, tex texture.Texture, sky bool) (bind_group_provider.BindGroupProvider, error) {
	th, err := r.texture(tex)
	if err != nil {
		return nil, err
	}
	if e, ok := r.environments[owner]; ok {
		if e.texture == tex.Handle() {
			return e.provider, nil
		}
		delete(r.environments, owner)
		if err := e.provider.Release(r.backend); err != nil {
			return nil, err
		}
	}

	p := bind_group_provider.NewBindGroupProvider(owner.String(),
		bind_group_provider.WithTexture(shader.AnnotationArgEnvironmentTexture, th),
		bind_group_provider.WithSampler(shader.AnnotationArgEnvironmentSampler, r.sampler),
	)
	if sky {
		buf, err := r.backend.CreateBuffer(gpu.BufferDescriptor{Label: owner.String() + " params", Size: skyParamsSize, Usage: uniformUsage()})
		if err != nil {
			return nil, err
		}
		p.SetBuffer(shader.AnnotationArgMaterialParams, buf, true)
	}
	r.environments[owner] = &environmentEntry{provider: p, texture: tex.Handle()}
	return p, nil
}

func (r *renderer) skyboxDraw(sb light.Skybox) (gpu.DrawCommand, bind_group_provider.BufferWrite, error) {
	p, err := r.environment(sb.Handle(), sb.Environment(), true)
	if err != nil {
		return gpu.DrawCommand{}, bind_group_provider.BufferWrite{}, err
	}
	params := make([]byte, skyParamsSize)
	binary.LittleEndian.PutUint32(params[0:], math.Float32bits(sb.Intensity()))
	if sb.ShowSun() {
		binary.LittleEndian.PutUint32(params[4:], 1)
	}

	groups, err := r.bindGroups(r.skyShader, map[shader.AnnotationArg]bind_group_provider.BindGroupProvider{
		shader.AnnotationArgCamera:             r.frame,
		shader.AnnotationArgLighting:           r.frame,
		shader.AnnotationArgEnvironmentTexture: p,
		shader.AnnotationArgEnvironmentSampler: p,
		shader.AnnotationArgMaterialParams:     p,
	})
	if err != nil {
		return gpu.DrawCommand{}, bind_group_provider.BufferWrite{}, err
	}
	cmd := gpu.DrawCommand{
		Pipeline:      r.skyPipeline.Handle(),
		BindGroups:    groups,
		Count:         3,
		InstanceCount: 1,
	}
	return cmd, bind_group_provider.BufferWrite{Provider: p, Role: shader.AnnotationArgMaterialParams, Data: params}, nil
}

func (r *renderer) primitiveDraw(prim renderable.Primitive, variant material.Variant, env, obj bind_group_provider.BindGroupProvider) (gpu.DrawCommand, error) {
	if prim.Material == nil {
		return gpu.DrawCommand{}, errors.New("no material instance")
	}
	if prim.VertexBuffer == nil {
		return gpu.DrawCommand{}, errors.New("no vertex buffer")
	}
	m := prim.Material.Material()
	s := m.Shader(variant)

	layout, err := pipeline.NewVertexLayout(s.VertexInputs(), prim.VertexBuffer)
	if err != nil {
		return gpu.DrawCommand{}, err
	}
	cull := wgpu.CullModeBack
	if m.DoubleSided() {
		cull = wgpu.CullModeNone
	}
	p, err := r.pipelineFor(m, s, layout, topology(prim.Type), cull)
	if err != nil {
		return gpu.DrawCommand{}, err
	}

	slots, err := r.vertexBuffer(prim.VertexBuffer)
	if err != nil {
		return gpu.DrawCommand{}, err
	}
	vbufs := make([]gpu.Handle, len(layout.Slots))
	for i, slot := range layout.Slots {
		vbufs[i] = slots[slot]
	}

	params, err := r.instance(prim.Material)
	if err != nil {
		return gpu.DrawCommand{}, err
	}
	groups, err := r.bindGroups(s, map[shader.AnnotationArg]bind_group_provider.BindGroupProvider{
		shader.AnnotationArgCamera:             r.frame,
		shader.AnnotationArgLighting:           r.frame,
		shader.AnnotationArgMaterialParams:     params,
		shader.AnnotationArgEnvironmentTexture: env,
		shader.AnnotationArgEnvironmentSampler: env,
		shader.AnnotationArgObject:             obj,
	})
	if err != nil {
		return gpu.DrawCommand{}, err
	}

	cmd := gpu.DrawCommand{
		Pipeline:      p.Handle(),
		BindGroups:    groups,
		VertexBuffers: vbufs,
		First:         uint32(prim.Offset),
		Count:         uint32(prim.Count),
		InstanceCount: 1,
	}
	if prim.IndexBuffer != nil {
		ib, err := r.indexBuffer(prim.IndexBuffer)
		if err != nil {
			return gpu.DrawCommand{}, err
		}
		cmd.IndexBuffer, cmd.IndexFormat = ib.handle, ib.format
	}
	return cmd, nil
}

// pipelineFor returns the cached pipeline of a material variant, creating it on first use.
// Keys carry the material handle so releasing a material drops only its own pipelines.
func (r *renderer) pipelineFor(m material.Material, s shader.Shader, layout pipeline.VertexLayout, top wgpu.PrimitiveTopology, cull wgpu.CullMode) (pipeline.Pipeline, error) {
	key := pipeline.Key(s.Key()+"#"+m.Handle().String(), layout, top, cull)
	if p, ok := r.pipelineCache[key]; ok {
		return p, nil
	}
	p := pipeline.NewPipeline(key, s,
		pipeline.WithVertexLayout(layout),
		pipeline.WithTopology(top),
		pipeline.WithCullMode(cull),
	)
	h, err := r.backend.CreateRenderPipeline(p.Descriptor())
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", key, err)
	}
	p.SetHandle(h)
	r.pipelineCache[key] = p
	r.materialPipelines[m.Handle()] = append(r.materialPipelines[m.Handle()], key)
	return p, nil
}

// bindGroups resolves every group a shader declares to the provider serving its roles.
func (r *renderer) bindGroups(s shader.Shader, providers map[shader.AnnotationArg]bind_group_provider.BindGroupProvider) ([]gpu.Handle, error) {
	groups := make([]gpu.Handle, len(pipeline.BindGroupLayouts(s)))
	for _, d := range s.Declarations() {
		if d.Group == nil || *d.Group >= len(groups) || groups[*d.Group].Valid() {
			continue
		}
		p, ok := providers[d.Role()]
		if !ok {
			return nil, fmt.Errorf("shader %s: nothing provides %q", s.Key(), d.Role())
		}
		h, err := p.BindGroup(r.backend, s, *d.Group)
		if err != nil {
			return nil, err
		}
		groups[*d.Group] = h
	}
	for g, h := range groups {
		if !h.Valid() {
			return nil, fmt.Errorf("shader %s: group %d has no declared role", s.Key(), g)
		}
	}
	return groups, nil
}
