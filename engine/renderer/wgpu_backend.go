package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-sandbox/common"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuObject is one backend object with whatever wgpu objects it needs to stay alive.
type wgpuObject struct {
	kind gpu.ObjectKind

	buffer *wgpu.Buffer

	texture *wgpu.Texture
	view    *wgpu.TextureView
	width   uint32
	height  uint32
	levels  uint32
	layers  uint32
	texel   uint32

	sampler *wgpu.Sampler

	bindGroup   *wgpu.BindGroup
	bindLayouts []*wgpu.BindGroupLayout

	pipeline       *wgpu.RenderPipeline
	pipelineLayout *wgpu.PipelineLayout
	module         *wgpu.ShaderModule
}

func (o *wgpuObject) release() {
	if o.bindGroup != nil {
		o.bindGroup.Release()
	}
	if o.pipeline != nil {
		o.pipeline.Release()
	}
	if o.pipelineLayout != nil {
		o.pipelineLayout.Release()
	}
	for _, l := range o.bindLayouts {
		if l != nil {
			l.Release()
		}
	}
	if o.module != nil {
		o.module.Release()
	}
	if o.view != nil {
		o.view.Release()
	}
	if o.texture != nil {
		o.texture.Release()
	}
	if o.sampler != nil {
		o.sampler.Release()
	}
	if o.buffer != nil {
		o.buffer.Release()
	}
}

// wgpuBackend implements gpu.Backend on WebGPU. It owns the instance, surface, adapter and device,
// the MSAA and depth attachments, and every object created through it keyed by handle.
type wgpuBackend struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat        *wgpu.TextureFormat
	msaaTexture          *wgpu.Texture
	msaaTextureView      *wgpu.TextureView
	depthTexture         *wgpu.Texture
	depthTextureView     *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor

	presentMode wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)
	sampleCount MSAASampleCount  // MSAA sample count for the main render pass

	next    gpu.Handle
	objects map[gpu.Handle]*wgpuObject

	// Frame state for batched rendering across multiple draw calls
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

var _ gpu.Backend = &wgpuBackend{}

func newWGPUBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, sampleCount MSAASampleCount) (*wgpuBackend, error) {
	if surfaceDescriptor == nil {
		return nil, errors.New("wgpu backend needs a window surface, use BackendTypeRecorder for headless windows")
	}
	runtime.LockOSThread()
	b := &wgpuBackend{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		sampleCount: sampleCount,
		objects:     make(map[gpu.Handle]*wgpuObject),
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()
	return b, nil
}

func (b *wgpuBackend) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuBackend) issue(o *wgpuObject) gpu.Handle {
	b.next++
	b.objects[b.next] = o
	return b.next
}

func (b *wgpuBackend) lookup(h gpu.Handle, kind gpu.ObjectKind) (*wgpuObject, error) {
	o, ok := b.objects[h]
	if !ok || o.kind != kind {
		return nil, fmt.Errorf("%w: %s %d", gpu.ErrUnknownHandle, kind, h)
	}
	return o, nil
}

func (b *wgpuBackend) Resize(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A minimized window reports a zero size; keep the previous configuration.
	if width <= 0 || height <= 0 {
		return
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	b.releaseAttachments()

	count := uint32(b.sampleCount)
	msaaEnabled := count > 1
	var err error
	if msaaEnabled {
		// The render pass draws into the MSAA texture and resolves into the swapchain view.
		b.msaaTexture, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        *b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			panic(err)
		}
		b.msaaTextureView, err = b.msaaTexture.CreateView(nil)
		if err != nil {
			panic(err)
		}
	}

	// Depth texture sample count must match the color attachment.
	b.depthTexture, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	b.depthTextureView, err = b.depthTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}

	// With MSAA, View is the MSAA texture and ResolveTarget is set per frame to the swapchain view.
	// Without it, View is set per frame and ResolveTarget stays nil.
	storeOp := wgpu.StoreOpStore
	if msaaEnabled {
		storeOp = wgpu.StoreOpDiscard
	}
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    b.msaaTextureView,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: storeOp,
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
}

func (b *wgpuBackend) releaseAttachments() {
	if b.msaaTextureView != nil {
		b.msaaTextureView.Release()
		b.msaaTexture.Release()
		b.msaaTextureView, b.msaaTexture = nil, nil
	}
	if b.depthTextureView != nil {
		b.depthTextureView.Release()
		b.depthTexture.Release()
		b.depthTextureView, b.depthTexture = nil, nil
	}
}

func (b *wgpuBackend) CreateBuffer(desc gpu.BufferDescriptor) (gpu.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return 0, err
	}
	return b.issue(&wgpuObject{kind: gpu.ObjectBuffer, buffer: buf}), nil
}

func (b *wgpuBackend) WriteBuffer(h gpu.Handle, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, err := b.lookup(h, gpu.ObjectBuffer)
	if err != nil {
		return err
	}
	b.queue.WriteBuffer(o.buffer, offset, data)
	return nil
}

func (b *wgpuBackend) CreateTexture(desc gpu.TextureDescriptor) (gpu.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	levels := max(desc.Levels, 1)
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     desc.Label,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: desc.Layers(),
		},
		Format:        desc.Format,
		MipLevelCount: levels,
		SampleCount:   1,
	})
	if err != nil {
		return 0, err
	}

	dimension := wgpu.TextureViewDimension2D
	if desc.Cube {
		dimension = wgpu.TextureViewDimensionCube
	}
	view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           desc.Label,
		Format:          desc.Format,
		Dimension:       dimension,
		BaseMipLevel:    0,
		MipLevelCount:   levels,
		BaseArrayLayer:  0,
		ArrayLayerCount: desc.Layers(),
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		tex.Release()
		return 0, err
	}
	return b.issue(&wgpuObject{
		kind:    gpu.ObjectTexture,
		texture: tex,
		view:    view,
		width:   desc.Width,
		height:  desc.Height,
		levels:  levels,
		layers:  desc.Layers(),
		texel:   texelSize(desc.Format),
	}), nil
}

// texelSize returns the bytes per texel of the formats the renderer uploads.
func texelSize(f wgpu.TextureFormat) uint32 {
	switch f {
	case wgpu.TextureFormatRGBA16Float:
		return 8
	case wgpu.TextureFormatRGBA32Float:
		return 16
	default:
		return 4
	}
}

func (b *wgpuBackend) WriteTexture(h gpu.Handle, level, layer uint32, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, err := b.lookup(h, gpu.ObjectTexture)
	if err != nil {
		return err
	}
	if level >= o.levels || layer >= o.layers {
		return fmt.Errorf("texture %d: level %d layer %d out of range", h, level, layer)
	}
	w, ht := max(o.width>>level, 1), max(o.height>>level, 1)
	if uint64(len(data)) != uint64(w)*uint64(ht)*uint64(o.texel) {
		return fmt.Errorf("texture %d: level %d expects %dx%d texels, got %d bytes", h, level, w, ht, len(data))
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  o.texture,
			MipLevel: level,
			Origin:   wgpu.Origin3D{Z: layer},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  w * o.texel,
			RowsPerImage: ht,
		},
		&wgpu.Extent3D{
			Width:              w,
			Height:             ht,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (b *wgpuBackend) CreateSampler(desc gpu.SamplerDescriptor) (gpu.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  common.Coalesce(desc.AddressMode, wgpu.AddressModeClampToEdge),
		AddressModeV:  common.Coalesce(desc.AddressMode, wgpu.AddressModeClampToEdge),
		AddressModeW:  common.Coalesce(desc.AddressMode, wgpu.AddressModeClampToEdge),
		MagFilter:     common.Coalesce(desc.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(desc.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(desc.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   0,
		LodMaxClamp:   common.Coalesce(desc.LodMaxClamp, 32.0),
		MaxAnisotropy: 1,
	})
	if err != nil {
		return 0, err
	}
	return b.issue(&wgpuObject{kind: gpu.ObjectSampler, sampler: samp}), nil
}

func (b *wgpuBackend) CreateBindGroup(desc gpu.BindGroupDescriptor) (gpu.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entries[i].Binding = e.Binding
		switch {
		case e.Buffer.Valid():
			o, err := b.lookup(e.Buffer, gpu.ObjectBuffer)
			if err != nil {
				return 0, err
			}
			entries[i].Buffer, entries[i].Offset, entries[i].Size = o.buffer, 0, wgpu.WholeSize
		case e.Texture.Valid():
			o, err := b.lookup(e.Texture, gpu.ObjectTexture)
			if err != nil {
				return 0, err
			}
			entries[i].TextureView = o.view
		case e.Sampler.Valid():
			o, err := b.lookup(e.Sampler, gpu.ObjectSampler)
			if err != nil {
				return 0, err
			}
			entries[i].Sampler = o.sampler
		default:
			return 0, fmt.Errorf("bind group %q: binding %d has nothing bound", desc.Label, e.Binding)
		}
	}

	// Layouts created from equal descriptors are compatible, so each bind group carries its own.
	layout, err := b.device.CreateBindGroupLayout(&desc.Layout)
	if err != nil {
		return 0, err
	}
	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label + " Bind Group",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		layout.Release()
		return 0, err
	}
	return b.issue(&wgpuObject{kind: gpu.ObjectBindGroup, bindGroup: bg, bindLayouts: []*wgpu.BindGroupLayout{layout}}), nil
}

func (b *wgpuBackend) CreateRenderPipeline(desc gpu.RenderPipelineDescriptor) (gpu.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if desc.Source == "" || desc.VertexEntry == "" || desc.FragmentEntry == "" {
		return 0, errors.New("both vertex and fragment entry points must be set to create a render pipeline")
	}

	o := &wgpuObject{kind: gpu.ObjectRenderPipeline}
	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Source,
		},
	})
	if err != nil {
		return 0, err
	}
	o.module = module

	o.bindLayouts = make([]*wgpu.BindGroupLayout, len(desc.BindGroups))
	for g := range desc.BindGroups {
		layout, layoutErr := b.device.CreateBindGroupLayout(&desc.BindGroups[g])
		if layoutErr != nil {
			o.release()
			return 0, fmt.Errorf("failed to create bind group layout for group %d: %w", g, layoutErr)
		}
		o.bindLayouts[g] = layout
	}

	o.pipelineLayout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: o.bindLayouts,
	})
	if err != nil {
		o.release()
		return 0, err
	}

	target := wgpu.ColorTargetState{
		Format:    *b.surfaceFormat,
		WriteMask: desc.ColorWriteMask,
		Blend:     desc.Blend,
	}
	depthCompare := wgpu.CompareFunctionLess
	if !desc.DepthTest {
		depthCompare = wgpu.CompareFunctionAlways
	}

	o.pipeline, err = b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + " Render Pipeline",
		Layout: o.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntry,
			Buffers:    desc.VertexBuffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntry,
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  desc.Topology,
			FrontFace: desc.FrontFace,
			CullMode:  desc.CullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: desc.DepthWrite,
			DepthCompare:      depthCompare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		o.release()
		return 0, err
	}
	return b.issue(o), nil
}

func (b *wgpuBackend) Destroy(h gpu.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.objects[h]
	if !ok {
		return fmt.Errorf("%w: %d", gpu.ErrUnknownHandle, h)
	}
	o.release()
	delete(b.objects, h)
	return nil
}

func (b *wgpuBackend) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

func (b *wgpuBackend) BeginFrame(clear wgpu.Color) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Acquiring a second surface texture before presenting the first is a validation error.
	if b.frameSurface != nil {
		return errors.New("previous frame surface not yet presented")
	}
	if b.renderPassDescriptor == nil {
		return gpu.ErrSurfaceUnavailable
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("%w: %v", gpu.ErrSurfaceUnavailable, err)
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	b.renderPassDescriptor.ColorAttachments[0].ClearValue = clear
	if b.sampleCount > 1 {
		b.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		b.renderPassDescriptor.ColorAttachments[0].View = view
	}
	pass := encoder.BeginRenderPass(b.renderPassDescriptor)

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view
	return nil
}

func (b *wgpuBackend) Draw(cmd gpu.DrawCommand) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errors.New("draw outside a frame")
	}
	p, err := b.lookup(cmd.Pipeline, gpu.ObjectRenderPipeline)
	if err != nil {
		return err
	}
	b.framePass.SetPipeline(p.pipeline)

	for i, h := range cmd.BindGroups {
		bg, err := b.lookup(h, gpu.ObjectBindGroup)
		if err != nil {
			return err
		}
		b.framePass.SetBindGroup(uint32(i), bg.bindGroup, nil)
	}
	for i, h := range cmd.VertexBuffers {
		vb, err := b.lookup(h, gpu.ObjectBuffer)
		if err != nil {
			return err
		}
		b.framePass.SetVertexBuffer(uint32(i), vb.buffer, 0, wgpu.WholeSize)
	}

	if !cmd.IndexBuffer.Valid() {
		b.framePass.Draw(cmd.Count, cmd.InstanceCount, cmd.First, 0)
		return nil
	}
	ib, err := b.lookup(cmd.IndexBuffer, gpu.ObjectBuffer)
	if err != nil {
		return err
	}
	b.framePass.SetIndexBuffer(ib.buffer, cmd.IndexFormat, 0, wgpu.WholeSize)
	b.framePass.DrawIndexed(cmd.Count, cmd.InstanceCount, cmd.First, 0, 0)
	return nil
}

func (b *wgpuBackend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errors.New("no frame to end")
	}
	b.framePass.End()

	commandBuffer, err := b.frameEncoder.Finish(nil)
	b.frameEncoder.Release()
	b.frameEncoder = nil
	b.framePass = nil
	if err != nil {
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameSurface = nil
		b.frameView = nil
		return err
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuBackend) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()

	b.frameView.Release()
	b.frameView = nil
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for h, o := range b.objects {
		o.release()
		delete(b.objects, h)
	}
	b.releaseAttachments()
	if b.device != nil {
		b.device.Release()
	}
	if b.adapter != nil {
		b.adapter.Release()
	}
	if b.surface != nil {
		b.surface.Release()
	}
	b.instance.Release()
}
