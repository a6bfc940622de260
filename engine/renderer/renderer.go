package renderer

import (
	_ "embed"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/camera"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/light"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/view"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrFrameSkipped is returned by Render when nothing could be drawn this frame: the surface had no
// texture to give or the view covers no pixels. The caller should simply try again next frame.
var ErrFrameSkipped = fmt.Errorf("renderer: frame skipped: %w", gpu.ErrSurfaceUnavailable)

// ErrClosed is returned by Render after Close.
var ErrClosed = errors.New("renderer: closed")

//go:embed assets/skybox.wgsl
var skyboxSource string

//go:embed assets/sky_params.wgsl
var skyParamsSource string

// skyParamsSize is the byte size of the SkyParams struct.
const skyParamsSize = 16

// Stats counts what the renderer has done since it was created.
type Stats struct {
	Frames  uint64
	Skipped uint64
	Draws   uint64
	Culled  uint64
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     gpu.Backend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	clearColor           wgpu.Color

	// Renderer-owned objects created once in NewRenderer.
	frame       bind_group_provider.BindGroupProvider
	sampler     gpu.Handle
	fallback    gpu.Handle
	fallbackEnv bind_group_provider.BindGroupProvider
	skyShader   shader.Shader
	skyPipeline pipeline.Pipeline

	pipelineCache     map[string]pipeline.Pipeline
	materialPipelines map[resource.Handle][]string

	vertexBuffers map[resource.Handle]*vertexBufferEntry
	indexBuffers  map[resource.Handle]*indexBufferEntry
	textures      map[resource.Handle]*textureEntry
	instances     map[resource.Handle]*instanceEntry
	objects       map[resource.Handle]bind_group_provider.BindGroupProvider
	environments  map[resource.Handle]*environmentEntry

	stats  Stats
	closed bool
}

// Renderer draws views.
//
// This is a high-level API designed to simplify rendering tasks into a streamlined and idiomatic flow.
// The Renderer uploads engine resources lazily the first time a view draws them and keeps them cached
// until the engine releases them. Material variant pipelines are created on first use and cached per
// material, vertex layout and fixed-function state.
// The Renderer implements a backend which allows for multiple backend API implementations to exist.
type Renderer interface {
	// Render draws one frame of the view: frame uniforms, clear to the skybox color, the skybox
	// environment when there is one, then every renderable of the view's scene.
	// Exactly one frame is submitted per successful call.
	//
	// Parameters:
	//   - v: the view to draw
	//
	// Returns:
	//   - error: ErrFrameSkipped when nothing could be drawn this frame, any other error is fatal
	Render(v view.View) error

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// Release drops every GPU object cached for an engine resource. Resources the renderer never
	// uploaded are ignored.
	//
	// Parameters:
	//   - h: the handle of the destroyed resource
	//
	// Returns:
	//   - error: the joined backend failures
	Release(h resource.Handle) error

	// Backend returns the GPU backend the renderer draws through.
	Backend() gpu.Backend

	// Stats returns the frame counters.
	Stats() Stats

	// Close releases every cached object and the backend. Calling Close twice is a no-op.
	Close() error
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer instance with the specified backend type, drawing into the window's surface.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - win: the window providing the surface and its initial size
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
//   - error: if the backend or the renderer-owned GPU objects can not be created
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) (Renderer, error) {
	if win == nil {
		panic("renderer: NewRenderer requires a non-nil Window")
	}
	r := &renderer{
		mu:                &sync.Mutex{},
		backendType:       backendType,
		clearColor:        wgpu.Color{A: 1},
		pipelineCache:     make(map[string]pipeline.Pipeline),
		materialPipelines: make(map[resource.Handle][]string),
		vertexBuffers:     make(map[resource.Handle]*vertexBufferEntry),
		indexBuffers:      make(map[resource.Handle]*indexBufferEntry),
		textures:          make(map[resource.Handle]*textureEntry),
		instances:         make(map[resource.Handle]*instanceEntry),
		objects:           make(map[resource.Handle]bind_group_provider.BindGroupProvider),
		environments:      make(map[resource.Handle]*environmentEntry),
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	msaa := MSAA4x
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	if r.backend == nil {
		switch backendType {
		case BackendTypeRecorder:
			r.backend = gpu.NewRecorder()
		case BackendTypeWGPU:
			fallthrough
		default:
			b, err := newWGPUBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter, msaa)
			if err != nil {
				return nil, fmt.Errorf("renderer: %w", err)
			}
			if r.pendingPresentMode != nil {
				b.SetPresentMode(*r.pendingPresentMode)
			}
			r.backend = b
		}
	}

	r.backend.Resize(win.Width(), win.Height())
	if err := r.init(); err != nil {
		r.backend.Release()
		return nil, fmt.Errorf("renderer: %w", err)
	}
	log.Printf("[Renderer] %s backend ready, %dx%d, %d GPU objects", backendType, win.Width(), win.Height(), r.backend.Live())
	return r, nil
}

// init creates the objects every frame uses: the frame uniforms, the environment sampler, a black
// fallback environment for scenes without indirect light, and the skybox pipeline.
func (r *renderer) init() error {
	cam, err := r.backend.CreateBuffer(gpu.BufferDescriptor{Label: "camera", Size: camera.GPUCameraUniformSize, Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst})
	if err != nil {
		return err
	}
	lit, err := r.backend.CreateBuffer(gpu.BufferDescriptor{Label: "lighting", Size: light.GPULightingSize, Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst})
	if err != nil {
		return err
	}
	r.frame = bind_group_provider.NewBindGroupProvider("frame",
		bind_group_provider.WithBuffer(shader.AnnotationArgCamera, cam),
		bind_group_provider.WithBuffer(shader.AnnotationArgLighting, lit),
	)

	r.sampler, err = r.backend.CreateSampler(gpu.SamplerDescriptor{
		Label:        "environment",
		AddressMode:  wgpu.AddressModeClampToEdge,
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
		MipmapFilter: wgpu.MipmapFilterModeLinear,
		LodMaxClamp:  32,
	})
	if err != nil {
		return err
	}

	r.fallback, err = r.backend.CreateTexture(gpu.TextureDescriptor{Label: "fallback environment", Width: 1, Height: 1, Levels: 1, Cube: true, Format: wgpu.TextureFormatRGBA16Float})
	if err != nil {
		return err
	}
	// Opaque black in RGBA16Float.
	black := []byte{0, 0, 0, 0, 0, 0, 0x00, 0x3c}
	for face := uint32(0); face < 6; face++ {
		if err := r.backend.WriteTexture(r.fallback, 0, face, black); err != nil {
			return err
		}
	}
	r.fallbackEnv = bind_group_provider.NewBindGroupProvider("fallback environment",
		bind_group_provider.WithTexture(shader.AnnotationArgEnvironmentTexture, r.fallback),
		bind_group_provider.WithSampler(shader.AnnotationArgEnvironmentSampler, r.sampler),
	)

	pp := shader.NewPreProcessor()
	pp.Register(shader.AnnotationArgMaterialParams, skyParamsSource, "SkyParams")
	r.skyShader, err = shader.NewShader("skybox", skyboxSource, pp)
	if err != nil {
		return err
	}
	r.skyPipeline = pipeline.NewPipeline("skybox", r.skyShader,
		pipeline.WithDepthTestEnabled(false),
		pipeline.WithDepthWriteEnabled(false),
		pipeline.WithCullMode(wgpu.CullModeNone),
	)
	h, err := r.backend.CreateRenderPipeline(r.skyPipeline.Descriptor())
	if err != nil {
		return err
	}
	r.skyPipeline.SetHandle(h)
	return nil
}

func (r *renderer) Backend() gpu.Backend {
	return r.backend
}

func (r *renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *renderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.backend.Resize(width, height)
}

func (r *renderer) Render(v view.View) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	cam, sc := v.Camera(), v.Scene()
	if cam == nil || sc == nil {
		return fmt.Errorf("renderer: view %q needs a camera and a scene", v.Name())
	}
	if v.Viewport().Empty() {
		r.stats.Skipped++
		return ErrFrameSkipped
	}

	camUniform := cam.Uniform()
	var lighting light.GPULighting
	env := r.fallbackEnv
	if il := sc.IndirectLight(); il != nil {
		il.Uniform(&lighting)
		p, err := r.environment(il.Handle(), il.Reflections(), false)
		if err != nil {
			return err
		}
		env = p
	}
	for _, l := range sc.Lights() {
		if lighting.LightCount == light.MaxGPULights {
			break
		}
		lighting.Lights[lighting.LightCount] = l.Uniform()
		lighting.LightCount++
	}
	variant := material.Variant(0)
	if lighting.LightCount > 0 {
		variant = material.VariantDirectional
	}

	writes := []bind_group_provider.BufferWrite{
		{Provider: r.frame, Role: shader.AnnotationArgCamera, Data: camUniform.Marshal()},
		{Provider: r.frame, Role: shader.AnnotationArgLighting, Data: lighting.Marshal()},
	}

	// Everything a draw needs is created before the frame opens so a failure never leaves a pass dangling.
	var draws []gpu.DrawCommand
	clearColor := r.clearColor
	if sb := sc.Skybox(); sb != nil {
		c := sb.Color()
		clearColor = wgpu.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])}
		if sb.Environment() != nil {
			cmd, w, err := r.skyboxDraw(sb)
			if err != nil {
				return err
			}
			draws = append(draws, cmd)
			writes = append(writes, w)
		}
	}

	frustum := cam.Frustum()
	for _, rd := range sc.Renderables() {
		if rd.Culling() && !frustum.IntersectsBox(rd.WorldBoundingBox()) {
			r.stats.Culled++
			continue
		}
		obj, w, err := r.object(rd)
		if err != nil {
			return err
		}
		writes = append(writes, w)
		for i, prim := range rd.Primitives() {
			cmd, err := r.primitiveDraw(prim, variant, env, obj)
			if err != nil {
				return fmt.Errorf("renderer: %s primitive %d: %w", rd.Handle(), i, err)
			}
			draws = append(draws, cmd)
		}
	}

	if err := bind_group_provider.WriteBuffers(r.backend, writes); err != nil {
		return fmt.Errorf("renderer: %w", err)
	}

	if err := r.backend.BeginFrame(clearColor); err != nil {
		if errors.Is(err, gpu.ErrSurfaceUnavailable) {
			r.stats.Skipped++
			return ErrFrameSkipped
		}
		return fmt.Errorf("renderer: begin frame: %w", err)
	}
	for _, cmd := range draws {
		if err := r.backend.Draw(cmd); err != nil {
			return errors.Join(fmt.Errorf("renderer: draw: %w", err), r.backend.EndFrame())
		}
	}
	if err := r.backend.EndFrame(); err != nil {
		return fmt.Errorf("renderer: end frame: %w", err)
	}
	r.backend.Present()

	r.stats.Frames++
	r.stats.Draws += uint64(len(draws))
	return nil
}

func (r *renderer) Release(h resource.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	var errs []error
	switch h.Kind {
	case resource.KindVertexBuffer:
		if e, ok := r.vertexBuffers[h]; ok {
			for _, s := range e.slots {
				if s.Valid() {
					errs = append(errs, r.backend.Destroy(s))
				}
			}
			delete(r.vertexBuffers, h)
		}
	case resource.KindIndexBuffer:
		if e, ok := r.indexBuffers[h]; ok {
			errs = append(errs, r.backend.Destroy(e.handle))
			delete(r.indexBuffers, h)
		}
	case resource.KindTexture:
		if e, ok := r.textures[h]; ok {
			// Bind groups referencing the texture go first.
			for owner, env := range r.environments {
				if env.texture == h {
					errs = append(errs, env.provider.Release(r.backend))
					delete(r.environments, owner)
				}
			}
			errs = append(errs, r.backend.Destroy(e.handle))
			delete(r.textures, h)
		}
	case resource.KindMaterial:
		for _, key := range r.materialPipelines[h] {
			if p, ok := r.pipelineCache[key]; ok {
				errs = append(errs, r.backend.Destroy(p.Handle()))
				delete(r.pipelineCache, key)
			}
		}
		delete(r.materialPipelines, h)
	case resource.KindMaterialInstance:
		if e, ok := r.instances[h]; ok {
			errs = append(errs, e.provider.Release(r.backend))
			delete(r.instances, h)
		}
	case resource.KindRenderable:
		if p, ok := r.objects[h]; ok {
			errs = append(errs, p.Release(r.backend))
			delete(r.objects, h)
		}
	case resource.KindIndirectLight, resource.KindSkybox:
		if e, ok := r.environments[h]; ok {
			errs = append(errs, e.provider.Release(r.backend))
			delete(r.environments, h)
		}
	}
	return errors.Join(errs...)
}

func (r *renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for _, e := range r.environments {
		errs = append(errs, e.provider.Release(r.backend))
	}
	for _, e := range r.instances {
		errs = append(errs, e.provider.Release(r.backend))
	}
	for _, p := range r.objects {
		errs = append(errs, p.Release(r.backend))
	}
	errs = append(errs, r.frame.Release(r.backend), r.fallbackEnv.Release(r.backend))
	if n := r.backend.Live(); n > 0 {
		log.Printf("[Renderer] releasing %d remaining GPU objects", n)
	}
	r.backend.Release()

	clear(r.environments)
	clear(r.instances)
	clear(r.objects)
	clear(r.vertexBuffers)
	clear(r.indexBuffers)
	clear(r.textures)
	clear(r.pipelineCache)
	clear(r.materialPipelines)
	return errors.Join(errs...)
}
