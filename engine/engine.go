package engine

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/camera"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/input"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/jobs"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/light"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/mesh"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/profiler"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderable"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/scene"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/texture"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/view"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/window"
	"github.com/mlange-42/arche/ecs"
	"github.com/mlange-42/arche/generic"
)

// ErrDeadEntity is returned when a component is attached to an entity that was destroyed or never created.
var ErrDeadEntity = errors.New("engine: dead entity")

// ErrPanicked is returned by Run when the app panicked during a frame.
var ErrPanicked = errors.New("engine: app panicked")

// App is driven by Run. The sandbox scene implements it.
type App interface {
	// Build is called once before the first frame.
	Build() error

	// Animate advances and renders one frame.
	Animate(dt time.Duration)

	// Resize is called when the window's framebuffer size changes.
	Resize(width, height int)
}

// Components are stored as single-field structs so the ECS world keys them by concrete type.
type cameraComponent struct{ camera.Camera }
type renderableComponent struct{ renderable.Renderable }
type lightComponent struct{ light.Light }

// engine implements the Engine interface.
// It is the resource factory for everything a scene owns, and the host loop driving an App from the window.
type engine struct {
	mu *sync.Mutex

	window   window.Window
	renderer renderer.Renderer
	input    input.InputController
	registry resource.Registry
	jobs     jobs.JobSystem

	world        ecs.World
	entities     map[ecs.Entity]resource.Handle
	cameras      generic.Map1[cameraComponent]
	renderables  generic.Map1[renderableComponent]
	lights       generic.Map1[lightComponent]
	cameraID     ecs.ID
	renderableID ecs.ID
	lightID      ecs.ID

	profiler         *profiler.Profiler
	profilingEnabled bool

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	frames           uint64
	quitOnce         sync.Once
}

// Engine is the main entry point for the engine.
// It creates and destroys every engine resource, tracks them in a registry so leaks are observable,
// and runs the frame loop that drives an App from the window's message loop.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer attached with WithRenderer, or nil.
	Renderer() renderer.Renderer

	// Registry returns the registry tracking every live resource.
	Registry() resource.Registry

	// Jobs returns the job system used for material compilation and IBL prefiltering.
	Jobs() jobs.JobSystem

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// CreateEntity creates an entity with no components.
	CreateEntity() ecs.Entity

	// DestroyEntity removes an entity and its components. Resources attached as components stay live
	// until they are destroyed themselves.
	//
	// Returns:
	//   - error: ErrDeadEntity if the entity is not alive
	DestroyEntity(e ecs.Entity) error

	// CreateCamera attaches a camera component to an entity.
	//
	// Parameters:
	//   - e: the owning entity
	//   - options: camera options
	//
	// Returns:
	//   - camera.Camera: the camera
	//   - error: ErrDeadEntity if the entity is not alive
	CreateCamera(e ecs.Entity, options ...camera.CameraBuilderOption) (camera.Camera, error)

	// CreateView creates a view.
	CreateView(options ...view.ViewBuilderOption) view.View

	// CreateScene creates an empty scene that resolves components through this engine.
	CreateScene(options ...scene.SceneBuilderOption) scene.Scene

	// CreateVertexBuffer creates an empty vertex buffer.
	CreateVertexBuffer(desc mesh.VertexBufferDescriptor) (mesh.VertexBuffer, error)

	// CreateIndexBuffer creates an empty index buffer.
	CreateIndexBuffer(label string, count int, indexType mesh.IndexType) (mesh.IndexBuffer, error)

	// CreateTexture creates an empty texture.
	CreateTexture(desc texture.Descriptor) (texture.Texture, error)

	// CreateSkybox creates a skybox.
	CreateSkybox(options ...light.SkyboxBuilderOption) (light.Skybox, error)

	// CreateIndirectLight creates an image based light.
	//
	// Parameters:
	//   - reflections: a complete prefiltered cubemap
	//   - options: indirect light options
	//
	// Returns:
	//   - light.IndirectLight: the indirect light
	//   - error: wrapping light.ErrMissingReflections when reflections is missing or incomplete
	CreateIndirectLight(reflections texture.Texture, options ...light.IndirectLightBuilderOption) (light.IndirectLight, error)

	// CreateLight attaches a light component to an entity.
	CreateLight(e ecs.Entity, lightType light.LightType, options ...light.LightBuilderOption) (light.Light, error)

	// CompileMaterial compiles a definition into a package on the job system.
	CompileMaterial(def material.Definition) (material.Package, error)

	// CreateMaterial decodes a compiled package. Variants are reflected on the job system.
	CreateMaterial(pkg material.Package, options ...material.MaterialBuilderOption) (material.Material, error)

	// CreateMaterialInstance creates an instance starting from the material's defaults.
	CreateMaterialInstance(m material.Material) (material.MaterialInstance, error)

	// CreateRenderable attaches a renderable component with count primitive slots to an entity.
	CreateRenderable(e ecs.Entity, count int, options ...renderable.RenderableBuilderOption) (renderable.Renderable, error)

	// Destroy releases a resource: its registry handle, its component if it is one, and the GPU objects
	// the renderer cached for it.
	//
	// Parameters:
	//   - r: the resource to destroy
	//
	// Returns:
	//   - error: wrapping resource.ErrStaleHandle when r was already destroyed, or the renderer's release failure
	Destroy(r resource.Resource) error

	// Renderable returns the renderable component of an entity.
	Renderable(e ecs.Entity) (renderable.Renderable, bool)

	// Light returns the light component of an entity.
	Light(e ecs.Entity) (light.Light, bool)

	// Camera returns the camera component of an entity.
	Camera(e ecs.Entity) (camera.Camera, bool)

	// Run calls app.Build, then drives app.Animate once per iteration of the window's message loop
	// until the window closes. Resizes are forwarded to the renderer, the input controller and the app.
	// A panic inside the app is recovered, logged and returned as ErrPanicked.
	//
	// Parameters:
	//   - app: the application to run
	//
	// Returns:
	//   - error: the Build failure or ErrPanicked
	Run(app App) error

	// Frames returns the number of frames Run has driven.
	Frames() uint64

	// Quit closes the window, which ends Run after the current frame.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}
var _ scene.Components = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - options: functional options for engine configuration (window, renderer, profiling, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:       &sync.Mutex{},
		registry: resource.NewRegistry(),
		world:    ecs.NewWorld(),
		entities: make(map[ecs.Entity]resource.Handle),
		profiler: profiler.NewProfiler(),
	}
	e.cameras = generic.NewMap1[cameraComponent](&e.world)
	e.renderables = generic.NewMap1[renderableComponent](&e.world)
	e.lights = generic.NewMap1[lightComponent](&e.world)
	e.cameraID = ecs.ComponentID[cameraComponent](&e.world)
	e.renderableID = ecs.ComponentID[renderableComponent](&e.world)
	e.lightID = ecs.ComponentID[lightComponent](&e.world)

	for _, opt := range options {
		opt(e)
	}
	if e.jobs == nil {
		e.jobs = jobs.NewJobSystem(0)
	}
	return e
}

func (e *engine) Window() window.Window       { return e.window }
func (e *engine) Renderer() renderer.Renderer { return e.renderer }
func (e *engine) Registry() resource.Registry { return e.registry }
func (e *engine) Jobs() jobs.JobSystem        { return e.jobs }

func (e *engine) Frames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderFrameLimit = frameDuration(fps)
}

func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}

func (e *engine) CreateEntity() ecs.Entity {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent := e.world.NewEntity()
	e.entities[ent] = e.registry.Acquire(resource.KindEntity, fmt.Sprintf("entity %v", ent))
	return ent
}

func (e *engine) DestroyEntity(ent ecs.Entity) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, ok := e.entities[ent]
	if !ok || !e.world.Alive(ent) {
		return fmt.Errorf("%w: %v", ErrDeadEntity, ent)
	}
	delete(e.entities, ent)
	e.world.RemoveEntity(ent)
	return e.registry.Release(h)
}

// aliveLocked reports whether ent was created by this engine and not destroyed.
func (e *engine) aliveLocked(ent ecs.Entity) error {
	if _, ok := e.entities[ent]; !ok || !e.world.Alive(ent) {
		return fmt.Errorf("%w: %v", ErrDeadEntity, ent)
	}
	return nil
}

func (e *engine) CreateCamera(ent ecs.Entity, options ...camera.CameraBuilderOption) (camera.Camera, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.aliveLocked(ent); err != nil {
		return nil, fmt.Errorf("engine: create camera: %w", err)
	}
	if e.world.Has(ent, e.cameraID) {
		return nil, fmt.Errorf("engine: create camera: entity %v already has a camera", ent)
	}
	cam := camera.NewCamera(e.registry.Acquire(resource.KindCamera, "camera"), ent, options...)
	e.cameras.Assign(ent, &cameraComponent{cam})
	return cam, nil
}

func (e *engine) CreateView(options ...view.ViewBuilderOption) view.View {
	return view.NewView(e.registry.Acquire(resource.KindView, "view"), options...)
}

func (e *engine) CreateScene(options ...scene.SceneBuilderOption) scene.Scene {
	return scene.NewScene(e.registry.Acquire(resource.KindScene, "scene"), e, options...)
}

func (e *engine) CreateVertexBuffer(desc mesh.VertexBufferDescriptor) (mesh.VertexBuffer, error) {
	h := e.registry.Acquire(resource.KindVertexBuffer, desc.Label)
	vb, err := mesh.NewVertexBuffer(h, desc)
	if err != nil {
		return nil, e.abandon(h, err)
	}
	return vb, nil
}

func (e *engine) CreateIndexBuffer(label string, count int, indexType mesh.IndexType) (mesh.IndexBuffer, error) {
	h := e.registry.Acquire(resource.KindIndexBuffer, label)
	ib, err := mesh.NewIndexBuffer(h, label, count, indexType)
	if err != nil {
		return nil, e.abandon(h, err)
	}
	return ib, nil
}

func (e *engine) CreateTexture(desc texture.Descriptor) (texture.Texture, error) {
	h := e.registry.Acquire(resource.KindTexture, desc.Label)
	tex, err := texture.NewTexture(h, desc)
	if err != nil {
		return nil, e.abandon(h, err)
	}
	return tex, nil
}

func (e *engine) CreateSkybox(options ...light.SkyboxBuilderOption) (light.Skybox, error) {
	h := e.registry.Acquire(resource.KindSkybox, "skybox")
	sb, err := light.NewSkybox(h, options...)
	if err != nil {
		return nil, e.abandon(h, err)
	}
	return sb, nil
}

func (e *engine) CreateIndirectLight(reflections texture.Texture, options ...light.IndirectLightBuilderOption) (light.IndirectLight, error) {
	h := e.registry.Acquire(resource.KindIndirectLight, "indirect light")
	il, err := light.NewIndirectLight(h, reflections, options...)
	if err != nil {
		return nil, e.abandon(h, err)
	}
	return il, nil
}

func (e *engine) CreateLight(ent ecs.Entity, lightType light.LightType, options ...light.LightBuilderOption) (light.Light, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.aliveLocked(ent); err != nil {
		return nil, fmt.Errorf("engine: create light: %w", err)
	}
	if e.world.Has(ent, e.lightID) {
		return nil, fmt.Errorf("engine: create light: entity %v already has a light", ent)
	}
	l := light.NewLight(e.registry.Acquire(resource.KindLight, lightType.String()), ent, lightType, options...)
	e.lights.Assign(ent, &lightComponent{l})
	return l, nil
}

func (e *engine) CompileMaterial(def material.Definition) (material.Package, error) {
	return material.Compile(def, e.jobs)
}

func (e *engine) CreateMaterial(pkg material.Package, options ...material.MaterialBuilderOption) (material.Material, error) {
	h := e.registry.Acquire(resource.KindMaterial, "material")
	m, err := material.NewMaterial(h, pkg, append([]material.MaterialBuilderOption{material.WithJobs(e.jobs)}, options...)...)
	if err != nil {
		return nil, e.abandon(h, err)
	}
	return m, nil
}

func (e *engine) CreateMaterialInstance(m material.Material) (material.MaterialInstance, error) {
	if m == nil || !e.registry.Alive(m.Handle()) {
		return nil, fmt.Errorf("engine: create material instance: %w", resource.ErrStaleHandle)
	}
	return m.CreateInstance(e.registry.Acquire(resource.KindMaterialInstance, m.Name())), nil
}

func (e *engine) CreateRenderable(ent ecs.Entity, count int, options ...renderable.RenderableBuilderOption) (renderable.Renderable, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.aliveLocked(ent); err != nil {
		return nil, fmt.Errorf("engine: create renderable: %w", err)
	}
	if e.world.Has(ent, e.renderableID) {
		return nil, fmt.Errorf("engine: create renderable: entity %v already has a renderable", ent)
	}
	h := e.registry.Acquire(resource.KindRenderable, "renderable")
	rd, err := renderable.NewRenderable(h, ent, count, options...)
	if err != nil {
		return nil, e.abandon(h, err)
	}
	e.renderables.Assign(ent, &renderableComponent{rd})
	return rd, nil
}

// abandon releases a handle whose object could not be built and wraps the build error.
func (e *engine) abandon(h resource.Handle, err error) error {
	return errors.Join(fmt.Errorf("engine: create %s: %w", h.Kind, err), e.registry.Release(h))
}

func (e *engine) Destroy(r resource.Resource) error {
	if r == nil {
		return nil
	}
	h := r.Handle()
	if err := e.registry.Release(h); err != nil {
		return fmt.Errorf("engine: destroy %s: %w", h, err)
	}

	e.mu.Lock()
	switch c := r.(type) {
	case camera.Camera:
		if ent := c.Entity(); e.world.Alive(ent) && e.world.Has(ent, e.cameraID) && e.cameras.Get(ent).Camera == c {
			e.cameras.Remove(ent)
		}
	case renderable.Renderable:
		if ent := c.Entity(); e.world.Alive(ent) && e.world.Has(ent, e.renderableID) && e.renderables.Get(ent).Renderable == c {
			e.renderables.Remove(ent)
		}
	case light.Light:
		if ent := c.Entity(); e.world.Alive(ent) && e.world.Has(ent, e.lightID) && e.lights.Get(ent).Light == c {
			e.lights.Remove(ent)
		}
	}
	e.mu.Unlock()

	if e.renderer != nil {
		if err := e.renderer.Release(h); err != nil {
			return fmt.Errorf("engine: destroy %s: %w", h, err)
		}
	}
	return nil
}

func (e *engine) Renderable(ent ecs.Entity) (renderable.Renderable, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.world.Alive(ent) || !e.world.Has(ent, e.renderableID) {
		return nil, false
	}
	return e.renderables.Get(ent).Renderable, true
}

func (e *engine) Light(ent ecs.Entity) (light.Light, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.world.Alive(ent) || !e.world.Has(ent, e.lightID) {
		return nil, false
	}
	return e.lights.Get(ent).Light, true
}

func (e *engine) Camera(ent ecs.Entity) (camera.Camera, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.world.Alive(ent) || !e.world.Has(ent, e.cameraID) {
		return nil, false
	}
	return e.cameras.Get(ent).Camera, true
}

func (e *engine) Run(app App) (err error) {
	if e.window == nil {
		panic("engine: Run requires a Window, use WithWindow")
	}
	if app == nil {
		panic("engine: Run requires a non-nil App")
	}

	if err := app.Build(); err != nil {
		return fmt.Errorf("engine: build: %w", err)
	}

	e.window.SetResizeCallback(func(width, height int) {
		if e.renderer != nil {
			e.renderer.Resize(width, height)
		}
		if e.input != nil {
			e.input.Resize(width, height)
		}
		app.Resize(width, height)
	})
	if e.input != nil {
		e.input.Bind(e.window)
	}

	lastFrame := time.Now()
	e.window.SetUpdateCallback(func() {
		// Recover from panics inside the frame to shut down cleanly instead of crashing the process.
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Engine] frame %d recovered from panic: %v", e.Frames(), r)
				err = fmt.Errorf("%w: %v", ErrPanicked, r)
				e.Quit()
			}
		}()

		now := time.Now()
		dt := now.Sub(lastFrame)
		lastFrame = now

		app.Animate(dt)

		e.mu.Lock()
		e.frames++
		profile, limit := e.profilingEnabled, e.renderFrameLimit
		e.mu.Unlock()

		if profile {
			e.profiler.Tick(e.registry.Total())
		}

		// Frame rate limiting
		if limit > 0 {
			if remaining := limit - time.Since(now); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	})

	log.Printf("[Engine] running, %d resources live", e.registry.Total())
	e.window.ProcessMessages()

	log.Printf("[Engine] stopped after %d frames", e.Frames())
	return err
}

// Quit closes the window once. Subsequent calls are no-ops.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		if e.window != nil {
			if err := e.window.Close(); err != nil {
				log.Printf("[Engine] closing window: %v", err)
			}
		}
	})
}
