// package sandbox is the rendering sandbox scene: a camera driven by an editor controller looking at one
// lit triangle, surrounded by a flat color skybox and an image based light.
package sandbox

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-sandbox/common"
	"github.com/Carmen-Shannon/oxy-sandbox/engine"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/camera"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/ibl"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/input"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/light"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/mesh"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderable"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/scene"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/texture"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/view"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/arche/ecs"
)

// ErrDestroyed is returned by Build after Destroy.
var ErrDestroyed = errors.New("sandbox: scene destroyed")

const (
	defaultIBLIntensity = 60000
	environmentHeight   = 32
	environmentSize     = 32
)

// Scene is the sandbox. It owns every resource it creates and borrows the engine, the renderer and the
// input controller, which must outlive it.
//
// Lifecycle: New builds everything, Build is called once by the host before the first frame, Animate once
// per frame, and Destroy releases everything in reverse order of creation.
type Scene interface {
	// Build checks that every resource of the scene is still alive.
	//
	// Returns:
	//   - error: ErrDestroyed after Destroy, or a stale handle error
	Build() error

	// Animate advances the editor controller by dt and renders the view once.
	// A negative dt is treated as zero. After Destroy it does nothing.
	// A frame the surface can not provide is skipped; any other render error panics.
	//
	// Parameters:
	//   - dt: time elapsed since the previous frame
	Animate(dt time.Duration)

	// Destroy releases every resource the scene created. Calling it again is a no-op.
	Destroy()

	// Resize fits the view viewport and the camera aspect to a new surface size.
	Resize(width, height int)

	Camera() camera.Camera
	View() view.View
	Graph() scene.Scene
	Renderable() renderable.Renderable
	EditorController() camera.EditorController
	Material() material.Material
	MaterialInstance() material.MaterialInstance
	IndirectLight() light.IndirectLight
	Skybox() light.Skybox

	// Sun returns the sun light added by WithSun, or nil.
	Sun() light.Light
}

type sceneImpl struct {
	mu *sync.Mutex

	engine   engine.Engine
	renderer renderer.Renderer
	input    input.InputController

	// configuration
	geometry          mesh.Geometry
	baseColor         mgl32.Vec3
	metallic          float32
	roughness         float32
	reflectance       float32
	skyColor          mgl32.Vec4
	iblIntensity      float32
	environment       texture.Texture
	equirect          *ibl.Equirect
	generator         ibl.Generator
	environmentSkybox bool
	sun               bool
	editorOptions     []camera.EditorControllerOption

	scope   resource.Scope
	owned   []resource.Resource
	skipped bool

	cameraEntity     ecs.Entity
	camera           camera.Camera
	view             view.View
	graph            scene.Scene
	reflections      texture.Texture
	indirectLight    light.IndirectLight
	skybox           light.Skybox
	editor           camera.EditorController
	vertexBuffer     mesh.VertexBuffer
	indexBuffer      mesh.IndexBuffer
	material         material.Material
	materialInstance material.MaterialInstance
	renderableEntity ecs.Entity
	renderable       renderable.Renderable
	sunEntity        ecs.Entity
	sunLight         light.Light
}

var _ Scene = &sceneImpl{}
var _ engine.App = &sceneImpl{}

// New constructs the sandbox scene. Every resource is created here, in this order: camera, view,
// indirect light, skybox, editor controller, mesh, material and instance, renderable, then the optional sun.
// If any step fails, everything created so far is released before the error is returned.
// New panics if eng, r or ic is nil.
//
// Parameters:
//   - eng: the engine creating and tracking the resources
//   - r: the renderer drawing the view
//   - ic: the input controller providing the viewport and driving the editor controller
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the constructed scene
//   - error: the wrapped failure of the first step that failed
func New(eng engine.Engine, r renderer.Renderer, ic input.InputController, options ...SceneBuilderOption) (Scene, error) {
	if eng == nil {
		panic("sandbox: New requires a non-nil Engine")
	}
	if r == nil {
		panic("sandbox: New requires a non-nil Renderer")
	}
	if ic == nil {
		panic("sandbox: New requires a non-nil InputController")
	}

	s := &sceneImpl{
		mu:           &sync.Mutex{},
		engine:       eng,
		renderer:     r,
		input:        ic,
		geometry:     mesh.TriangleGeometry(),
		baseColor:    mgl32.Vec3{0, 1, 0},
		metallic:     0.0,
		roughness:    0.4,
		reflectance:  0.5,
		skyColor:     mgl32.Vec4{0.1, 0.125, 0.25, 1.0},
		iblIntensity: defaultIBLIntensity,
	}
	for _, opt := range options {
		opt(s)
	}

	start := time.Now()
	if err := s.construct(); err != nil {
		if cerr := s.scope.Close(); cerr != nil {
			log.Printf("[Sandbox] releasing partially built scene: %v", cerr)
		}
		return nil, fmt.Errorf("sandbox: %w", err)
	}
	log.Printf("[Sandbox] scene built in %v, %d resources", time.Since(start).Round(time.Millisecond), len(s.owned))
	return s, nil
}

// own registers a resource for release by Destroy.
func (s *sceneImpl) own(res resource.Resource) {
	s.owned = append(s.owned, res)
	h := res.Handle()
	s.scope.Own(h.String(), func() error {
		err := s.engine.Destroy(res)
		// An engine without this renderer attached can not drop the GPU objects itself.
		if s.engine.Renderer() != s.renderer {
			err = errors.Join(err, s.renderer.Release(h))
		}
		return err
	})
}

func (s *sceneImpl) ownEntity(name string, e ecs.Entity) {
	s.scope.Own(name, func() error { return s.engine.DestroyEntity(e) })
}

func (s *sceneImpl) construct() error {
	vp := s.input.Viewport()

	s.cameraEntity = s.engine.CreateEntity()
	s.ownEntity("camera entity", s.cameraEntity)
	cam, err := s.engine.CreateCamera(s.cameraEntity, camera.WithProjection(mgl32.DegToRad(45), vp.Aspect(), 0.1, 1000))
	if err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	s.camera = cam
	s.own(cam)

	s.graph = s.engine.CreateScene()
	s.own(s.graph)
	s.view = s.engine.CreateView(
		view.WithName("sandbox"),
		view.WithCamera(s.camera),
		view.WithScene(s.graph),
		view.WithViewport(common.Viewport{Left: 0, Bottom: 0, Width: vp.Width, Height: vp.Height}),
		view.WithPostProcessing(false),
	)
	s.own(s.view)

	if err := s.buildLighting(); err != nil {
		return err
	}

	s.editor = camera.NewEditorController(s.camera, s.input, s.editorOptions...)

	if err := s.buildMesh(); err != nil {
		return err
	}
	if err := s.buildMaterial(); err != nil {
		return err
	}

	s.renderableEntity = s.engine.CreateEntity()
	s.ownEntity("renderable entity", s.renderableEntity)
	rd, err := s.engine.CreateRenderable(s.renderableEntity, 1,
		renderable.WithBoundingBox(common.Box{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}),
		renderable.WithCulling(false),
		renderable.WithGeometry(0, renderable.PrimitiveTriangles, s.vertexBuffer, s.indexBuffer, 0, len(s.geometry.Indices)),
		renderable.WithMaterial(0, s.materialInstance),
	)
	if err != nil {
		return fmt.Errorf("renderable: %w", err)
	}
	s.renderable = rd
	s.own(rd)
	s.addToGraph("renderable", s.renderableEntity)

	if s.sun {
		return s.buildSun()
	}
	return nil
}

func (s *sceneImpl) addToGraph(name string, e ecs.Entity) {
	s.graph.Add(e)
	s.scope.Own(name+" in scene", func() error {
		s.graph.Remove(e)
		return nil
	})
}

// buildLighting creates the reflections, the indirect light and the skybox.
func (s *sceneImpl) buildLighting() error {
	irradiance, err := s.buildEnvironment()
	if err != nil {
		return fmt.Errorf("environment: %w", err)
	}

	ilOptions := []light.IndirectLightBuilderOption{light.WithIndirectIntensity(s.iblIntensity)}
	if irradiance != nil {
		ilOptions = append(ilOptions, light.WithIrradiance(*irradiance))
	}
	il, err := s.engine.CreateIndirectLight(s.reflections, ilOptions...)
	if err != nil {
		return fmt.Errorf("indirect light: %w", err)
	}
	s.indirectLight = il
	s.own(il)
	s.graph.SetIndirectLight(il)
	s.scope.Own("scene indirect light", func() error {
		s.graph.SetIndirectLight(nil)
		return nil
	})

	skyOptions := []light.SkyboxBuilderOption{light.WithSkyboxColor(s.skyColor)}
	if s.environmentSkybox {
		skyOptions = append(skyOptions, light.WithEnvironment(s.reflections), light.WithSun(s.sun))
	}
	sb, err := s.engine.CreateSkybox(skyOptions...)
	if err != nil {
		return fmt.Errorf("skybox: %w", err)
	}
	s.skybox = sb
	s.own(sb)
	s.graph.SetSkybox(sb)
	s.scope.Own("scene skybox", func() error {
		s.graph.SetSkybox(nil)
		return nil
	})
	return nil
}

// buildEnvironment sets s.reflections. A borrowed environment is used as is; otherwise the panorama, or a
// uniform one in the skybox color, is prefiltered into a texture the scene owns.
// It returns the irradiance of a generated environment, or nil for a borrowed one.
func (s *sceneImpl) buildEnvironment() (*[9]mgl32.Vec3, error) {
	if s.environment != nil {
		s.reflections = s.environment
		return nil, nil
	}

	src := ibl.Uniform(s.skyColor.Vec3(), environmentHeight)
	if s.equirect != nil {
		src = *s.equirect
	}
	gen := s.generator
	if gen == nil {
		gen = ibl.NewPrefilter(ibl.WithSize(environmentSize), ibl.WithJobs(s.engine.Jobs()))
	}
	env, err := gen.Generate(src)
	if err != nil {
		return nil, err
	}

	tex, err := s.engine.CreateTexture(env.Descriptor("sandbox environment"))
	if err != nil {
		return nil, err
	}
	s.own(tex)
	if err := env.Upload(tex); err != nil {
		return nil, err
	}
	s.reflections = tex
	return &env.Irradiance, nil
}

func (s *sceneImpl) buildMesh() error {
	g := s.geometry
	if err := g.Validate(); err != nil {
		return fmt.Errorf("geometry: %w", err)
	}
	vb, err := s.engine.CreateVertexBuffer(g.Descriptor())
	if err != nil {
		return fmt.Errorf("vertex buffer: %w", err)
	}
	s.vertexBuffer = vb
	s.own(vb)

	ib, err := s.engine.CreateIndexBuffer(g.Label, len(g.Indices), g.IndexType)
	if err != nil {
		return fmt.Errorf("index buffer: %w", err)
	}
	s.indexBuffer = ib
	s.own(ib)

	if err := g.Upload(vb, ib); err != nil {
		return fmt.Errorf("upload %s: %w", g.Label, err)
	}
	return nil
}

func (s *sceneImpl) buildMaterial() error {
	pkg, err := s.engine.CompileMaterial(material.Simple())
	if err != nil {
		return fmt.Errorf("material: %w", err)
	}
	m, err := s.engine.CreateMaterial(pkg,
		material.WithDefaultRGB("baseColor", material.RGBLinear, s.baseColor),
		material.WithDefault("metallic", s.metallic),
		material.WithDefault("roughness", s.roughness),
		material.WithDefault("reflectance", s.reflectance),
	)
	if err != nil {
		return fmt.Errorf("material: %w", err)
	}
	s.material = m
	s.own(m)

	mi, err := s.engine.CreateMaterialInstance(m)
	if err != nil {
		return fmt.Errorf("material instance: %w", err)
	}
	s.materialInstance = mi
	s.own(mi)
	return nil
}

func (s *sceneImpl) buildSun() error {
	s.sunEntity = s.engine.CreateEntity()
	s.ownEntity("sun entity", s.sunEntity)
	sun, err := s.engine.CreateLight(s.sunEntity, light.LightTypeSun,
		light.WithColor(common.SRGBToLinearColor(mgl32.Vec3{0.98, 0.92, 0.89})),
		light.WithIntensity(150000),
		light.WithDirection(mgl32.Vec3{0, 0, 5}),
		light.WithSunAngularRadius(1.9),
		light.WithCastsShadows(true),
	)
	if err != nil {
		return fmt.Errorf("sun: %w", err)
	}
	s.sunLight = sun
	s.own(sun)
	s.addToGraph("sun", s.sunEntity)
	return nil
}

func (s *sceneImpl) Build() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scope.Closed() {
		return ErrDestroyed
	}
	reg := s.engine.Registry()
	for _, res := range s.owned {
		if h := res.Handle(); !reg.Alive(h) {
			return fmt.Errorf("sandbox: build: %s: %w", h, resource.ErrStaleHandle)
		}
	}
	return nil
}

func (s *sceneImpl) Animate(dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scope.Closed() {
		return
	}
	s.editor.Animate(max(dt, 0))

	err := s.renderer.Render(s.view)
	switch {
	case err == nil:
		s.skipped = false
	case errors.Is(err, renderer.ErrFrameSkipped):
		// Logged once per run of skipped frames, a minimized window skips every frame.
		if !s.skipped {
			log.Printf("[Sandbox] skipping frames: %v", err)
		}
		s.skipped = true
	default:
		panic(fmt.Sprintf("sandbox: render: %v", err))
	}
}

func (s *sceneImpl) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scope.Closed() {
		return
	}
	n := s.scope.Len()
	if err := s.scope.Close(); err != nil {
		log.Printf("[Sandbox] destroy: %v", err)
		return
	}
	log.Printf("[Sandbox] destroyed, %d releases", n)
}

func (s *sceneImpl) Resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scope.Closed() || width < 0 || height < 0 {
		return
	}
	s.view.SetViewport(common.Viewport{Width: uint32(width), Height: uint32(height)})
	if height > 0 {
		s.camera.SetAspect(float32(width) / float32(height))
	}
}

func (s *sceneImpl) Camera() camera.Camera                       { return s.camera }
func (s *sceneImpl) View() view.View                             { return s.view }
func (s *sceneImpl) Graph() scene.Scene                          { return s.graph }
func (s *sceneImpl) Renderable() renderable.Renderable           { return s.renderable }
func (s *sceneImpl) EditorController() camera.EditorController   { return s.editor }
func (s *sceneImpl) Material() material.Material                 { return s.material }
func (s *sceneImpl) MaterialInstance() material.MaterialInstance { return s.materialInstance }
func (s *sceneImpl) IndirectLight() light.IndirectLight          { return s.indirectLight }
func (s *sceneImpl) Skybox() light.Skybox                        { return s.skybox }
func (s *sceneImpl) Sun() light.Light                            { return s.sunLight }
