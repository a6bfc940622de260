package view

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-sandbox/common"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/camera"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/scene"
)

// View is what the renderer draws in one pass: a scene seen through a camera into a viewport.
type View interface {
	resource.Resource

	// Name returns the debug name of the view.
	Name() string

	// SetName sets the debug name of the view.
	SetName(name string)

	// Camera returns the camera the view renders through, or nil.
	Camera() camera.Camera

	// SetCamera replaces the camera.
	SetCamera(cam camera.Camera)

	// Scene returns the scene the view renders, or nil.
	Scene() scene.Scene

	// SetScene replaces the scene.
	SetScene(s scene.Scene)

	// Viewport returns the target rectangle in surface pixels.
	Viewport() common.Viewport

	// SetViewport replaces the target rectangle.
	SetViewport(vp common.Viewport)

	// PostProcessing reports whether post-processing passes run after the main pass.
	PostProcessing() bool

	// SetPostProcessing toggles post-processing.
	SetPostProcessing(enabled bool)

	// Renderable reports whether the view has everything the renderer needs to draw it.
	Renderable() bool
}

type view struct {
	mu *sync.Mutex

	handle         resource.Handle
	name           string
	camera         camera.Camera
	scene          scene.Scene
	viewport       common.Viewport
	postProcessing bool
}

var _ View = &view{}

// NewView creates a view. Post-processing is enabled unless WithPostProcessing(false) is given.
//
// Parameters:
//   - handle: the registry handle of the view
//   - options: functional options to configure the view
//
// Returns:
//   - View: the new view
func NewView(handle resource.Handle, options ...ViewBuilderOption) View {
	v := &view{
		mu:             &sync.Mutex{},
		handle:         handle,
		name:           "view",
		postProcessing: true,
	}
	for _, opt := range options {
		opt(v)
	}
	return v
}

func (v *view) Handle() resource.Handle {
	return v.handle
}

func (v *view) Name() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.name
}

func (v *view) SetName(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.name = name
}

func (v *view) Camera() camera.Camera {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.camera
}

func (v *view) SetCamera(cam camera.Camera) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.camera = cam
}

func (v *view) Scene() scene.Scene {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scene
}

func (v *view) SetScene(s scene.Scene) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scene = s
}

func (v *view) Viewport() common.Viewport {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.viewport
}

func (v *view) SetViewport(vp common.Viewport) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.viewport = vp
}

func (v *view) PostProcessing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.postProcessing
}

func (v *view) SetPostProcessing(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.postProcessing = enabled
}

func (v *view) Renderable() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.camera != nil && v.scene != nil && !v.viewport.Empty()
}
