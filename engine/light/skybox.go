package light

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/texture"
	"github.com/go-gl/mathgl/mgl32"
)

// Skybox is what the renderer shows where no geometry covers the view: either a flat linear color
// or an environment cubemap.
type Skybox interface {
	resource.Resource

	// Color returns the flat linear RGBA color used when there is no environment.
	Color() mgl32.Vec4

	// SetColor replaces the flat color.
	SetColor(color mgl32.Vec4)

	// Environment returns the cubemap drawn behind the scene, or nil for a flat color skybox.
	Environment() texture.Texture

	// Intensity scales the environment texels, in lux.
	Intensity() float32

	// ShowSun reports whether the sun disk of the scene's sun light is drawn on top of the environment.
	ShowSun() bool
}

type skyboxImpl struct {
	mu *sync.Mutex

	handle      resource.Handle
	color       mgl32.Vec4
	environment texture.Texture
	intensity   float32
	showSun     bool
}

var _ Skybox = &skyboxImpl{}

// NewSkybox creates a skybox. Without options it is opaque black.
//
// Parameters:
//   - handle: the registry handle issued for this skybox
//   - opts: functional options
//
// Returns:
//   - Skybox: the new skybox
//   - error: if the environment is not a complete cubemap
func NewSkybox(handle resource.Handle, opts ...SkyboxBuilderOption) (Skybox, error) {
	s := &skyboxImpl{
		mu:        &sync.Mutex{},
		handle:    handle,
		color:     mgl32.Vec4{0, 0, 0, 1},
		intensity: 30000,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.environment != nil && (s.environment.Type() != texture.TypeCubemap || !s.environment.Valid()) {
		return nil, fmt.Errorf("light: skybox environment %q must be a complete cubemap", s.environment.Label())
	}
	return s, nil
}

func (s *skyboxImpl) Handle() resource.Handle {
	return s.handle
}

func (s *skyboxImpl) Color() mgl32.Vec4 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.color
}

func (s *skyboxImpl) SetColor(color mgl32.Vec4) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.color = color
}

func (s *skyboxImpl) Environment() texture.Texture {
	return s.environment
}

func (s *skyboxImpl) Intensity() float32 {
	return s.intensity
}

func (s *skyboxImpl) ShowSun() bool {
	return s.showSun
}

// SkyboxBuilderOption configures a Skybox during construction.
type SkyboxBuilderOption func(*skyboxImpl)

// WithSkyboxColor sets the flat linear RGBA color.
//
// Parameters:
//   - color: linear RGBA
//
// Returns:
//   - SkyboxBuilderOption: option function to apply
func WithSkyboxColor(color mgl32.Vec4) SkyboxBuilderOption {
	return func(s *skyboxImpl) {
		s.color = color
	}
}

// WithEnvironment draws a cubemap instead of the flat color.
func WithEnvironment(env texture.Texture) SkyboxBuilderOption {
	return func(s *skyboxImpl) {
		s.environment = env
	}
}

// WithSkyboxIntensity sets the environment intensity in lux.
func WithSkyboxIntensity(intensity float32) SkyboxBuilderOption {
	return func(s *skyboxImpl) {
		s.intensity = intensity
	}
}

// WithSun draws the sun disk of the scene's sun light.
func WithSun(show bool) SkyboxBuilderOption {
	return func(s *skyboxImpl) {
		s.showSun = show
	}
}
